// Package permtree models the hierarchical menu tree stored on a role and flattens it into
// "module:action" permission names.
//
// A MenuNode is either a leaf carrying an ActionSet or a group carrying sub-menus. A group's
// label is presentation only and never part of the permission names emitted by its children.
package permtree

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Canonical action keys, in emission order.
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionEdit   = "edit"
	ActionDelete = "delete"
	ActionList   = "list"
)

var CanonicalActions = []string{ActionCreate, ActionRead, ActionEdit, ActionDelete, ActionList}

// ErrInvalidTree is wrapped by every Validate failure.
var ErrInvalidTree = errors.New("invalid permission tree")

var (
	extraActionPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	moduleKeyPattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
)

// ActionSet action flags of one module. Extra holds non-canonical actions such as approve or reject.
type ActionSet struct {
	Create bool
	Read   bool
	Edit   bool
	Delete bool
	List   bool
	Extra  map[string]bool
}

func isCanonical(action string) bool {
	for _, a := range CanonicalActions {
		if a == action {
			return true
		}
	}
	return false
}

func (a ActionSet) canonical(action string) bool {
	switch action {
	case ActionCreate:
		return a.Create
	case ActionRead:
		return a.Read
	case ActionEdit:
		return a.Edit
	case ActionDelete:
		return a.Delete
	case ActionList:
		return a.List
	}
	return false
}

// Granted returns the actions flagged true: canonical ones first in canonical order, then extras sorted.
func (a ActionSet) Granted() []string {
	granted := make([]string, 0, len(CanonicalActions)+len(a.Extra))
	for _, action := range CanonicalActions {
		if a.canonical(action) {
			granted = append(granted, action)
		}
	}

	extras := make([]string, 0, len(a.Extra))
	for action, on := range a.Extra {
		if on && !isCanonical(action) {
			extras = append(extras, action)
		}
	}
	sort.Strings(extras)
	return append(granted, extras...)
}

// MarshalJSON writes the set as one flat object, canonical keys always present.
func (a ActionSet) MarshalJSON() ([]byte, error) {
	m := make(map[string]bool, len(CanonicalActions)+len(a.Extra))
	for k, v := range a.Extra {
		m[k] = v
	}
	m[ActionCreate] = a.Create
	m[ActionRead] = a.Read
	m[ActionEdit] = a.Edit
	m[ActionDelete] = a.Delete
	m[ActionList] = a.List
	return json.Marshal(m)
}

// UnmarshalJSON accepts a flat object of booleans. Keys are lower-cased; unknown keys go to Extra.
func (a *ActionSet) UnmarshalJSON(data []byte) error {
	var raw map[string]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("actions must be an object of booleans: %w", err)
	}

	*a = ActionSet{}
	for key, on := range raw {
		switch key = strings.ToLower(strings.TrimSpace(key)); key {
		case ActionCreate:
			a.Create = a.Create || on
		case ActionRead:
			a.Read = a.Read || on
		case ActionEdit:
			a.Edit = a.Edit || on
		case ActionDelete:
			a.Delete = a.Delete || on
		case ActionList:
			a.List = a.List || on
		default:
			if a.Extra == nil {
				a.Extra = make(map[string]bool)
			}
			a.Extra[key] = a.Extra[key] || on
		}
	}
	return nil
}

// MenuNode one entry of the tree: a leaf when Actions is set, a group when SubMenus is set.
type MenuNode struct {
	MenuName  string     `json:"menuName"`
	ModuleKey string     `json:"moduleKey,omitempty"`
	Actions   *ActionSet `json:"actions,omitempty"`
	SubMenus  []MenuNode `json:"subMenus,omitempty"`
}

// Tree ordered list of top-level menus
type Tree []MenuNode

// ModuleName derives a module from a menu label: lower-cased, spaces replaced by hyphens.
func ModuleName(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "-")
}

// PermissionName joins module and action.
func PermissionName(module, action string) string {
	return module + ":" + action
}

// IsLeaf reports whether the node carries actions.
func (n MenuNode) IsLeaf() bool {
	return n.Actions != nil
}

// IsGroup reports whether the node carries sub-menus.
func (n MenuNode) IsGroup() bool {
	return len(n.SubMenus) > 0
}

// Key is the module used for enforcement. An explicit ModuleKey wins over the derived label.
func (n MenuNode) Key() string {
	if n.ModuleKey != "" {
		return n.ModuleKey
	}
	return ModuleName(n.MenuName)
}

// Flatten returns the permission names granted by the tree, de-duplicated in first-seen order.
func Flatten(tree Tree) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, node := range tree {
		names = flattenNode(node, names, seen)
	}
	return names
}

func flattenNode(node MenuNode, names []string, seen map[string]struct{}) []string {
	if node.IsLeaf() {
		module := node.Key()
		if module != "" {
			for _, action := range node.Actions.Granted() {
				name := PermissionName(module, action)
				if _, dup := seen[name]; dup {
					continue
				}
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	for _, child := range node.SubMenus {
		names = flattenNode(child, names, seen)
	}
	return names
}

// Flatten is a convenience for Flatten(t).
func (t Tree) Flatten() []string {
	return Flatten(t)
}

// Validate rejects trees that cannot be flattened unambiguously.
func (t Tree) Validate() error {
	for i, node := range t {
		if err := validateNode(node, fmt.Sprintf("permissions[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(node MenuNode, path string) error {
	if strings.TrimSpace(node.MenuName) == "" {
		return fmt.Errorf("%w: %s.menuName is required", ErrInvalidTree, path)
	}
	if node.IsLeaf() && node.IsGroup() {
		return fmt.Errorf("%w: %s has both actions and subMenus", ErrInvalidTree, path)
	}
	if node.ModuleKey != "" {
		if !node.IsLeaf() {
			return fmt.Errorf("%w: %s.moduleKey is only allowed on menus with actions", ErrInvalidTree, path)
		}
		if !moduleKeyPattern.MatchString(node.ModuleKey) {
			return fmt.Errorf("%w: %s.moduleKey %q must be lower-case letters, digits, '.', '_' or '-'", ErrInvalidTree, path, node.ModuleKey)
		}
	}

	if node.IsLeaf() {
		module := node.Key()
		if strings.ContainsAny(module, ":\t\n\r") {
			return fmt.Errorf("%w: %s derives invalid module %q", ErrInvalidTree, path, module)
		}
		for action := range node.Actions.Extra {
			if isCanonical(action) {
				return fmt.Errorf("%w: %s.actions.%s duplicates a canonical action", ErrInvalidTree, path, action)
			}
			if !extraActionPattern.MatchString(action) {
				return fmt.Errorf("%w: %s.actions has invalid action key %q", ErrInvalidTree, path, action)
			}
		}
	}

	for i, child := range node.SubMenus {
		if err := validateNode(child, fmt.Sprintf("%s.subMenus[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}
