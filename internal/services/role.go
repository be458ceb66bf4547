package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"tripadmin/internal/models"
	"tripadmin/internal/permtree"
	apperrors "tripadmin/pkg/errors"
	"tripadmin/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RoleService struct {
	db          *gorm.DB
	permissions *PermissionService
}

func NewRoleService(db *gorm.DB, permissions *PermissionService) *RoleService {
	return &RoleService{
		db:          db,
		permissions: permissions,
	}
}

// CreateRoleInput role to create
type CreateRoleInput struct {
	RoleCode    string
	RoleName    string
	Permissions permtree.Tree
}

// UpdateRoleInput nil fields are left unchanged. A non-nil Permissions replaces the whole tree.
type UpdateRoleInput struct {
	RoleCode    *string
	RoleName    *string
	Permissions *permtree.Tree
	Status      *models.Status
}

// RoleFilter list filters
type RoleFilter struct {
	RoleCode  string
	RoleName  string
	StartDate string
	EndDate   string
	Page      int
	Limit     int
}

// RoleOption entry of the role picker
type RoleOption struct {
	ID       uint   `json:"id"`
	RoleCode string `json:"role_code"`
	RoleName string `json:"role_name"`
}

// LinkDrift difference between a role's tree and its link rows
type LinkDrift struct {
	RoleID   uint     `json:"role_id"`
	RoleCode string   `json:"role_code"`
	Missing  []string `json:"missing"`
	Extra    []string `json:"extra"`
}

// ========== Role CRUD ==========

// Create persists the role and links every permission its tree grants, all or nothing.
func (s *RoleService) Create(ctx context.Context, actorID uint, in CreateRoleInput) (*models.Role, error) {
	in.RoleCode = strings.TrimSpace(in.RoleCode)
	in.RoleName = strings.TrimSpace(in.RoleName)
	if in.RoleCode == "" || in.RoleName == "" {
		return nil, apperrors.BadRequest("Role code and role name are required")
	}
	if err := validateTree(in.Permissions); err != nil {
		return nil, err
	}
	if in.Permissions == nil {
		in.Permissions = permtree.Tree{}
	}

	role := &models.Role{
		RoleCode:    in.RoleCode,
		RoleName:    in.RoleName,
		Permissions: datatypes.NewJSONType(in.Permissions),
		Status:      models.StatusActive,
	}
	role.CreatedByID = actorRef(actorID)

	var linked []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureUniqueCode(tx, role.RoleCode, 0); err != nil {
			return err
		}
		if err := tx.Create(role).Error; err != nil {
			return fmt.Errorf("create role: %w", err)
		}
		var err error
		linked, err = s.syncLinks(tx, actorID, role.ID, in.Permissions)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"role_id":     role.ID,
		"role_code":   role.RoleCode,
		"permissions": len(linked),
	}).Info("Role created")
	return role, nil
}

// List returns one page of non-deleted roles matching the filter
func (s *RoleService) List(ctx context.Context, f RoleFilter) ([]*models.Role, int64, error) {
	query := whereNotDeleted(s.db.WithContext(ctx).Model(&models.Role{}), "status")
	query = whereContains(query, "role_code", f.RoleCode)
	query = whereContains(query, "role_name", f.RoleName)

	query, err := whereCreatedBetween(query, "created_at", f.StartDate, f.EndDate)
	if err != nil {
		return nil, 0, err
	}

	var roles []*models.Role
	total, err := paginate(query, f.Page, f.Limit, &roles, "CreatedBy", "UpdatedBy")
	if err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

// GetByID returns a non-deleted role
func (s *RoleService) GetByID(ctx context.Context, id uint) (*models.Role, error) {
	return s.getRole(s.db.WithContext(ctx).Preload("CreatedBy").Preload("UpdatedBy"), "id = ?", id)
}

// GetByCode returns the non-deleted role with the exact code
func (s *RoleService) GetByCode(ctx context.Context, code string) (*models.Role, error) {
	return s.getRole(s.db.WithContext(ctx), "role_code = ?", strings.TrimSpace(code))
}

func (s *RoleService) getRole(db *gorm.DB, cond string, arg interface{}) (*models.Role, error) {
	var role models.Role
	err := whereNotDeleted(db, "status").Where(cond, arg).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Role does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	return &role, nil
}

// ListCommon returns the roles offered when assigning users. SYS_ADMIN is never offered.
func (s *RoleService) ListCommon(ctx context.Context) ([]RoleOption, error) {
	options := make([]RoleOption, 0)
	err := whereNotDeleted(s.db.WithContext(ctx).Model(&models.Role{}), "status").
		Where("role_code <> ?", models.RoleCodeSysAdmin).
		Order("role_name ASC").
		Find(&options).Error
	if err != nil {
		return nil, fmt.Errorf("list common roles: %w", err)
	}
	return options, nil
}

// Update changes a role. When in.Permissions is set the tree is replaced and the links are
// rebuilt from it in the same transaction; otherwise the links are left untouched.
func (s *RoleService) Update(ctx context.Context, actorID uint, id uint, in UpdateRoleInput) (*models.Role, error) {
	if in.Permissions != nil {
		if err := validateTree(*in.Permissions); err != nil {
			return nil, err
		}
	}
	if in.Status != nil && *in.Status != models.StatusActive && *in.Status != models.StatusInactive {
		return nil, apperrors.BadRequest("Status must be ACTIVE or INACTIVE")
	}

	var role *models.Role
	linked := -1
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		role, err = s.getRole(tx, "id = ?", id)
		if err != nil {
			return err
		}

		if in.RoleCode != nil {
			code := strings.TrimSpace(*in.RoleCode)
			if code == "" {
				return apperrors.BadRequest("Role code must not be empty")
			}
			if code != role.RoleCode {
				if err := s.ensureUniqueCode(tx, code, role.ID); err != nil {
					return err
				}
				role.RoleCode = code
			}
		}
		if in.RoleName != nil {
			name := strings.TrimSpace(*in.RoleName)
			if name == "" {
				return apperrors.BadRequest("Role name must not be empty")
			}
			role.RoleName = name
		}
		if in.Status != nil {
			role.Status = *in.Status
		}
		if in.Permissions != nil {
			role.Permissions = datatypes.NewJSONType(*in.Permissions)
		}

		role.UpdatedByID = actorRef(actorID)
		err = tx.Model(role).
			Select("role_code", "role_name", "permissions", "status", "updated_by_id", "updated_at").
			Updates(role).Error
		if err != nil {
			return fmt.Errorf("update role: %w", err)
		}

		if in.Permissions == nil {
			return nil
		}
		names, err := s.replaceLinks(tx, actorID, role.ID, *in.Permissions)
		linked = len(names)
		return err
	})
	if err != nil {
		return nil, err
	}

	entry := logger.GetLogger().WithFields(logrus.Fields{
		"role_id":   role.ID,
		"role_code": role.RoleCode,
	})
	if linked >= 0 {
		entry = entry.WithField("permissions", linked)
	}
	entry.Info("Role updated")
	return role, nil
}

// Delete removes the role's links and soft-deletes the role. Catalog entries are untouched.
func (s *RoleService) Delete(ctx context.Context, actorID uint, id uint) (*models.Role, error) {
	var role *models.Role
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		role, err = s.getRole(tx, "id = ?", id)
		if err != nil {
			return err
		}

		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return fmt.Errorf("delete role links: %w", err)
		}

		now := time.Now()
		role.Status = models.StatusDelete
		role.DeletedAt = &now
		role.DeletedByID = actorRef(actorID)
		role.UpdatedByID = actorRef(actorID)
		err = tx.Model(role).
			Select("status", "deleted_at", "deleted_by_id", "updated_by_id", "updated_at").
			Updates(role).Error
		if err != nil {
			return fmt.Errorf("delete role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.GetLogger().WithField("role_code", role.RoleCode).Info("Role deleted")
	return role, nil
}

// Tree returns the role's stored tree as submitted
func (s *RoleService) Tree(ctx context.Context, id uint) (permtree.Tree, error) {
	role, err := s.getRole(s.db.WithContext(ctx), "id = ?", id)
	if err != nil {
		return nil, err
	}
	tree := role.Tree()
	if tree == nil {
		tree = permtree.Tree{}
	}
	return tree, nil
}

// LinkedPermissionNames returns the names of the role's link rows, sorted
func (s *RoleService) LinkedPermissionNames(ctx context.Context, roleID uint) ([]string, error) {
	return linkedNames(s.db.WithContext(ctx), roleID)
}

// ========== Link sync ==========

// syncLinks creates one link per name the tree grants. Every name must resolve to a live catalog
// entry; the first one that does not aborts the enclosing transaction.
func (s *RoleService) syncLinks(tx *gorm.DB, actorID, roleID uint, tree permtree.Tree) ([]string, error) {
	names := tree.Flatten()
	for _, name := range names {
		permission, err := s.permissions.getByName(tx, name)
		if err != nil {
			return nil, err
		}

		var count int64
		err = tx.Model(&models.RolePermission{}).
			Where("role_id = ? AND permission_id = ? AND status <> ?", roleID, permission.ID, models.StatusDelete).
			Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("check role link: %w", err)
		}
		if count > 0 {
			return nil, apperrors.Conflict(fmt.Sprintf("Permission '%s' is already linked to the role", name))
		}

		link := &models.RolePermission{
			RoleID:       roleID,
			PermissionID: permission.ID,
			Status:       models.StatusActive,
			CreatedByID:  actorRef(actorID),
		}
		if err := tx.Create(link).Error; err != nil {
			return nil, fmt.Errorf("create role link %q: %w", name, err)
		}
	}
	return names, nil
}

// replaceLinks drops every link of the role and syncs the new tree
func (s *RoleService) replaceLinks(tx *gorm.DB, actorID, roleID uint, tree permtree.Tree) ([]string, error) {
	if err := tx.Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error; err != nil {
		return nil, fmt.Errorf("clear role links: %w", err)
	}
	return s.syncLinks(tx, actorID, roleID, tree)
}

// ========== Audit ==========

// AuditLinks compares every live role's tree with its link rows and reports the roles that differ.
// Names whose catalog entry has been soft-deleted since the last sync show up as missing.
func (s *RoleService) AuditLinks(ctx context.Context) ([]LinkDrift, error) {
	db := s.db.WithContext(ctx)

	var roles []*models.Role
	if err := whereNotDeleted(db, "status").Order("id ASC").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	drifts := make([]LinkDrift, 0)
	for _, role := range roles {
		linked, err := linkedNames(whereNotDeleted(db.Session(&gorm.Session{}), "p.status"), role.ID)
		if err != nil {
			return nil, err
		}
		missing, extra := diffNames(role.Tree().Flatten(), linked)
		if len(missing) == 0 && len(extra) == 0 {
			continue
		}
		drifts = append(drifts, LinkDrift{
			RoleID:   role.ID,
			RoleCode: role.RoleCode,
			Missing:  missing,
			Extra:    extra,
		})
	}
	return drifts, nil
}

func linkedNames(db *gorm.DB, roleID uint) ([]string, error) {
	names := make([]string, 0)
	err := db.Table("role_permissions AS rp").
		Joins("JOIN permissions p ON p.id = rp.permission_id").
		Where("rp.role_id = ?", roleID).
		Order("p.name ASC").
		Pluck("p.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("load role links: %w", err)
	}
	return names, nil
}

// diffNames returns want minus have and have minus want, both sorted
func diffNames(want, have []string) (missing, extra []string) {
	wantSet := make(map[string]struct{}, len(want))
	for _, n := range want {
		wantSet[n] = struct{}{}
	}
	haveSet := make(map[string]struct{}, len(have))
	for _, n := range have {
		haveSet[n] = struct{}{}
		if _, ok := wantSet[n]; !ok {
			extra = append(extra, n)
		}
	}
	for n := range wantSet {
		if _, ok := haveSet[n]; !ok {
			missing = append(missing, n)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}

// ========== Validation ==========

func (s *RoleService) ensureUniqueCode(db *gorm.DB, code string, excludeID uint) error {
	query := whereNotDeleted(db.Model(&models.Role{}), "status").Where("role_code = ?", code)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check role code: %w", err)
	}
	if count > 0 {
		return apperrors.Conflict(fmt.Sprintf("Role with code '%s' already exists", code))
	}
	return nil
}

func validateTree(tree permtree.Tree) error {
	if err := tree.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidParam, err.Error())
	}
	return nil
}
