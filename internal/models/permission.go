package models

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"tripadmin/internal/permtree"
)

// Permission catalog entry: one grantable (module, action) pair
type Permission struct {
	BaseModel
	Module      string `gorm:"size:100;not null;index" json:"module"`
	Action      string `gorm:"size:50;not null" json:"action"`
	Name        string `gorm:"size:160;not null;index" json:"name"` // "module:action", unique among non-deleted rows
	Description string `gorm:"size:255" json:"description"`
	Status      Status `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	AuditFields

	CreatedBy *UserRef `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	UpdatedBy *UserRef `gorm:"foreignKey:UpdatedByID" json:"updated_by,omitempty"`
}

// Catalog modules that guard the admin portal itself
const (
	ModuleUsers       = "users"
	ModuleRoles       = "roles"
	ModulePermissions = "permissions"
	ModuleDepartments = "departments"
)

// Extra actions used by the booking modules
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Normalize lower-cases module and action and derives name and default description.
func (p *Permission) Normalize() {
	p.Module = strings.ToLower(strings.TrimSpace(p.Module))
	p.Action = strings.ToLower(strings.TrimSpace(p.Action))
	p.Name = permtree.PermissionName(p.Module, p.Action)
	if strings.TrimSpace(p.Description) == "" {
		p.Description = Capitalize(p.Action) + " " + Capitalize(p.Module)
	}
}

// Capitalize upper-cases the first letter and lower-cases the rest
func Capitalize(word string) string {
	if word == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(r)) + strings.ToLower(word[size:])
}
