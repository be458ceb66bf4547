package models

import (
	"time"

	"tripadmin/internal/permtree"

	"gorm.io/datatypes"
)

// Role bundle of granted permissions. Permissions is the UI tree; the RolePermission rows derived
// from it are what the authorization check reads.
type Role struct {
	BaseModel
	RoleCode    string                            `gorm:"size:100;not null;index" json:"role_code"` // unique among non-deleted roles
	RoleName    string                            `gorm:"size:100;not null" json:"role_name"`
	Permissions datatypes.JSONType[permtree.Tree] `json:"permissions"`
	Status      Status                            `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	AuditFields

	CreatedBy *UserRef `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	UpdatedBy *UserRef `gorm:"foreignKey:UpdatedByID" json:"updated_by,omitempty"`
}

// Tree returns the stored permission tree
func (r *Role) Tree() permtree.Tree {
	return r.Permissions.Data()
}

// RoleCodeSysAdmin is the bootstrap role, hidden from the common role picker
const RoleCodeSysAdmin = "SYS_ADMIN"

// RolePermission link enforcing one grant. Links are hard-deleted on resync, so the unique
// index holds for active links.
type RolePermission struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RoleID       uint      `gorm:"not null;uniqueIndex:idx_role_permission" json:"role_id"`
	PermissionID uint      `gorm:"not null;uniqueIndex:idx_role_permission;index" json:"permission_id"`
	Status       Status    `gorm:"size:20;not null;default:'ACTIVE'" json:"status"`
	CreatedByID  *uint     `json:"created_by_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Permission *Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`
}
