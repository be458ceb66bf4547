package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tripadmin/internal/models"
	apperrors "tripadmin/pkg/errors"
	"tripadmin/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PermissionService struct {
	db *gorm.DB
}

func NewPermissionService(db *gorm.DB) *PermissionService {
	return &PermissionService{
		db: db,
	}
}

// CreatePermissionInput catalog entry to create
type CreatePermissionInput struct {
	Module      string
	Action      string
	Description string
}

// UpdatePermissionInput nil fields are left unchanged
type UpdatePermissionInput struct {
	Module      *string
	Action      *string
	Description *string
	Status      *models.Status
}

// PermissionFilter list filters
type PermissionFilter struct {
	Name      string
	Module    string
	Action    string
	StartDate string
	EndDate   string
	Page      int
	Limit     int
}

// ========== Catalog CRUD ==========

// Create adds a catalog entry. Module and action are lower-cased and the name derived from them.
func (s *PermissionService) Create(ctx context.Context, actorID uint, in CreatePermissionInput) (*models.Permission, error) {
	permission := &models.Permission{
		Module:      in.Module,
		Action:      in.Action,
		Description: in.Description,
		Status:      models.StatusActive,
	}
	permission.Normalize()
	if err := validateModuleAction(permission.Module, permission.Action); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureUniquePair(db, permission.Module, permission.Action, 0); err != nil {
		return nil, err
	}

	permission.CreatedByID = actorRef(actorID)
	if err := db.Create(permission).Error; err != nil {
		return nil, fmt.Errorf("create permission: %w", err)
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"permission_id": permission.ID,
		"name":          permission.Name,
	}).Info("Permission created")
	return permission, nil
}

// List returns one page of non-deleted entries matching the filter
func (s *PermissionService) List(ctx context.Context, f PermissionFilter) ([]*models.Permission, int64, error) {
	query := whereNotDeleted(s.db.WithContext(ctx).Model(&models.Permission{}), "status")
	query = whereContains(query, "name", f.Name)
	query = whereContains(query, "module", f.Module)
	query = whereContains(query, "action", f.Action)

	query, err := whereCreatedBetween(query, "created_at", f.StartDate, f.EndDate)
	if err != nil {
		return nil, 0, err
	}

	var permissions []*models.Permission
	total, err := paginate(query, f.Page, f.Limit, &permissions, "CreatedBy", "UpdatedBy")
	if err != nil {
		return nil, 0, err
	}
	return permissions, total, nil
}

// GetByID returns a non-deleted entry
func (s *PermissionService) GetByID(ctx context.Context, id uint) (*models.Permission, error) {
	var permission models.Permission
	err := whereNotDeleted(s.db.WithContext(ctx), "status").
		Preload("CreatedBy").Preload("UpdatedBy").
		First(&permission, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Permission does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get permission: %w", err)
	}
	return &permission, nil
}

// GetByName returns the non-deleted entry with the exact name
func (s *PermissionService) GetByName(ctx context.Context, name string) (*models.Permission, error) {
	return s.getByName(s.db.WithContext(ctx), name)
}

// getByName runs on db so role sync can call it inside its transaction. Soft-deleted entries
// are not found.
func (s *PermissionService) getByName(db *gorm.DB, name string) (*models.Permission, error) {
	var permission models.Permission
	err := whereNotDeleted(db, "status").Where("name = ?", name).First(&permission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound(fmt.Sprintf("Permission '%s' does not exist", name))
	}
	if err != nil {
		return nil, fmt.Errorf("get permission %q: %w", name, err)
	}
	return &permission, nil
}

// Update changes an entry. The name and, unless given, the description follow module and action.
func (s *PermissionService) Update(ctx context.Context, actorID uint, id uint, in UpdatePermissionInput) (*models.Permission, error) {
	db := s.db.WithContext(ctx)

	var permission models.Permission
	err := whereNotDeleted(db, "status").First(&permission, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Permission does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get permission: %w", err)
	}

	pairChanged := false
	if in.Module != nil && !strings.EqualFold(strings.TrimSpace(*in.Module), permission.Module) {
		permission.Module = *in.Module
		pairChanged = true
	}
	if in.Action != nil && !strings.EqualFold(strings.TrimSpace(*in.Action), permission.Action) {
		permission.Action = *in.Action
		pairChanged = true
	}
	switch {
	case in.Description != nil:
		permission.Description = *in.Description
	case pairChanged:
		permission.Description = ""
	}
	if in.Status != nil {
		if *in.Status != models.StatusActive && *in.Status != models.StatusInactive {
			return nil, apperrors.BadRequest("Status must be ACTIVE or INACTIVE")
		}
		permission.Status = *in.Status
	}

	permission.Normalize()
	if err := validateModuleAction(permission.Module, permission.Action); err != nil {
		return nil, err
	}
	if pairChanged {
		if err := s.ensureUniquePair(db, permission.Module, permission.Action, permission.ID); err != nil {
			return nil, err
		}
		if err := s.ensureUnlinked(db, permission.ID); err != nil {
			return nil, err
		}
	}

	permission.UpdatedByID = actorRef(actorID)
	err = db.Model(&permission).
		Select("module", "action", "name", "description", "status", "updated_by_id", "updated_at").
		Updates(&permission).Error
	if err != nil {
		return nil, fmt.Errorf("update permission: %w", err)
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"permission_id": permission.ID,
		"name":          permission.Name,
		"status":        permission.Status,
	}).Info("Permission updated")
	return &permission, nil
}

// Delete soft-deletes an entry. Existing role links stay but no longer grant anything.
func (s *PermissionService) Delete(ctx context.Context, actorID uint, id uint) (*models.Permission, error) {
	db := s.db.WithContext(ctx)

	var permission models.Permission
	err := whereNotDeleted(db, "status").First(&permission, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Permission does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get permission: %w", err)
	}

	now := time.Now()
	permission.Status = models.StatusDelete
	permission.DeletedAt = &now
	permission.DeletedByID = actorRef(actorID)
	permission.UpdatedByID = actorRef(actorID)
	err = db.Model(&permission).
		Select("status", "deleted_at", "deleted_by_id", "updated_by_id", "updated_at").
		Updates(&permission).Error
	if err != nil {
		return nil, fmt.Errorf("delete permission: %w", err)
	}

	logger.GetLogger().WithField("name", permission.Name).Info("Permission deleted")
	return &permission, nil
}

// ListByModule returns the module's non-deleted entries ordered by name
func (s *PermissionService) ListByModule(ctx context.Context, module string) ([]*models.Permission, error) {
	var permissions []*models.Permission
	err := whereNotDeleted(s.db.WithContext(ctx), "status").
		Where("module = ?", strings.ToLower(strings.TrimSpace(module))).
		Order("name ASC").
		Find(&permissions).Error
	if err != nil {
		return nil, fmt.Errorf("list permissions by module: %w", err)
	}
	return permissions, nil
}

// ListModules returns the distinct modules of non-deleted entries
func (s *PermissionService) ListModules(ctx context.Context) ([]string, error) {
	var modules []string
	err := whereNotDeleted(s.db.WithContext(ctx).Model(&models.Permission{}), "status").
		Distinct("module").
		Order("module ASC").
		Pluck("module", &modules).Error
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	return modules, nil
}

// ========== Authorization check ==========

// effectiveGrants joins a user to the names its role currently grants: link ACTIVE and
// catalog entry ACTIVE.
func (s *PermissionService) effectiveGrants(ctx context.Context, userID uint) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("users AS u").
		Joins("JOIN roles r ON r.id = u.role_id").
		Joins("JOIN role_permissions rp ON rp.role_id = r.id").
		Joins("JOIN permissions p ON p.id = rp.permission_id").
		Where("u.id = ? AND u.status <> ?", userID, models.StatusDelete).
		Where("r.status = ?", models.StatusActive).
		Where("rp.status = ? AND p.status = ?", models.StatusActive, models.StatusActive)
}

// UserPermissionNames returns the user's effective permission names, sorted. A user without a
// role has none.
func (s *PermissionService) UserPermissionNames(ctx context.Context, userID uint) ([]string, error) {
	names := make([]string, 0)
	err := s.effectiveGrants(ctx, userID).
		Distinct("p.name").
		Order("p.name ASC").
		Pluck("p.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("load user permissions: %w", err)
	}
	return names, nil
}

// HasPermission tests exact membership of name in the user's effective permissions. Every call
// reads current link state.
func (s *PermissionService) HasPermission(ctx context.Context, userID uint, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	var count int64
	err := s.effectiveGrants(ctx, userID).Where("p.name = ?", name).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check permission %q: %w", name, err)
	}
	return count > 0, nil
}

// ========== Validation ==========

// ensureUnlinked blocks renaming an entry that roles link to by id. Their trees name the old pair.
func (s *PermissionService) ensureUnlinked(db *gorm.DB, permissionID uint) error {
	var count int64
	err := db.Model(&models.RolePermission{}).
		Where("permission_id = ? AND status <> ?", permissionID, models.StatusDelete).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check permission links: %w", err)
	}
	if count > 0 {
		return apperrors.Conflict(fmt.Sprintf("Permission is linked to %d role(s); unlink it before changing module or action", count))
	}
	return nil
}

func (s *PermissionService) ensureUniquePair(db *gorm.DB, module, action string, excludeID uint) error {
	query := whereNotDeleted(db.Model(&models.Permission{}), "status").
		Where("module = ? AND action = ?", module, action)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check permission uniqueness: %w", err)
	}
	if count > 0 {
		return apperrors.Conflict(fmt.Sprintf("Permission with module '%s' and action '%s' already exists", module, action))
	}
	return nil
}

func validateModuleAction(module, action string) error {
	if module == "" || action == "" {
		return apperrors.BadRequest("Module and action are required")
	}
	if strings.ContainsAny(module+action, ": \t\n") {
		return apperrors.BadRequest("Module and action must not contain ':' or whitespace")
	}
	return nil
}
