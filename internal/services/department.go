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

	"gorm.io/gorm"
)

type DepartmentService struct {
	db *gorm.DB
}

func NewDepartmentService(db *gorm.DB) *DepartmentService {
	return &DepartmentService{
		db: db,
	}
}

// DepartmentInput fields of a department. On update nil fields are left unchanged.
type DepartmentInput struct {
	DepartmentCode *string
	DepartmentName *string
	Status         *models.Status
}

// DepartmentFilter list filters
type DepartmentFilter struct {
	DepartmentCode string
	DepartmentName string
	StartDate      string
	EndDate        string
	Page           int
	Limit          int
}

// DepartmentOption entry of the department picker
type DepartmentOption struct {
	ID             uint   `json:"id"`
	DepartmentCode string `json:"department_code"`
	DepartmentName string `json:"department_name"`
}

// Create adds a department
func (s *DepartmentService) Create(ctx context.Context, actorID uint, code, name string) (*models.Department, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, apperrors.BadRequest("Department code and department name are required")
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureUniqueCode(db, code, 0); err != nil {
		return nil, err
	}

	department := &models.Department{
		DepartmentCode: code,
		DepartmentName: name,
		Status:         models.StatusActive,
	}
	department.CreatedByID = actorRef(actorID)
	if err := db.Create(department).Error; err != nil {
		return nil, fmt.Errorf("create department: %w", err)
	}

	logger.GetLogger().WithField("department_code", code).Info("Department created")
	return department, nil
}

// List returns one page of non-deleted departments
func (s *DepartmentService) List(ctx context.Context, f DepartmentFilter) ([]*models.Department, int64, error) {
	query := whereNotDeleted(s.db.WithContext(ctx).Model(&models.Department{}), "status")
	query = whereContains(query, "department_code", f.DepartmentCode)
	query = whereContains(query, "department_name", f.DepartmentName)

	query, err := whereCreatedBetween(query, "created_at", f.StartDate, f.EndDate)
	if err != nil {
		return nil, 0, err
	}

	var departments []*models.Department
	total, err := paginate(query, f.Page, f.Limit, &departments, "CreatedBy", "UpdatedBy")
	if err != nil {
		return nil, 0, err
	}
	return departments, total, nil
}

// GetByID returns a non-deleted department
func (s *DepartmentService) GetByID(ctx context.Context, id uint) (*models.Department, error) {
	return s.get(s.db.WithContext(ctx).Preload("CreatedBy").Preload("UpdatedBy"), "id = ?", id)
}

// GetByCode returns the non-deleted department with the exact code
func (s *DepartmentService) GetByCode(ctx context.Context, code string) (*models.Department, error) {
	return s.get(s.db.WithContext(ctx), "department_code = ?", strings.TrimSpace(code))
}

func (s *DepartmentService) get(db *gorm.DB, cond string, arg interface{}) (*models.Department, error) {
	var department models.Department
	err := whereNotDeleted(db, "status").Where(cond, arg).First(&department).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Department does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get department: %w", err)
	}
	return &department, nil
}

// ListCommon returns every active department for pickers
func (s *DepartmentService) ListCommon(ctx context.Context) ([]DepartmentOption, error) {
	options := make([]DepartmentOption, 0)
	err := s.db.WithContext(ctx).Model(&models.Department{}).
		Where("status = ?", models.StatusActive).
		Order("department_name ASC").
		Find(&options).Error
	if err != nil {
		return nil, fmt.Errorf("list common departments: %w", err)
	}
	return options, nil
}

// Update changes a department
func (s *DepartmentService) Update(ctx context.Context, actorID uint, id uint, in DepartmentInput) (*models.Department, error) {
	db := s.db.WithContext(ctx)
	department, err := s.get(db, "id = ?", id)
	if err != nil {
		return nil, err
	}

	if in.DepartmentCode != nil {
		code := strings.TrimSpace(*in.DepartmentCode)
		if code == "" {
			return nil, apperrors.BadRequest("Department code must not be empty")
		}
		if code != department.DepartmentCode {
			if err := s.ensureUniqueCode(db, code, department.ID); err != nil {
				return nil, err
			}
			department.DepartmentCode = code
		}
	}
	if in.DepartmentName != nil {
		name := strings.TrimSpace(*in.DepartmentName)
		if name == "" {
			return nil, apperrors.BadRequest("Department name must not be empty")
		}
		department.DepartmentName = name
	}
	if in.Status != nil {
		if *in.Status != models.StatusActive && *in.Status != models.StatusInactive {
			return nil, apperrors.BadRequest("Status must be ACTIVE or INACTIVE")
		}
		department.Status = *in.Status
	}

	department.UpdatedByID = actorRef(actorID)
	err = db.Model(department).
		Select("department_code", "department_name", "status", "updated_by_id", "updated_at").
		Updates(department).Error
	if err != nil {
		return nil, fmt.Errorf("update department: %w", err)
	}
	return department, nil
}

// Delete soft-deletes a department. Users keep their reference.
func (s *DepartmentService) Delete(ctx context.Context, actorID uint, id uint) (*models.Department, error) {
	db := s.db.WithContext(ctx)
	department, err := s.get(db, "id = ?", id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	department.Status = models.StatusDelete
	department.DeletedAt = &now
	department.DeletedByID = actorRef(actorID)
	department.UpdatedByID = actorRef(actorID)
	err = db.Model(department).
		Select("status", "deleted_at", "deleted_by_id", "updated_by_id", "updated_at").
		Updates(department).Error
	if err != nil {
		return nil, fmt.Errorf("delete department: %w", err)
	}

	logger.GetLogger().WithField("department_code", department.DepartmentCode).Info("Department deleted")
	return department, nil
}

func (s *DepartmentService) ensureUniqueCode(db *gorm.DB, code string, excludeID uint) error {
	query := whereNotDeleted(db.Model(&models.Department{}), "status").Where("department_code = ?", code)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check department code: %w", err)
	}
	if count > 0 {
		return apperrors.Conflict(fmt.Sprintf("Department with code '%s' already exists", code))
	}
	return nil
}
