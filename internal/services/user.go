package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tripadmin/internal/models"
	"tripadmin/internal/permtree"
	apperrors "tripadmin/pkg/errors"
	"tripadmin/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MinPasswordLength shortest accepted password
const MinPasswordLength = 8

type UserService struct {
	db          *gorm.DB
	roles       *RoleService
	departments *DepartmentService
}

func NewUserService(db *gorm.DB, roles *RoleService, departments *DepartmentService) *UserService {
	return &UserService{
		db:          db,
		roles:       roles,
		departments: departments,
	}
}

// CreateUserInput account to create. Role and department are referenced by code.
type CreateUserInput struct {
	Email           string
	StaffID         string
	FullName        string
	Password        string
	ConfirmPassword string
	UserType        models.UserType
	RoleCode        string
	DepartmentCode  string
}

// UpdateUserInput nil fields are left unchanged
type UpdateUserInput struct {
	Email          *string
	StaffID        *string
	FullName       *string
	RoleCode       *string
	DepartmentCode *string
	Status         *models.Status
}

// UserFilter list filters
type UserFilter struct {
	FullName       string
	Email          string
	StaffID        string
	Status         string
	RoleCode       string
	DepartmentCode string
	StartDate      string
	EndDate        string
	Page           int
	Limit          int
}

// ========== Account CRUD ==========

// Create adds an account with a bcrypt-hashed password
func (s *UserService) Create(ctx context.Context, actorID uint, in CreateUserInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.StaffID = strings.TrimSpace(in.StaffID)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Email == "" || in.StaffID == "" || in.FullName == "" {
		return nil, apperrors.BadRequest("Email, staff id and full name are required")
	}
	if err := validatePassword(in.Password, in.ConfirmPassword); err != nil {
		return nil, err
	}
	if in.UserType == "" {
		in.UserType = models.UserTypeStaff
	}
	if in.UserType != models.UserTypeStaff && in.UserType != models.UserTypeAdmin {
		return nil, apperrors.BadRequest("User type must be ADMIN or STAFF")
	}

	user := &models.User{
		Email:    in.Email,
		StaffID:  in.StaffID,
		FullName: in.FullName,
		UserType: in.UserType,
		Status:   models.StatusActive,
	}
	user.CreatedByID = actorRef(actorID)

	if in.RoleCode != "" {
		role, err := s.roles.GetByCode(ctx, in.RoleCode)
		if err != nil {
			return nil, err
		}
		user.RoleID = &role.ID
	}
	if in.DepartmentCode != "" {
		department, err := s.departments.GetByCode(ctx, in.DepartmentCode)
		if err != nil {
			return nil, err
		}
		user.DepartmentID = &department.ID
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureUnique(db, user.Email, user.StaffID, 0); err != nil {
		return nil, err
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	logger.GetLogger().WithFields(logrus.Fields{
		"user_id":   user.ID,
		"email":     user.Email,
		"role_code": in.RoleCode,
	}).Info("User created")
	return s.GetByID(ctx, user.ID)
}

// GetByID returns a non-deleted account with its role and department
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.get(s.withRelations(s.db.WithContext(ctx)), "users.id = ?", id)
}

// GetByEmail returns the non-deleted account with the email, case-insensitively
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.get(s.withRelations(s.db.WithContext(ctx)), "users.email = ?", normalizeEmail(email))
}

func (s *UserService) withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Role").Preload("Department")
}

func (s *UserService) get(db *gorm.DB, cond string, arg interface{}) (*models.User, error) {
	var user models.User
	err := whereNotDeleted(db, "users.status").Where(cond, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("User does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// List returns one page of non-deleted accounts matching the filter
func (s *UserService) List(ctx context.Context, f UserFilter) ([]*models.User, int64, error) {
	db := s.db.WithContext(ctx)
	query := whereNotDeleted(db.Model(&models.User{}), "status")
	query = whereContains(query, "full_name", f.FullName)
	query = whereContains(query, "email", f.Email)
	query = whereContains(query, "staff_id", f.StaffID)

	if f.Status != "" {
		status := models.Status(strings.ToUpper(f.Status))
		if status != models.StatusActive && status != models.StatusInactive {
			return nil, 0, apperrors.BadRequest("Status must be ACTIVE or INACTIVE")
		}
		query = query.Where("status = ?", status)
	}
	if f.RoleCode != "" {
		roleIDs := whereNotDeleted(db.Model(&models.Role{}), "status").
			Select("id").Where("role_code = ?", strings.TrimSpace(f.RoleCode))
		query = query.Where("role_id IN (?)", roleIDs)
	}
	if f.DepartmentCode != "" {
		departmentIDs := whereNotDeleted(db.Model(&models.Department{}), "status").
			Select("id").Where("department_code = ?", strings.TrimSpace(f.DepartmentCode))
		query = query.Where("department_id IN (?)", departmentIDs)
	}

	query, err := whereCreatedBetween(query, "created_at", f.StartDate, f.EndDate)
	if err != nil {
		return nil, 0, err
	}

	var users []*models.User
	total, err := paginate(query, f.Page, f.Limit, &users, "Role", "Department")
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update changes an account. An empty role or department code clears the reference.
func (s *UserService) Update(ctx context.Context, actorID uint, id uint, in UpdateUserInput) (*models.User, error) {
	db := s.db.WithContext(ctx)
	user, err := s.get(db, "users.id = ?", id)
	if err != nil {
		return nil, err
	}

	email, staffID := user.Email, user.StaffID
	if in.Email != nil {
		email = normalizeEmail(*in.Email)
		if email == "" {
			return nil, apperrors.BadRequest("Email must not be empty")
		}
	}
	if in.StaffID != nil {
		staffID = strings.TrimSpace(*in.StaffID)
		if staffID == "" {
			return nil, apperrors.BadRequest("Staff id must not be empty")
		}
	}
	if email != user.Email || staffID != user.StaffID {
		if err := s.ensureUnique(db, email, staffID, user.ID); err != nil {
			return nil, err
		}
		user.Email, user.StaffID = email, staffID
	}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return nil, apperrors.BadRequest("Full name must not be empty")
		}
		user.FullName = name
	}
	if in.RoleCode != nil {
		user.RoleID = nil
		if code := strings.TrimSpace(*in.RoleCode); code != "" {
			role, err := s.roles.GetByCode(ctx, code)
			if err != nil {
				return nil, err
			}
			user.RoleID = &role.ID
		}
	}
	if in.DepartmentCode != nil {
		user.DepartmentID = nil
		if code := strings.TrimSpace(*in.DepartmentCode); code != "" {
			department, err := s.departments.GetByCode(ctx, code)
			if err != nil {
				return nil, err
			}
			user.DepartmentID = &department.ID
		}
	}
	if in.Status != nil {
		if *in.Status != models.StatusActive && *in.Status != models.StatusInactive {
			return nil, apperrors.BadRequest("Status must be ACTIVE or INACTIVE")
		}
		user.Status = *in.Status
	}

	user.UpdatedByID = actorRef(actorID)
	err = db.Model(user).
		Select("email", "staff_id", "full_name", "role_id", "department_id", "status", "updated_by_id", "updated_at").
		Updates(user).Error
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	logger.GetLogger().WithField("user_id", user.ID).Info("User updated")
	return s.GetByID(ctx, user.ID)
}

// Delete soft-deletes an account
func (s *UserService) Delete(ctx context.Context, actorID uint, id uint) (*models.User, error) {
	if actorID != 0 && actorID == id {
		return nil, apperrors.BadRequest("You cannot delete your own account")
	}

	db := s.db.WithContext(ctx)
	user, err := s.get(db, "users.id = ?", id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.Status = models.StatusDelete
	user.DeletedAt = &now
	user.DeletedByID = actorRef(actorID)
	user.UpdatedByID = actorRef(actorID)
	err = db.Model(user).
		Select("status", "deleted_at", "deleted_by_id", "updated_by_id", "updated_at").
		Updates(user).Error
	if err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}

	logger.GetLogger().WithField("user_id", user.ID).Info("User deleted")
	return user, nil
}

// ========== Credentials ==========

// Authenticate checks email and password. Unknown emails and wrong passwords are indistinguishable.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}
	if !user.IsActive() {
		return nil, apperrors.Forbidden("User account is not active")
	}

	now := time.Now()
	user.LastLoginAt = &now
	err = s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		UpdateColumn("last_login_at", now).Error
	if err != nil {
		logger.GetLogger().WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	}
	return user, nil
}

// ChangePassword replaces the password after checking the current one
func (s *UserService) ChangePassword(ctx context.Context, userID uint, current, password, confirm string) error {
	db := s.db.WithContext(ctx)
	user, err := s.get(db, "users.id = ?", userID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(current) {
		return apperrors.BadRequest("Current password is incorrect")
	}
	if err := validatePassword(password, confirm); err != nil {
		return err
	}
	if current == password {
		return apperrors.BadRequest("New password must differ from the current password")
	}

	if err := user.SetPassword(password); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = db.Model(user).
		Select("password_hash", "updated_by_id", "updated_at").
		Updates(&models.User{PasswordHash: user.PasswordHash, AuditFields: models.AuditFields{UpdatedByID: actorRef(userID)}}).Error
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	logger.GetLogger().WithField("user_id", userID).Info("Password changed")
	return nil
}

// IsActive reports whether the account exists and may act
func (s *UserService) IsActive(ctx context.Context, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND status = ?", userID, models.StatusActive).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check user status: %w", err)
	}
	return count > 0, nil
}

// RoleTreeForUser returns the tree of the user's role. A user without an active role gets an empty tree.
func (s *UserService) RoleTreeForUser(ctx context.Context, userID uint) (permtree.Tree, error) {
	user, err := s.get(s.db.WithContext(ctx).Preload("Role"), "users.id = ?", userID)
	if err != nil {
		return nil, err
	}
	if user.Role == nil || user.Role.Status != models.StatusActive {
		return permtree.Tree{}, nil
	}
	tree := user.Role.Tree()
	if tree == nil {
		tree = permtree.Tree{}
	}
	return tree, nil
}

// ========== Validation ==========

func (s *UserService) ensureUnique(db *gorm.DB, email, staffID string, excludeID uint) error {
	query := whereNotDeleted(db.Model(&models.User{}), "status").
		Where("email = ? OR staff_id = ?", email, staffID)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var existing []models.User
	if err := query.Select("email", "staff_id").Find(&existing).Error; err != nil {
		return fmt.Errorf("check user uniqueness: %w", err)
	}
	for _, u := range existing {
		if u.Email == email {
			return apperrors.Conflict(fmt.Sprintf("User with email '%s' already exists", email))
		}
	}
	if len(existing) > 0 {
		return apperrors.Conflict(fmt.Sprintf("User with staff id '%s' already exists", staffID))
	}
	return nil
}

func validatePassword(password, confirm string) error {
	if len(password) < MinPasswordLength {
		return apperrors.BadRequest(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if password != confirm {
		return apperrors.BadRequest("Password and confirm password do not match")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
