package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// UserType kind of account
type UserType string

const (
	UserTypeAdmin UserType = "ADMIN"
	UserTypeStaff UserType = "STAFF"
)

// User portal account. Exactly one role per user.
type User struct {
	BaseModel
	Email        string     `json:"email" gorm:"not null;size:150;index"`
	StaffID      string     `json:"staff_id" gorm:"not null;size:50;index"`
	FullName     string     `json:"full_name" gorm:"not null;size:150"`
	PasswordHash string     `json:"-" gorm:"not null;size:255"`
	UserType     UserType   `json:"user_type" gorm:"size:20;default:'STAFF'"`
	Status       Status     `json:"status" gorm:"size:20;not null;default:'ACTIVE';index"`
	RoleID       *uint      `json:"role_id" gorm:"index"`
	DepartmentID *uint      `json:"department_id" gorm:"index"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	AuditFields

	Role       *Role       `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

func (u *User) TableName() string {
	return "users"
}

// SetPassword hashes and stores password
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword compares password with the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// IsActive reports whether the account may sign in
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}
