package models

import (
	"time"
)

// Status lifecycle marker shared by every entity. DELETE is the soft-delete marker.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusDelete   Status = "DELETE"
)

// IsValid reports whether s is one of the known statuses
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive || s == StatusDelete
}

// BaseModel base model
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primarykey"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuditFields who touched a row. The references survive soft deletion of the user.
type AuditFields struct {
	CreatedByID *uint      `json:"created_by_id"`
	UpdatedByID *uint      `json:"updated_by_id"`
	DeletedByID *uint      `json:"-"`
	DeletedAt   *time.Time `json:"-" gorm:"index"`
}

// UserRef short user projection embedded in responses
type UserRef struct {
	ID       uint   `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

func (UserRef) TableName() string {
	return "users"
}
