package models

// Department organisational unit a user belongs to
type Department struct {
	BaseModel
	DepartmentCode string `gorm:"size:100;not null;index" json:"department_code"`
	DepartmentName string `gorm:"size:150;not null" json:"department_name"`
	Status         Status `gorm:"size:20;not null;default:'ACTIVE';index" json:"status"`
	AuditFields

	CreatedBy *UserRef `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	UpdatedBy *UserRef `gorm:"foreignKey:UpdatedByID" json:"updated_by,omitempty"`
}
