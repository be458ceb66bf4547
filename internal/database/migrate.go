package database

import (
	"tripadmin/internal/models"
	"tripadmin/pkg/logger"

	"gorm.io/gorm"
)

// Models every table owned by the service, in creation order
var Models = []interface{}{
	&models.Department{},
	&models.Permission{},
	&models.Role{},
	&models.RolePermission{},
	&models.User{},
}

// Migrate runs AutoMigrate on the global handle
func Migrate() error {
	return MigrateDB(DB)
}

// MigrateDB runs AutoMigrate on db
func MigrateDB(db *gorm.DB) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	if err := db.AutoMigrate(Models...); err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed successfully")
	return nil
}
