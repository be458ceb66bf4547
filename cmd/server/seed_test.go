package main

import (
	"context"
	"testing"

	"tripadmin/internal/database"
	"tripadmin/internal/models"
	"tripadmin/internal/services"
	"tripadmin/pkg/config"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedData_Idempotent(t *testing.T) {
	db, err := database.Open(sqlite.Open("file:seed?mode=memory&cache=shared"), "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.MigrateDB(db))

	cfg := &config.Config{Seed: config.SeedConfig{AdminEmail: "admin@tripadmin.local", AdminPassword: "ChangeMe123!"}}
	ctx := context.Background()

	require.NoError(t, seedData(ctx, db, cfg))

	var catalogSize, linkCount int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&catalogSize).Error)
	require.NoError(t, db.Model(&models.RolePermission{}).Count(&linkCount).Error)
	// 6 menus x 5 canonical actions + 2 booking menus x 7 actions
	assert.EqualValues(t, 6*5+2*7, catalogSize)
	assert.Equal(t, catalogSize, linkCount)

	require.NoError(t, seedData(ctx, db, cfg))

	var again, linksAgain, users int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&again).Error)
	require.NoError(t, db.Model(&models.RolePermission{}).Count(&linksAgain).Error)
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, catalogSize, again)
	assert.Equal(t, linkCount, linksAgain)
	assert.EqualValues(t, 1, users)

	permissions := services.NewPermissionService(db)
	roles := services.NewRoleService(db, permissions)
	userService := services.NewUserService(db, roles, services.NewDepartmentService(db))

	admin, err := userService.Authenticate(ctx, "admin@tripadmin.local", "ChangeMe123!")
	require.NoError(t, err)
	assert.Equal(t, models.UserTypeAdmin, admin.UserType)

	for _, name := range []string{"roles:create", "hotel-bookings:approve", "flight-bookings:reject", "departments:delete"} {
		ok, err := permissions.HasPermission(ctx, admin.ID, name)
		require.NoError(t, err)
		assert.True(t, ok, name)
	}

	drifts, err := roles.AuditLinks(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}
