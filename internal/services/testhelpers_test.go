package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"tripadmin/internal/database"
	"tripadmin/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	permissions *PermissionService
	roles       *RoleService
	departments *DepartmentService
	users       *UserService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := database.Open(sqlite.Open(dsn), "silent")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.MigrateDB(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	permissions := NewPermissionService(db)
	roles := NewRoleService(db, permissions)
	departments := NewDepartmentService(db)
	return &testEnv{
		db:          db,
		permissions: permissions,
		roles:       roles,
		departments: departments,
		users:       NewUserService(db, roles, departments),
	}
}

// seedCatalog creates one ACTIVE entry per "module:action" name
func (e *testEnv) seedCatalog(t *testing.T, names ...string) map[string]*models.Permission {
	t.Helper()
	created := make(map[string]*models.Permission, len(names))
	for _, name := range names {
		module, action, ok := strings.Cut(name, ":")
		require.True(t, ok, name)
		p, err := e.permissions.Create(context.Background(), 0, CreatePermissionInput{Module: module, Action: action})
		require.NoError(t, err)
		created[name] = p
	}
	return created
}

func (e *testEnv) createUser(t *testing.T, email, roleCode string) *models.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), 0, CreateUserInput{
		Email:           email,
		StaffID:         strings.SplitN(email, "@", 2)[0],
		FullName:        "Test " + email,
		Password:        "Secret123!",
		ConfirmPassword: "Secret123!",
		RoleCode:        roleCode,
	})
	require.NoError(t, err)
	return u
}

func ptr[T any](v T) *T {
	return &v
}
