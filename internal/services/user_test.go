package services

import (
	"context"
	"testing"

	"tripadmin/internal/models"
	"tripadmin/internal/permtree"
	apperrors "tripadmin/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.roles.Create(ctx, 0, CreateRoleInput{RoleCode: "EDITOR", RoleName: "Editor"})
	require.NoError(t, err)
	_, err = env.departments.Create(ctx, 0, "OPS", "Operations")
	require.NoError(t, err)

	user, err := env.users.Create(ctx, 0, CreateUserInput{
		Email:           " Jane@Example.com ",
		StaffID:         "S001",
		FullName:        "Jane Doe",
		Password:        "Secret123!",
		ConfirmPassword: "Secret123!",
		RoleCode:        "EDITOR",
		DepartmentCode:  "OPS",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, models.UserTypeStaff, user.UserType)
	require.NotNil(t, user.Role)
	assert.Equal(t, "EDITOR", user.Role.RoleCode)
	require.NotNil(t, user.Department)
	assert.Equal(t, "OPS", user.Department.DepartmentCode)
	assert.NotEqual(t, "Secret123!", user.PasswordHash)
	assert.True(t, user.CheckPassword("Secret123!"))
}

func TestUserService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createUser(t, "taken@example.com", "")

	base := CreateUserInput{
		Email:           "new@example.com",
		StaffID:         "S100",
		FullName:        "New User",
		Password:        "Secret123!",
		ConfirmPassword: "Secret123!",
	}

	tests := []struct {
		name   string
		mutate func(in *CreateUserInput)
		code   int
	}{
		{name: "short password", mutate: func(in *CreateUserInput) { in.Password, in.ConfirmPassword = "short", "short" }, code: apperrors.CodeInvalidParam},
		{name: "confirm mismatch", mutate: func(in *CreateUserInput) { in.ConfirmPassword = "Secret124!" }, code: apperrors.CodeInvalidParam},
		{name: "missing name", mutate: func(in *CreateUserInput) { in.FullName = "" }, code: apperrors.CodeInvalidParam},
		{name: "unknown role", mutate: func(in *CreateUserInput) { in.RoleCode = "NOPE" }, code: apperrors.CodeNotFound},
		{name: "unknown department", mutate: func(in *CreateUserInput) { in.DepartmentCode = "NOPE" }, code: apperrors.CodeNotFound},
		{name: "duplicate email", mutate: func(in *CreateUserInput) { in.Email = "TAKEN@example.com" }, code: apperrors.CodeConflict},
		{name: "duplicate staff id", mutate: func(in *CreateUserInput) { in.StaffID = "taken" }, code: apperrors.CodeConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := env.users.Create(ctx, 0, in)
			assert.True(t, apperrors.IsCode(err, tt.code), "got %v", err)
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "login@example.com", "")

	got, err := env.users.Authenticate(ctx, "LOGIN@example.com", "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotNil(t, got.LastLoginAt)

	_, err = env.users.Authenticate(ctx, "login@example.com", "wrong-password")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = env.users.Authenticate(ctx, "nobody@example.com", "Secret123!")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))

	_, err = env.users.Update(ctx, 0, user.ID, UpdateUserInput{Status: ptr(models.StatusInactive)})
	require.NoError(t, err)
	_, err = env.users.Authenticate(ctx, "login@example.com", "Secret123!")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	active, err := env.users.IsActive(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestUserService_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "pw@example.com", "")

	err := env.users.ChangePassword(ctx, user.ID, "wrong", "NewSecret1!", "NewSecret1!")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))

	err = env.users.ChangePassword(ctx, user.ID, "Secret123!", "NewSecret1!", "Mismatch1!")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))

	require.NoError(t, env.users.ChangePassword(ctx, user.ID, "Secret123!", "NewSecret1!", "NewSecret1!"))

	_, err = env.users.Authenticate(ctx, "pw@example.com", "Secret123!")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	_, err = env.users.Authenticate(ctx, "pw@example.com", "NewSecret1!")
	assert.NoError(t, err)
}

func TestUserService_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.roles.Create(ctx, 0, CreateRoleInput{RoleCode: "EDITOR", RoleName: "Editor"})
	require.NoError(t, err)
	user := env.createUser(t, "u1@example.com", "")
	other := env.createUser(t, "u2@example.com", "")

	updated, err := env.users.Update(ctx, 0, user.ID, UpdateUserInput{FullName: ptr("Renamed"), RoleCode: ptr("EDITOR")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FullName)
	require.NotNil(t, updated.Role)
	assert.Equal(t, "EDITOR", updated.Role.RoleCode)

	cleared, err := env.users.Update(ctx, 0, user.ID, UpdateUserInput{RoleCode: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.RoleID)

	_, err = env.users.Update(ctx, 0, user.ID, UpdateUserInput{Email: ptr("u2@example.com")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	_, err = env.users.Delete(ctx, other.ID, other.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))

	_, err = env.users.Delete(ctx, user.ID, other.ID)
	require.NoError(t, err)
	_, err = env.users.GetByID(ctx, other.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	// the email of a deleted account can be reused
	env.createUser(t, "u2@example.com", "")
}

func TestUserService_List(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.roles.Create(ctx, 0, CreateRoleInput{RoleCode: "EDITOR", RoleName: "Editor"})
	require.NoError(t, err)
	env.createUser(t, "alice@example.com", "EDITOR")
	env.createUser(t, "bob@example.com", "")
	env.createUser(t, "carol@example.com", "EDITOR")

	users, total, err := env.users.List(ctx, UserFilter{RoleCode: "EDITOR"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, u := range users {
		require.NotNil(t, u.Role)
		assert.Equal(t, "EDITOR", u.Role.RoleCode)
	}

	users, total, err = env.users.List(ctx, UserFilter{Email: "BOB"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "bob@example.com", users[0].Email)

	_, _, err = env.users.List(ctx, UserFilter{Status: "gone"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))
}

func TestUserService_RoleTreeForUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedCatalog(t, "hotels:read")

	tree := hotelsTree(permtree.ActionSet{Read: true})
	role, err := env.roles.Create(ctx, 0, CreateRoleInput{RoleCode: "EDITOR", RoleName: "Editor", Permissions: tree})
	require.NoError(t, err)
	user := env.createUser(t, "tree@example.com", "EDITOR")
	noRole := env.createUser(t, "plain@example.com", "")

	got, err := env.users.RoleTreeForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, tree, got)

	got, err = env.users.RoleTreeForUser(ctx, noRole.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = env.roles.Update(ctx, 0, role.ID, UpdateRoleInput{Status: ptr(models.StatusInactive)})
	require.NoError(t, err)
	got, err = env.users.RoleTreeForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDepartmentService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ops, err := env.departments.Create(ctx, 0, "OPS", "Operations")
	require.NoError(t, err)
	_, err = env.departments.Create(ctx, 0, "FIN", "Finance")
	require.NoError(t, err)

	_, err = env.departments.Create(ctx, 0, "OPS", "Duplicate")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	_, err = env.departments.Create(ctx, 0, "", "Nameless")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidParam))

	updated, err := env.departments.Update(ctx, 0, ops.ID, DepartmentInput{DepartmentName: ptr("Ops & Support")})
	require.NoError(t, err)
	assert.Equal(t, "Ops & Support", updated.DepartmentName)

	_, err = env.departments.Update(ctx, 0, ops.ID, DepartmentInput{DepartmentCode: ptr("FIN")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	list, total, err := env.departments.List(ctx, DepartmentFilter{DepartmentName: "ops"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, ops.ID, list[0].ID)

	_, err = env.departments.Delete(ctx, 0, ops.ID)
	require.NoError(t, err)
	_, err = env.departments.GetByCode(ctx, "OPS")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	common, err := env.departments.ListCommon(ctx)
	require.NoError(t, err)
	require.Len(t, common, 1)
	assert.Equal(t, "FIN", common[0].DepartmentCode)
}
