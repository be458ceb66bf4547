package main

import (
	"context"
	"fmt"

	"tripadmin/internal/models"
	"tripadmin/internal/permtree"
	"tripadmin/internal/services"
	"tripadmin/pkg/config"
	apperrors "tripadmin/pkg/errors"
	"tripadmin/pkg/logger"

	"gorm.io/gorm"
)

const adminDepartmentCode = "ADMIN"

// seedMenu one menu of the master catalog. Every action becomes a catalog entry and a grant of SYS_ADMIN.
type seedMenu struct {
	Label   string
	Actions []string
}

// seedGroup menus shown together in the portal navigation
type seedGroup struct {
	Label string
	Menus []seedMenu
}

var (
	crudActions    = permtree.CanonicalActions
	bookingActions = append(append([]string{}, permtree.CanonicalActions...), models.ActionApprove, models.ActionReject)
)

var seedCatalog = []seedGroup{
	{
		Label: "Administration",
		Menus: []seedMenu{
			{Label: "Users", Actions: crudActions},
			{Label: "Roles", Actions: crudActions},
			{Label: "Permissions", Actions: crudActions},
			{Label: "Departments", Actions: crudActions},
		},
	},
	{
		Label: "Inventory",
		Menus: []seedMenu{
			{Label: "Hotels", Actions: crudActions},
			{Label: "Flights", Actions: crudActions},
		},
	},
	{
		Label: "Bookings",
		Menus: []seedMenu{
			{Label: "Hotel Bookings", Actions: bookingActions},
			{Label: "Flight Bookings", Actions: bookingActions},
		},
	},
}

// seedData creates the bootstrap department, catalog, SYS_ADMIN role and administrator. Running
// it again only fills in what is missing and resyncs SYS_ADMIN with the catalog.
func seedData(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	permissionService := services.NewPermissionService(db)
	roleService := services.NewRoleService(db, permissionService)
	departmentService := services.NewDepartmentService(db)
	userService := services.NewUserService(db, roleService, departmentService)

	if err := seedDepartment(ctx, departmentService); err != nil {
		return fmt.Errorf("seed department: %w", err)
	}
	if err := seedPermissions(ctx, permissionService); err != nil {
		return fmt.Errorf("seed permissions: %w", err)
	}
	if err := seedAdminRole(ctx, roleService); err != nil {
		return fmt.Errorf("seed admin role: %w", err)
	}
	if err := seedAdminUser(ctx, userService, cfg.Seed); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}

func seedDepartment(ctx context.Context, departments *services.DepartmentService) error {
	_, err := departments.GetByCode(ctx, adminDepartmentCode)
	if err == nil {
		return nil
	}
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		return err
	}
	_, err = departments.Create(ctx, 0, adminDepartmentCode, "Administration")
	return err
}

func seedPermissions(ctx context.Context, permissions *services.PermissionService) error {
	created := 0
	for _, group := range seedCatalog {
		for _, menu := range group.Menus {
			module := permtree.ModuleName(menu.Label)
			for _, action := range menu.Actions {
				_, err := permissions.GetByName(ctx, permtree.PermissionName(module, action))
				if err == nil {
					continue
				}
				if !apperrors.IsCode(err, apperrors.CodeNotFound) {
					return err
				}
				if _, err := permissions.Create(ctx, 0, services.CreatePermissionInput{Module: module, Action: action}); err != nil {
					return err
				}
				created++
			}
		}
	}
	logger.GetLogger().Infof("Permission catalog seeded, %d entries created", created)
	return nil
}

// adminTree grants every seeded action
func adminTree() permtree.Tree {
	tree := make(permtree.Tree, 0, len(seedCatalog))
	for _, group := range seedCatalog {
		node := permtree.MenuNode{MenuName: group.Label}
		for _, menu := range group.Menus {
			node.SubMenus = append(node.SubMenus, permtree.MenuNode{
				MenuName: menu.Label,
				Actions:  actionSet(menu.Actions),
			})
		}
		tree = append(tree, node)
	}
	return tree
}

func actionSet(actions []string) *permtree.ActionSet {
	set := &permtree.ActionSet{}
	for _, action := range actions {
		switch action {
		case permtree.ActionCreate:
			set.Create = true
		case permtree.ActionRead:
			set.Read = true
		case permtree.ActionEdit:
			set.Edit = true
		case permtree.ActionDelete:
			set.Delete = true
		case permtree.ActionList:
			set.List = true
		default:
			if set.Extra == nil {
				set.Extra = make(map[string]bool)
			}
			set.Extra[action] = true
		}
	}
	return set
}

func seedAdminRole(ctx context.Context, roles *services.RoleService) error {
	tree := adminTree()

	role, err := roles.GetByCode(ctx, models.RoleCodeSysAdmin)
	if apperrors.IsCode(err, apperrors.CodeNotFound) {
		_, err = roles.Create(ctx, 0, services.CreateRoleInput{
			RoleCode:    models.RoleCodeSysAdmin,
			RoleName:    "System Administrator",
			Permissions: tree,
		})
		return err
	}
	if err != nil {
		return err
	}

	_, err = roles.Update(ctx, 0, role.ID, services.UpdateRoleInput{Permissions: &tree})
	return err
}

func seedAdminUser(ctx context.Context, users *services.UserService, seed config.SeedConfig) error {
	_, err := users.GetByEmail(ctx, seed.AdminEmail)
	if err == nil {
		return nil
	}
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		return err
	}

	admin, err := users.Create(ctx, 0, services.CreateUserInput{
		Email:           seed.AdminEmail,
		StaffID:         "ADMIN-0001",
		FullName:        "System Administrator",
		Password:        seed.AdminPassword,
		ConfirmPassword: seed.AdminPassword,
		UserType:        models.UserTypeAdmin,
		RoleCode:        models.RoleCodeSysAdmin,
		DepartmentCode:  adminDepartmentCode,
	})
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("email", admin.Email).Warn("Default administrator created, change its password")
	return nil
}
