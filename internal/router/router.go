package router

import (
	"time"

	"tripadmin/internal/handlers"
	"tripadmin/internal/middleware"
	"tripadmin/internal/models"
	"tripadmin/internal/permtree"
	"tripadmin/internal/services"
	"tripadmin/pkg/config"
	"tripadmin/pkg/jwt"
	"tripadmin/pkg/response"
	"tripadmin/pkg/tokenstore"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies what the HTTP surface is built from
type Dependencies struct {
	DB         *gorm.DB
	JWTManager *jwt.JWTManager
	Tokens     tokenstore.Store
	CORS       config.CORSConfig
}

// SetupRouter builds the engine with every route under /api/v1
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS(deps.CORS))

	registerRoutes(router, deps)
	return router
}

// perm names the permission a route requires
func perm(module, action string) string {
	return permtree.PermissionName(module, action)
}

func registerRoutes(router *gin.Engine, deps Dependencies) {
	permissionService := services.NewPermissionService(deps.DB)
	roleService := services.NewRoleService(deps.DB, permissionService)
	departmentService := services.NewDepartmentService(deps.DB)
	userService := services.NewUserService(deps.DB, roleService, departmentService)

	auth := middleware.NewAuthMiddleware(userService, permissionService, deps.JWTManager, deps.Tokens)

	api := router.Group("/api/v1")
	{
		api.GET("/health", healthCheck)

		authHandler := handlers.NewAuthHandler(userService, permissionService, deps.JWTManager, deps.Tokens)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", auth.RequireLogin(), authHandler.Logout)
			authGroup.GET("/me", auth.RequireLogin(), authHandler.Me)
		}

		permissionHandler := handlers.NewPermissionHandler(permissionService)
		permissions := api.Group("/permissions")
		{
			permissions.POST("", with(auth.Protected(perm(models.ModulePermissions, permtree.ActionCreate)), permissionHandler.Create)...)
			permissions.GET("", with(auth.Protected(perm(models.ModulePermissions, permtree.ActionList)), permissionHandler.List)...)
			permissions.GET("/modules", with(auth.Protected(perm(models.ModulePermissions, permtree.ActionList)), permissionHandler.ListModules)...)
			permissions.GET("/module/:module", with(auth.Protected(perm(models.ModulePermissions, permtree.ActionList)), permissionHandler.ListByModule)...)
			permissions.GET("/:id", with(auth.Protected(perm(models.ModulePermissions, permtree.ActionRead)), permissionHandler.GetByID)...)
			permissions.PATCH("/:id", with(auth.Protected(perm(models.ModulePermissions, permtree.ActionEdit)), permissionHandler.Update)...)
			permissions.DELETE("/:id", with(auth.Protected(perm(models.ModulePermissions, permtree.ActionDelete)), permissionHandler.Delete)...)
		}

		roleHandler := handlers.NewRoleHandler(roleService)
		roles := api.Group("/roles")
		{
			roles.POST("", with(auth.Protected(perm(models.ModuleRoles, permtree.ActionCreate)), roleHandler.Create)...)
			roles.GET("", with(auth.Protected(perm(models.ModuleRoles, permtree.ActionList)), roleHandler.List)...)
			roles.GET("/common", with(auth.Protected(perm(models.ModuleRoles, permtree.ActionList)), roleHandler.ListCommon)...)
			roles.GET("/:id", with(auth.Protected(perm(models.ModuleRoles, permtree.ActionRead)), roleHandler.GetByID)...)
			roles.PATCH("/:id", with(auth.Protected(perm(models.ModuleRoles, permtree.ActionEdit)), roleHandler.Update)...)
			roles.DELETE("/:id", with(auth.Protected(perm(models.ModuleRoles, permtree.ActionDelete)), roleHandler.Delete)...)
			roles.GET("/:id/permissions", with(auth.Protected(perm(models.ModuleRoles, permtree.ActionRead)), roleHandler.GetPermissions)...)
		}

		userHandler := handlers.NewUserHandler(userService, permissionService)
		users := api.Group("/users")
		{
			// self-service, login only
			users.GET("/me/permissions", auth.RequireLogin(), userHandler.MyPermissions)
			users.GET("/me/menu", auth.RequireLogin(), userHandler.MyMenu)
			users.POST("/me/change-password", auth.RequireLogin(), userHandler.ChangePassword)

			users.POST("", with(auth.Protected(perm(models.ModuleUsers, permtree.ActionCreate)), userHandler.Create)...)
			users.GET("", with(auth.Protected(perm(models.ModuleUsers, permtree.ActionList)), userHandler.List)...)
			users.GET("/:id", with(auth.Protected(perm(models.ModuleUsers, permtree.ActionRead)), userHandler.GetByID)...)
			users.PATCH("/:id", with(auth.Protected(perm(models.ModuleUsers, permtree.ActionEdit)), userHandler.Update)...)
			users.DELETE("/:id", with(auth.Protected(perm(models.ModuleUsers, permtree.ActionDelete)), userHandler.Delete)...)
		}

		departmentHandler := handlers.NewDepartmentHandler(departmentService)
		departments := api.Group("/departments")
		{
			departments.POST("", with(auth.Protected(perm(models.ModuleDepartments, permtree.ActionCreate)), departmentHandler.Create)...)
			departments.GET("", with(auth.Protected(perm(models.ModuleDepartments, permtree.ActionList)), departmentHandler.List)...)
			departments.GET("/common", with(auth.Protected(perm(models.ModuleDepartments, permtree.ActionList)), departmentHandler.ListCommon)...)
			departments.GET("/:id", with(auth.Protected(perm(models.ModuleDepartments, permtree.ActionRead)), departmentHandler.GetByID)...)
			departments.PATCH("/:id", with(auth.Protected(perm(models.ModuleDepartments, permtree.ActionEdit)), departmentHandler.Update)...)
			departments.DELETE("/:id", with(auth.Protected(perm(models.ModuleDepartments, permtree.ActionDelete)), departmentHandler.Delete)...)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})
}

// with appends the handler to a middleware chain
func with(chain []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	return append(chain, handler)
}

func healthCheck(c *gin.Context) {
	response.Success(c, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}
