package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripadmin/internal/database"
	"tripadmin/internal/router"
	"tripadmin/internal/services"
	"tripadmin/pkg/config"
	"tripadmin/pkg/jwt"
	"tripadmin/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting tripadmin server...")

	if err := database.Initialize(cfg); err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
		if err := database.CloseTokenStore(); err != nil {
			appLogger.Error("Failed to close Redis:", err)
		}
	}()

	if err := database.Migrate(); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), time.Minute)
	err = seedData(seedCtx, database.GetDB(), cfg)
	cancelSeed()
	if err != nil {
		appLogger.Fatalf("Failed to initialize seed data: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)

	roleService := services.NewRoleService(database.GetDB(), services.NewPermissionService(database.GetDB()))
	linkAudit := services.NewLinkAuditScheduler(roleService, cfg.Audit.Cron)
	if err := linkAudit.Start(); err != nil {
		// the API works without the audit
		appLogger.Errorf("Failed to start link audit scheduler: %v", err)
	}
	defer linkAudit.Stop()

	r := router.SetupRouter(router.Dependencies{
		DB:         database.GetDB(),
		JWTManager: jwt.GetJWTManager(),
		Tokens:     database.GetTokenStore(),
		CORS:       cfg.CORS,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
