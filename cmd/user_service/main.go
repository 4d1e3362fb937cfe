package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"

	"github.com/ridloal/agri-traceability/internal/identity"
	"github.com/ridloal/agri-traceability/internal/platform/config"
	"github.com/ridloal/agri-traceability/internal/platform/database"
	"github.com/ridloal/agri-traceability/internal/platform/logger"
	"github.com/ridloal/agri-traceability/internal/platform/shutdown"
	userAPI "github.com/ridloal/agri-traceability/internal/user/api"
	userRepo "github.com/ridloal/agri-traceability/internal/user/repository"
	userService "github.com/ridloal/agri-traceability/internal/user/service"
)

func main() {
	config.LoadDotEnv()

	// Load Config
	dbCfg := config.LoadUserDBConfig()
	storeCfg := config.LoadStoreConfig()
	serverCfg := config.LoadServerConfig("8081")
	authCfg := config.LoadAuthConfig()

	logger.Info("Starting User Service...")
	ctx := context.Background()

	// Setup Store
	var repo userRepo.UserRepository
	closeStore := func() error { return nil }
	if storeCfg.Driver == "memory" {
		logger.Warn("Using in-memory user store; data is lost on restart")
		repo = userRepo.NewMemoryUserRepository()
	} else {
		db, err := database.Connect(dbCfg.Driver, dbCfg.DSN)
		if err != nil {
			logger.Error("Failed to connect to database for User Service", err, nil)
			os.Exit(1)
		}
		if err := database.ApplySchema(ctx, db, userRepo.Schema...); err != nil {
			logger.Error("Failed to apply user schema", err, nil)
			db.Close()
			os.Exit(1)
		}
		repo = userRepo.NewPostgresUserRepository(db)
		closeStore = db.Close
	}

	// Setup Dependencies
	usrService := userService.NewUserService(repo)
	userHandler := userAPI.NewUserHandler(usrService, identity.NewVerifier(authCfg.JWTSecret))

	// Setup Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinLogger(identity.SubjectKey))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	apiV1 := router.Group("/api/v1")
	userHandler.RegisterRoutes(apiV1)

	server := &http.Server{
		Addr:    serverCfg.Port,
		Handler: router,
	}
	go func() {
		logger.Info("User Service running on port " + serverCfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to run User Service server", err, nil)
			os.Exit(1)
		}
	}()

	// Store ditutup setelah server selesai drain.
	wait := gfshutdown.GracefulShutdown(ctx, serverCfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"user-service": shutdown.Sequential(
			shutdown.Step{Name: "http-server", Run: server.Shutdown},
			shutdown.Close("store", closeStore),
		),
	})

	exitCode := <-wait
	logger.Info(fmt.Sprintf("User Service exited with code %d", exitCode))
	os.Exit(exitCode)
}
