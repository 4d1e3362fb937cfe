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
	"github.com/ridloal/agri-traceability/internal/platform/cache"
	"github.com/ridloal/agri-traceability/internal/platform/config"
	"github.com/ridloal/agri-traceability/internal/platform/database"
	"github.com/ridloal/agri-traceability/internal/platform/logger"
	"github.com/ridloal/agri-traceability/internal/platform/metrics"
	"github.com/ridloal/agri-traceability/internal/platform/shutdown"
	productAPI "github.com/ridloal/agri-traceability/internal/product/api"
	productRepo "github.com/ridloal/agri-traceability/internal/product/repository"
	productService "github.com/ridloal/agri-traceability/internal/product/service"
)

// openStore returns the configured product store and a function that
// releases it.
func openStore(ctx context.Context, storeCfg config.StoreConfig, dbCfg config.DBConfig) (productRepo.ProductRepository, func() error, error) {
	switch storeCfg.Driver {
	case "postgres":
		db, err := database.Connect(dbCfg.Driver, dbCfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := database.ApplySchema(ctx, db, productRepo.Schema...); err != nil {
			db.Close()
			return nil, nil, err
		}
		return productRepo.NewPostgresProductRepository(db), db.Close, nil

	case "sqlite":
		gdb, err := database.OpenSQLite(storeCfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, err
		}
		repo, err := productRepo.NewSQLiteProductRepository(gdb)
		if err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return repo, sqlDB.Close, nil

	case "memory":
		logger.Warn("Using in-memory product store; data is lost on restart")
		return productRepo.NewMemoryProductRepository(), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unsupported STORE_DRIVER %q", storeCfg.Driver)
}

func main() {
	config.LoadDotEnv()

	// Load Config
	dbCfg := config.LoadProductDBConfig()
	storeCfg := config.LoadStoreConfig()
	serverCfg := config.LoadServerConfig("8082")
	policyCfg := config.LoadPolicyConfig()
	authCfg := config.LoadAuthConfig()
	cacheCfg := config.LoadCacheConfig()
	auditCfg := config.LoadAuditConfig()
	userServiceURL := config.GetEnv("USER_SERVICE_URL", "http://localhost:8081")

	logger.Info("Starting Product Service...")
	ctx := context.Background()

	// Setup Store
	repo, closeStore, err := openStore(ctx, storeCfg, dbCfg)
	if err != nil {
		logger.Error("Failed to open product store", err, logger.Fields{"driver": storeCfg.Driver})
		os.Exit(1)
	}

	// Setup Dependencies
	reg := metrics.NewRegistry()
	opts := []productService.Option{productService.WithMetrics(reg)}

	var redisClose func() error
	var qrCache *cache.RedisCache
	if cacheCfg.RedisAddr != "" {
		client := cache.NewRedisClient(cacheCfg.RedisAddr)
		qrCache = cache.NewRedisCache(client, cacheCfg.Prefix+"qr:", cacheCfg.TTL)
		if err := qrCache.Ping(ctx); err != nil {
			// Cache opsional: service tetap jalan tanpa Redis.
			logger.Warn("Redis unavailable, QR cache disabled", logger.Fields{"addr": cacheCfg.RedisAddr, "error": err})
			client.Close()
			qrCache = nil
		} else {
			opts = append(opts, productService.WithCache(qrCache))
			redisClose = client.Close
			logger.Info("QR lookup cache enabled at " + cacheCfg.RedisAddr)
		}
	}

	directory := productService.NewUserServiceClient(userServiceURL)
	policy := productService.Policy{
		TotalValidators:          policyCfg.TotalValidators,
		AllowPendingDistribution: policyCfg.AllowPendingDistribution,
		QRCodeMaxAttempts:        policyCfg.QRCodeMaxAttempts,
	}
	prodService, err := productService.NewProductService(repo, directory, policy, opts...)
	if err != nil {
		logger.Error("Invalid product policy", err, nil)
		os.Exit(1)
	}

	auditor, err := productService.NewConsensusAuditor(repo, reg, auditCfg.CronSpec)
	if err != nil {
		logger.Error("Failed to set up consensus audit", err, nil)
		os.Exit(1)
	}
	auditor.Start()

	verifier := identity.NewVerifier(authCfg.JWTSecret)
	productHandler := productAPI.NewProductHandler(prodService, verifier)

	// Setup Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinLogger(identity.SubjectKey))
	router.RedirectTrailingSlash = false

	router.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok", "store": storeCfg.Driver}
		if qrCache != nil {
			body["qr_cache"] = qrCache.Snapshot()
		}
		c.JSON(http.StatusOK, body)
	})
	router.GET("/metrics", reg.Handler())

	apiV1 := router.Group("/api/v1")
	productHandler.RegisterRoutes(apiV1)

	server := &http.Server{
		Addr:    serverCfg.Port,
		Handler: router,
	}
	go func() {
		logger.Info("Product Service running on port " + serverCfg.Port)
		logger.Info(fmt.Sprintf("Policy: total_validators=%d allow_pending_distribution=%t", policy.TotalValidators, policy.AllowPendingDistribution))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Failed to run Product Service server", err, nil)
			os.Exit(1)
		}
	}()

	// gfshutdown menjalankan tiap operation paralel; store dan Redis baru
	// ditutup setelah server drain dan job audit yang sedang jalan selesai.
	wait := gfshutdown.GracefulShutdown(ctx, serverCfg.ShutdownTimeout, map[string]gfshutdown.Operation{
		"product-service": shutdown.Sequential(
			shutdown.Step{Name: "http-server", Run: server.Shutdown},
			shutdown.Step{Name: "audit-scheduler", Run: func(ctx context.Context) error {
				select {
				case <-auditor.Stop().Done():
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}},
			shutdown.Close("store", closeStore),
			shutdown.Close("redis", redisClose),
		),
	})

	exitCode := <-wait
	logger.Info(fmt.Sprintf("Product Service exited with code %d", exitCode))
	os.Exit(exitCode)
}
