package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/pharmacy/backend/internal/application/catalog"
	partnerapp "github.com/pharmacy/backend/internal/application/partner"
	appshared "github.com/pharmacy/backend/internal/application/shared"
	tradeapp "github.com/pharmacy/backend/internal/application/trade"
	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/infrastructure/cache"
	"github.com/pharmacy/backend/internal/infrastructure/config"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"github.com/pharmacy/backend/internal/infrastructure/persistence"
	"github.com/pharmacy/backend/internal/interfaces/http/handler"
	"github.com/pharmacy/backend/internal/interfaces/http/middleware"
	"github.com/pharmacy/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting pharmacy backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
	)

	// Document store
	store, db, err := openStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to open document store", zap.Error(err))
	}
	checks := map[string]handler.HealthCheck{}
	if db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
		checks["database"] = func(context.Context) error { return db.Ping() }
	}

	// Idempotency store guarding write endpoints
	var idem *middleware.Idempotency
	if cfg.Idempotency.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		idemStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, log).CreateStore(ctx, cfg.Idempotency.RequireRedis)
		cancel()
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer func() {
			if err := idemStore.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()
		idem = middleware.NewIdempotency(idemStore, cfg.Idempotency.TTL, log)
	}

	// Application services
	scope := appshared.NewRetryingTransactionScope(store, appshared.RetryConfig{
		MaxAttempts: cfg.Transaction.MaxAttempts,
		BaseBackoff: cfg.Transaction.BaseBackoff,
		MaxBackoff:  cfg.Transaction.MaxBackoff,
	}, log)
	coordinator := tradeapp.NewCoordinator(scope, nil, log, tradeapp.Options{
		ExcludeExpiredBatches: cfg.Transaction.ExcludeExpiredBatches,
	})
	medicineService := catalogapp.NewMedicineService(scope, log)
	taxProfileService := catalogapp.NewTaxProfileService(scope, log)
	supplierService := partnerapp.NewSupplierService(scope, log)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Apply middleware stack in order:
	// 1. Recovery - Catch panics
	// 2. Logger - Assign the request ID and log requests
	// 3. Tracing - Server span per request
	// 4. BodyLimit - Limit request body size
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, checks)
	engine.GET("/health", systemHandler.Health)

	r := router.NewRouter(engine)
	r.RegisterPublic(systemHandler).
		Register(handler.NewTradeHandler(coordinator, idem)).
		Register(handler.NewMedicineHandler(medicineService)).
		Register(handler.NewTaxProfileHandler(taxProfileService)).
		Register(handler.NewSupplierHandler(supplierService, coordinator, idem))
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// openStore returns the configured document store. The database is nil for the
// in-memory store. SQLite schemas are created on startup; postgres schemas are
// owned by cmd/migrate.
func openStore(cfg *config.Config, log *zap.Logger) (docstore.Store, *persistence.Database, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("Using the in-memory document store; data is lost on exit")
		return persistence.NewMemoryStore(), nil, nil
	}

	db, err := persistence.NewDatabase(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		return nil, nil, err
	}
	store := persistence.NewDocumentStore(db.DB, log)
	if cfg.Database.Driver == config.DriverSQLite {
		if err := store.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	log.Info("Database connected successfully")
	return store, db, nil
}
