package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sjperalta/fintera-ledger/internal/config"
	"github.com/sjperalta/fintera-ledger/internal/database"
	"github.com/sjperalta/fintera-ledger/internal/handlers"
	"github.com/sjperalta/fintera-ledger/internal/jobs"
	"github.com/sjperalta/fintera-ledger/internal/middleware"
	"github.com/sjperalta/fintera-ledger/internal/repository"
	"github.com/sjperalta/fintera-ledger/internal/repository/memory"
	"github.com/sjperalta/fintera-ledger/internal/services"
	"github.com/sjperalta/fintera-ledger/pkg/logger"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment, cfg.LogLevel)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize repositories
	repos, db := openStore(cfg)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, worker, services.OptionsFromConfig(cfg))

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, cfg)

	// Initialize handlers
	h := handlers.NewHandlers(svcs)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "store", cfg.Store)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Pending balance resyncs finish before the database goes away
	worker.Shutdown()
	logger.Info("Background worker stopped")

	if db != nil {
		if err := database.Close(db); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

// openStore returns repositories for the configured backend. The database
// handle is nil for the memory store.
func openStore(cfg *config.Config) (*repository.Repositories, *gorm.DB) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("Using in-memory store, data is lost on restart")
		return memory.NewStore().Repositories(), nil
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
		logger.Info("Database schema migrated")
	}
	return repository.NewRepositories(db), db
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	handlers.Register(router.Group("/api/v1"), h)

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, cfg *config.Config) {
	if cfg.AutoPostIntervalMinutes <= 0 {
		logger.Info("Auto-posting disabled")
		return
	}

	// Post due installments of auto-pay loans
	interval := time.Duration(cfg.AutoPostIntervalMinutes) * time.Minute
	worker.ScheduleEveryImmediate("auto_post", interval, func(ctx context.Context) error {
		logger.Info("[Job] Posting due installments...")
		return svcs.AutoPost.Run(ctx)
	})

	logger.Info("Scheduled recurring jobs", "auto_post_interval", interval)
}
