package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tubegate/tubegate/internal/analytics"
	"github.com/tubegate/tubegate/internal/auth"
	"github.com/tubegate/tubegate/internal/cache"
	"github.com/tubegate/tubegate/internal/config"
	"github.com/tubegate/tubegate/internal/database"
	"github.com/tubegate/tubegate/internal/extractor"
	"github.com/tubegate/tubegate/internal/filecache"
	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/maintenance"
	"github.com/tubegate/tubegate/internal/metrics"
	"github.com/tubegate/tubegate/internal/middleware"
	"github.com/tubegate/tubegate/internal/queue"
	"github.com/tubegate/tubegate/internal/resolver"
	"github.com/tubegate/tubegate/internal/storage"
	"github.com/tubegate/tubegate/internal/tracing"
	"github.com/tubegate/tubegate/internal/uploader"
)

const version = "1.0.0"

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize tracing
	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			logger.ErrorWithErr("Failed to initialize tracer", err)
		} else {
			defer closer.Close()
		}
	}

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	repo := database.NewRepository(db)

	// Initialize Redis metadata cache
	redisCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	// Initialize durable file cache when object storage is configured
	var files *filecache.Service
	if cfg.Storage.Enabled {
		blobs, err := storage.New(cfg.Storage)
		if err != nil {
			logger.Fatalf("Failed to initialize object storage: %v", err)
		}
		files = filecache.NewService(blobs, repo, cfg.Storage.URLExpiry, logger)
	} else {
		logger.Warn("Object storage disabled, durable cache tier is off")
	}

	// Initialize queue transport when enabled
	var q *queue.Queue
	if cfg.Queue.Enabled {
		q, err = queue.New(cfg.Queue)
		if err != nil {
			logger.Fatalf("Failed to connect to queue: %v", err)
		}
		defer q.Close()
	}

	// Background population service. Interface fields stay nil when the
	// backing component is absent so the uploader degrades cleanly.
	var uploadFiles uploader.FileStore
	if files != nil {
		uploadFiles = files
	}
	var publisher uploader.Publisher
	if q != nil {
		publisher = q
	}
	populator := uploader.NewService(cfg.Uploader, uploadFiles, publisher, logger)
	logger.Infof("Uploader running in %s mode", populator.Mode())

	// Key store: Postgres primary with in-memory failover, seeded with
	// the bootstrap keys on both tiers
	keyStore := auth.NewFailoverStore(auth.NewPostgresStore(repo), auth.NewMemoryStore(), logger)
	validator := auth.NewValidator(keyStore, logger)

	seeds := auth.BootstrapKeys(cfg.Admin, cfg.Quota, time.Now())
	if err := auth.SeedStore(ctx, keyStore, seeds); err != nil {
		logger.ErrorWithErr("Failed to seed bootstrap keys", err)
	} else if len(seeds) > 0 {
		logger.Infof("Seeded %d bootstrap keys", len(seeds))
	}

	// Resolution pipeline
	upstream := extractor.NewClient(cfg.Upstream, logger)
	var durable resolver.FileCache
	if files != nil {
		durable = files
	}
	mediaResolver := resolver.New(durable, redisCache, repo, upstream, populator, cfg.Redis.MetadataTTL, logger)

	// Usage analytics
	statsService := analytics.NewService(repo)

	// Maintenance loop
	var pruner maintenance.StalePruner
	if files != nil {
		pruner = files
	}
	maint := maintenance.NewScheduler(validator, repo, redisCache, pruner,
		cfg.Maintenance.SweepInterval, cfg.Maintenance.LogRetentionDays, logger)
	maint.Start()
	defer maint.Stop()

	// Rate limiter
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go rateLimiter.Cleanup(ctx)

	api := &API{
		resolver:  mediaResolver,
		keys:      keyStore,
		stats:     statsService,
		maint:     maint,
		db:        db,
		cache:     redisCache,
		queue:     queueInfo(q),
		storageOn: files != nil,
		quota: quotaDefaults{
			DailyLimit: cfg.Quota.DefaultDailyLimit,
			ExpiryDays: cfg.Quota.DefaultExpiryDays,
		},
		log: logger,
	}

	router := setupRouter(api, validator, rateLimiter, repo, logger)

	// Metrics server on its own port
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port, logger)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server failed", err)
			}
		}()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop background workers before draining connections
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.ErrorWithErr("Metrics server shutdown failed", err)
		}
	}

	logger.Info("Server stopped")
}

// queueInfo avoids handing the API a non-nil interface wrapping a nil
// queue pointer
func queueInfo(q *queue.Queue) QueueInfo {
	if q == nil {
		return nil
	}
	return q
}
