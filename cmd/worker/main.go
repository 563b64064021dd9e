package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tubegate/tubegate/internal/config"
	"github.com/tubegate/tubegate/internal/database"
	"github.com/tubegate/tubegate/internal/filecache"
	"github.com/tubegate/tubegate/internal/logging"
	"github.com/tubegate/tubegate/internal/queue"
	"github.com/tubegate/tubegate/internal/storage"
	"github.com/tubegate/tubegate/internal/uploader"
)

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

	hostname, _ := os.Hostname()
	logger = logger.WithWorkerID(hostname)

	// The worker's only job is draining upload tasks into durable
	// storage; without storage and a broker there is nothing to run
	if !cfg.Storage.Enabled {
		logger.Fatal("Worker requires storage to be enabled")
	}
	if !cfg.Queue.Enabled {
		logger.Fatal("Worker requires the queue to be enabled")
	}

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// Initialize object storage and the durable file cache over it
	blobs, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize object storage: %v", err)
	}

	files := filecache.NewService(blobs, repo, cfg.Storage.URLExpiry, logger)

	// Initialize queue
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	// The worker consumes tasks, it never publishes them
	populator := uploader.NewService(cfg.Uploader, files, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down worker gracefully...")
		cancel()
	}()

	logger.Info("Worker started, waiting for upload tasks...")
	if err := q.ConsumeUploadTasks(ctx, populator.Process); err != nil {
		logger.Fatalf("Failed to consume upload tasks: %v", err)
	}

	<-ctx.Done()
	logger.Info("Worker stopped")
}
