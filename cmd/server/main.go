package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kaleida/analytics-ingest/internal/api"
	"github.com/kaleida/analytics-ingest/internal/config"
	"github.com/kaleida/analytics-ingest/internal/pkg/logger"
	"github.com/kaleida/analytics-ingest/internal/progress"
	"github.com/kaleida/analytics-ingest/internal/repository/postgres"
	"github.com/kaleida/analytics-ingest/internal/service/imports"
	"github.com/kaleida/analytics-ingest/internal/watcher"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is already in use: %v", addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("Starting analytics ingestion server...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	addr := cfg.Server.Addr()
	if err := checkPortAvailable(addr); err != nil {
		log.Fatalf("Pre-flight check failed: %v", err)
	}

	// Database connection
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database at %s: %v", logger.RedactDSN(cfg.Database.URL), err)
	}
	log.Printf("Connected to database at %s", logger.RedactDSN(cfg.Database.URL))

	// Progress tracking is optional. Without Redis the import endpoints
	// still work, but GET /api/imports/{jobID}/progress returns 503.
	var tracker *progress.Tracker
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("[server] redis unavailable at %s, progress tracking disabled: %v", cfg.Redis.Addr, err)
		} else {
			tracker = progress.NewTracker(rdb)
			log.Printf("Progress tracking enabled (redis %s)", cfg.Redis.Addr)
		}
	}

	postRepo := postgres.NewPostRepo(db)
	metricRepo := postgres.NewMetricRepo(db)

	var sink imports.ProgressSink
	if tracker != nil {
		sink = tracker
	}
	importSvc := imports.NewService(postRepo, metricRepo, sink)

	// The S3 drop-bucket watcher normally runs in the worker binary;
	// enabling it here gives a single-process deployment.
	var watch *watcher.Watcher
	if cfg.Watcher.Enabled {
		queue := postgres.NewImportLogRepo(db)
		watch, err = watcher.New(queue, importSvc, watcher.Config{
			Region:          cfg.Watcher.S3Region,
			AWSProfile:      cfg.Watcher.AWSProfile,
			Bucket:          cfg.Watcher.S3Bucket,
			DefaultClientID: cfg.Watcher.DefaultClientID,
			Interval:        cfg.Watcher.Interval(),
			BatchSize:       cfg.Watcher.BatchSize,
			Concurrency:     cfg.Watcher.Concurrency,
			MaxRetries:      cfg.Watcher.MaxRetries,
		})
		if err != nil {
			log.Fatalf("Failed to initialize watcher: %v", err)
		}
		watch.Start()
		log.Printf("Watcher started on bucket %s (every %s)", cfg.Watcher.S3Bucket, cfg.Watcher.Interval())
	}

	var pr api.ProgressReader
	if tracker != nil {
		pr = tracker
	}
	var wc api.WatcherControl
	if watch != nil {
		wc = watch
	}
	handlers := api.NewHandlers(importSvc, pr, wc)
	server := api.NewServer(handlers)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized — server is ready")

	<-done
	log.Println("Shutting down...")

	if watch != nil {
		watch.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
