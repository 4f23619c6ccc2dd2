package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kaleida/analytics-ingest/internal/config"
	"github.com/kaleida/analytics-ingest/internal/pkg/logger"
	"github.com/kaleida/analytics-ingest/internal/progress"
	"github.com/kaleida/analytics-ingest/internal/repository/postgres"
	"github.com/kaleida/analytics-ingest/internal/service/imports"
	"github.com/kaleida/analytics-ingest/internal/watcher"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("Starting analytics ingest worker...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.Watcher.Enabled {
		log.Fatal("Watcher is disabled; set WATCHER_S3_BUCKET or watcher.enabled in config")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Printf("Connected to database at %s", logger.RedactDSN(cfg.Database.URL))

	var sink imports.ProgressSink
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("[worker] redis unavailable at %s, progress tracking disabled: %v", cfg.Redis.Addr, err)
		} else {
			sink = progress.NewTracker(rdb)
			log.Printf("Progress tracking enabled (redis %s)", cfg.Redis.Addr)
		}
	}

	importSvc := imports.NewService(postgres.NewPostRepo(db), postgres.NewMetricRepo(db), sink)
	queue := postgres.NewImportLogRepo(db)

	watch, err := watcher.New(queue, importSvc, watcher.Config{
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
	log.Printf("Watching bucket %s every %s (batch %d, concurrency %d)",
		cfg.Watcher.S3Bucket, cfg.Watcher.Interval(), cfg.Watcher.BatchSize, cfg.Watcher.Concurrency)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	watch.Stop()
	log.Println("Worker stopped")
}
