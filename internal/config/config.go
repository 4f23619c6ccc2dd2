// Package config loads service configuration from a YAML file with
// environment overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the ingestion service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Watcher  WatcherConfig  `yaml:"watcher"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig holds Redis connection settings for progress tracking.
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	DB      int    `yaml:"db"`
}

// WatcherConfig holds the S3 drop-bucket watcher settings.
type WatcherConfig struct {
	Enabled         bool   `yaml:"enabled"`
	S3Bucket        string `yaml:"s3_bucket"`
	S3Region        string `yaml:"s3_region"`
	AWSProfile      string `yaml:"aws_profile"`
	DefaultClientID string `yaml:"default_client_id"`
	IntervalMinutes int    `yaml:"interval_minutes"`
	BatchSize       int    `yaml:"batch_size"`
	Concurrency     int    `yaml:"concurrency"`
	MaxRetries      int    `yaml:"max_retries"`
}

// Interval returns the polling interval as a duration.
func (w WatcherConfig) Interval() time.Duration {
	return time.Duration(w.IntervalMinutes) * time.Minute
}

// Load reads a YAML config file and fills in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads the YAML config (defaults only when path is empty),
// then applies .env and environment overrides. Environment always wins
// so deploys can override a checked-in config file.
func LoadFromEnv(path string) (*Config, error) {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()

	var cfg *Config
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = &Config{}
		cfg.applyDefaults()
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if bucket := os.Getenv("WATCHER_S3_BUCKET"); bucket != "" {
		cfg.Watcher.S3Bucket = bucket
		cfg.Watcher.Enabled = true
	}
	if region := os.Getenv("WATCHER_S3_REGION"); region != "" {
		cfg.Watcher.S3Region = region
	}
	if profile := os.Getenv("AWS_PROFILE_OVERRIDE"); profile != "" {
		cfg.Watcher.AWSProfile = profile
	}
	if client := os.Getenv("WATCHER_DEFAULT_CLIENT_ID"); client != "" {
		cfg.Watcher.DefaultClientID = client
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Watcher.IntervalMinutes == 0 {
		c.Watcher.IntervalMinutes = 5
	}
	if c.Watcher.BatchSize == 0 {
		c.Watcher.BatchSize = 10
	}
	if c.Watcher.Concurrency == 0 {
		c.Watcher.Concurrency = 4
	}
	if c.Watcher.MaxRetries == 0 {
		c.Watcher.MaxRetries = 3
	}
	if c.Watcher.S3Region == "" {
		c.Watcher.S3Region = "us-east-1"
	}
}
