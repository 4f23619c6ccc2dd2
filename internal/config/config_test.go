package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  host: 0.0.0.0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("MaxOpenConns = %d", cfg.Database.MaxOpenConns)
	}
	if cfg.Watcher.Interval() != 5*time.Minute {
		t.Errorf("watcher interval = %v", cfg.Watcher.Interval())
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  host: api.internal
  port: 9000
database:
  url: postgres://ingest:pw@db/analytics
redis:
  enabled: true
  addr: redis:6379
watcher:
  enabled: true
  s3_bucket: acme-drop
  s3_region: eu-west-1
  default_client_id: acme
  interval_minutes: 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Database.URL != "postgres://ingest:pw@db/analytics" {
		t.Errorf("database url = %q", cfg.Database.URL)
	}
	if !cfg.Watcher.Enabled || cfg.Watcher.S3Bucket != "acme-drop" {
		t.Errorf("watcher = %+v", cfg.Watcher)
	}
	if cfg.Watcher.Interval() != 2*time.Minute {
		t.Errorf("interval = %v", cfg.Watcher.Interval())
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-wins@db/analytics")
	t.Setenv("WATCHER_S3_BUCKET", "env-drop")

	path := writeConfig(t, "database:\n  url: postgres://file@db/analytics\n")
	cfg, err := LoadFromEnv(path)
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Database.URL != "postgres://env-wins@db/analytics" {
		t.Errorf("env override lost: %q", cfg.Database.URL)
	}
	if !cfg.Watcher.Enabled || cfg.Watcher.S3Bucket != "env-drop" {
		t.Errorf("setting the bucket env should enable the watcher: %+v", cfg.Watcher)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadFromEnvWithoutFile(t *testing.T) {
	cfg, err := LoadFromEnv("")
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("defaults not applied: %+v", cfg.Server)
	}
}
