package api

import (
	"context"
	"net/http"
	"time"

	"github.com/kaleida/analytics-ingest/internal/pkg/httputil"
	"github.com/kaleida/analytics-ingest/internal/progress"
	"github.com/kaleida/analytics-ingest/internal/service/imports"
	"github.com/kaleida/analytics-ingest/internal/watcher"
)

// ProgressReader serves job progress lookups. Implemented by the Redis
// tracker in internal/progress.
type ProgressReader interface {
	Get(ctx context.Context, jobID string) (*progress.JobProgress, error)
}

// WatcherControl is the slice of the drop-bucket watcher the API needs.
type WatcherControl interface {
	IsRunning() bool
	ManualTrigger()
	Status(ctx context.Context) (*watcher.Status, error)
}

// Handlers holds the API's service dependencies. progress and watch may
// be nil when those subsystems are disabled; their endpoints then report
// unavailable instead of failing startup.
type Handlers struct {
	imports  *imports.Service
	progress ProgressReader
	watch    WatcherControl

	startedAt time.Time
}

// NewHandlers wires the API handler set.
func NewHandlers(svc *imports.Service, pr ProgressReader, wc WatcherControl) *Handlers {
	return &Handlers{
		imports:   svc,
		progress:  pr,
		watch:     wc,
		startedAt: time.Now().UTC(),
	}
}

// HealthCheck reports liveness and uptime.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	})
}
