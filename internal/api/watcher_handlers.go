package api

import (
	"net/http"

	"github.com/kaleida/analytics-ingest/internal/pkg/httputil"
)

// HandleWatcherStatus reports watcher health and import-queue counts.
func (h *Handlers) HandleWatcherStatus(w http.ResponseWriter, r *http.Request) {
	if h.watch == nil {
		httputil.Unavailable(w, "watcher is not enabled")
		return
	}
	st, err := h.watch.Status(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, st)
}

// HandleWatcherTrigger starts a watcher cycle immediately unless one is
// already running.
func (h *Handlers) HandleWatcherTrigger(w http.ResponseWriter, r *http.Request) {
	if h.watch == nil {
		httputil.Unavailable(w, "watcher is not enabled")
		return
	}
	if h.watch.IsRunning() {
		httputil.OK(w, map[string]string{"status": "already_running"})
		return
	}
	h.watch.ManualTrigger()
	httputil.OK(w, map[string]string{"status": "triggered"})
}
