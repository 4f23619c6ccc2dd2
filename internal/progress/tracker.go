// Package progress tracks per-job import progress in Redis so the API
// can serve live status while a batch runs. State is advisory and
// expires on its own; losing it never affects the import itself.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// JobTTL keeps finished job state around long enough for the UI to
	// poll its final status.
	JobTTL = 24 * time.Hour

	// maxErrorSamples caps how many error messages one job retains.
	maxErrorSamples = 20
)

// JobProgress is the serialized per-job state stored in Redis.
type JobProgress struct {
	JobID          string    `json:"job_id"`
	Phase          string    `json:"phase"` // importing, flushing, completed
	ProcessedFiles int       `json:"processed_files"`
	TotalFiles     int       `json:"total_files"`
	ErrorCount     int       `json:"error_count"`
	Errors         []string  `json:"errors,omitempty"` // sample, capped
	StartedAt      time.Time `json:"started_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Tracker implements the imports.ProgressSink contract on Redis. All
// writes are best-effort: a Redis outage is logged, never propagated,
// so progress reporting can never fail an import.
type Tracker struct {
	redis *redis.Client
}

// NewTracker creates a Redis-backed progress tracker.
func NewTracker(client *redis.Client) *Tracker {
	return &Tracker{redis: client}
}

// SetPhase records the job's current phase, creating the job state on
// first use.
func (t *Tracker) SetPhase(ctx context.Context, jobID, phase string) {
	p := t.load(ctx, jobID)
	p.Phase = phase
	t.save(ctx, jobID, p)
}

// RecordRows updates the processed/total file counters.
func (t *Tracker) RecordRows(ctx context.Context, jobID string, processed, total int) {
	p := t.load(ctx, jobID)
	p.ProcessedFiles = processed
	p.TotalFiles = total
	t.save(ctx, jobID, p)
}

// RecordError increments the error count and keeps a capped sample of
// messages for the status endpoint.
func (t *Tracker) RecordError(ctx context.Context, jobID, msg string) {
	p := t.load(ctx, jobID)
	p.ErrorCount++
	if len(p.Errors) < maxErrorSamples {
		p.Errors = append(p.Errors, msg)
	}
	t.save(ctx, jobID, p)
}

// Get returns the job's progress. An unknown job yields an empty state
// with phase "unknown" rather than an error, matching what a UI polling
// before the first write should see.
func (t *Tracker) Get(ctx context.Context, jobID string) (*JobProgress, error) {
	data, err := t.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err == redis.Nil {
		return &JobProgress{JobID: jobID, Phase: "unknown"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job progress: %w", err)
	}
	var p JobProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode job progress: %w", err)
	}
	return &p, nil
}

func (t *Tracker) load(ctx context.Context, jobID string) *JobProgress {
	data, err := t.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		return &JobProgress{JobID: jobID, StartedAt: time.Now().UTC()}
	}
	var p JobProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return &JobProgress{JobID: jobID, StartedAt: time.Now().UTC()}
	}
	return &p
}

func (t *Tracker) save(ctx context.Context, jobID string, p *JobProgress) {
	p.JobID = jobID
	p.UpdatedAt = time.Now().UTC()
	data, _ := json.Marshal(p)
	if err := t.redis.Set(ctx, jobKey(jobID), data, JobTTL).Err(); err != nil {
		log.Printf("[progress] save job %s: %v", jobID, err)
	}
}

func jobKey(jobID string) string {
	return fmt.Sprintf("import:progress:%s", jobID)
}
