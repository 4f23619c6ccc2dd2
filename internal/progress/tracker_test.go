package progress

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTracker(t *testing.T) *Tracker {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewTracker(client)
}

func TestTrackerLifecycle(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()

	tracker.SetPhase(ctx, "job-1", "importing")
	tracker.RecordRows(ctx, "job-1", 1, 3)
	tracker.RecordError(ctx, "job-1", "posts.csv: bad row")
	tracker.SetPhase(ctx, "job-1", "completed")

	p, err := tracker.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Phase != "completed" {
		t.Errorf("Phase = %q, want completed", p.Phase)
	}
	if p.ProcessedFiles != 1 || p.TotalFiles != 3 {
		t.Errorf("files = %d/%d, want 1/3", p.ProcessedFiles, p.TotalFiles)
	}
	if p.ErrorCount != 1 || len(p.Errors) != 1 {
		t.Errorf("errors = %d (%v)", p.ErrorCount, p.Errors)
	}
	if p.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}
}

func TestTrackerUnknownJob(t *testing.T) {
	tracker := setupTracker(t)
	p, err := tracker.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Phase != "unknown" {
		t.Errorf("Phase = %q, want unknown for a job never written", p.Phase)
	}
}

func TestTrackerErrorSampleCap(t *testing.T) {
	tracker := setupTracker(t)
	ctx := context.Background()

	for i := 0; i < maxErrorSamples+10; i++ {
		tracker.RecordError(ctx, "job-1", "row error")
	}

	p, err := tracker.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.ErrorCount != maxErrorSamples+10 {
		t.Errorf("ErrorCount = %d, want %d", p.ErrorCount, maxErrorSamples+10)
	}
	if len(p.Errors) != maxErrorSamples {
		t.Errorf("sample = %d messages, want capped at %d", len(p.Errors), maxErrorSamples)
	}
}
