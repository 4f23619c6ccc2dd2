package imports

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kaleida/analytics-ingest/internal/domain"
	"github.com/kaleida/analytics-ingest/internal/merge"
)

// DailyAggregator accumulates daily metric points across the files of
// one batch before a single upsert pass. Two files in the same batch
// routinely target the same (platform, date) row — a newsletter's "web
// performance" and "daily performance" exports, for example — and
// merging them in memory first halves the read-modify-write round trips
// and keeps the within-batch ordering deterministic.
//
// The aggregator is owned by the batch call that constructs it: it is
// threaded through per-file processing and flushed exactly once at batch
// end. It is not safe for concurrent use and is never shared across
// batches.
type DailyAggregator struct {
	clientID string
	points   map[string]*domain.DailyMetricPoint // keyed by platform|date
}

// NewDailyAggregator creates an empty aggregator for one client's batch.
func NewDailyAggregator(clientID string) *DailyAggregator {
	return &DailyAggregator{
		clientID: clientID,
		points:   make(map[string]*domain.DailyMetricPoint),
	}
}

// Add merges a point into the in-memory batch state. Later files win on
// the keys they report, matching the per-row merge policy.
func (a *DailyAggregator) Add(p domain.DailyMetricPoint) {
	key := string(p.Platform) + "|" + p.MetricDate
	if existing, ok := a.points[key]; ok {
		a.points[key] = merge.Daily(existing, &p)
		return
	}
	cp := p
	a.points[key] = &cp
}

// Len returns the number of distinct (platform, date) rows accumulated.
func (a *DailyAggregator) Len() int { return len(a.points) }

// Flush writes every accumulated row through the read-merge-write
// sequence. Rows are flushed in sorted key order so failures are
// reproducible. One failed upsert does not stop the rest; all failures
// are returned together.
func (a *DailyAggregator) Flush(ctx context.Context, repo MetricRepository) (created, updated int, errs []string) {
	keys := make([]string, 0, len(a.points))
	for k := range a.points {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		point := a.points[k]
		existing, err := repo.GetDaily(ctx, a.clientID, point.Platform, point.MetricDate)
		switch {
		case err == nil:
			merged := merge.Daily(existing, point)
			if err := repo.PutDaily(ctx, merged); err != nil {
				errs = append(errs, fmt.Sprintf("update %s: %v", k, err))
				continue
			}
			updated++
		case errors.Is(err, ErrNotFound):
			point.ClientID = a.clientID
			if err := repo.PutDaily(ctx, point); err != nil {
				errs = append(errs, fmt.Sprintf("insert %s: %v", k, err))
				continue
			}
			created++
		default:
			errs = append(errs, fmt.Sprintf("fetch %s: %v", k, err))
		}
	}
	return created, updated, errs
}
