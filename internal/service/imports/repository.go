package imports

import (
	"context"

	"github.com/kaleida/analytics-ingest/internal/domain"
)

// PostRepository is the data access contract for post and story records.
// Get methods return ErrNotFound when no row exists for the natural key.
// Implementations must be safe for concurrent use.
type PostRepository interface {
	GetPost(ctx context.Context, clientID, postID string) (*domain.InstagramPost, error)
	PutPost(ctx context.Context, p *domain.InstagramPost) error

	GetStory(ctx context.Context, clientID, storyID string) (*domain.InstagramStory, error)
	PutStory(ctx context.Context, s *domain.InstagramStory) error
}

// MetricRepository is the data access contract for daily metric rows,
// keyed by (client_id, platform, metric_date).
type MetricRepository interface {
	GetDaily(ctx context.Context, clientID string, platform domain.Platform, date string) (*domain.DailyMetricPoint, error)
	PutDaily(ctx context.Context, p *domain.DailyMetricPoint) error
}

// ProgressSink receives import progress updates. A nil sink is allowed;
// the service skips reporting. The Redis-backed implementation lives in
// internal/progress.
type ProgressSink interface {
	SetPhase(ctx context.Context, jobID, phase string)
	RecordRows(ctx context.Context, jobID string, processed, total int)
	RecordError(ctx context.Context, jobID, msg string)
}
