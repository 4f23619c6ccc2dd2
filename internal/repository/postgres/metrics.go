package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kaleida/analytics-ingest/internal/domain"
	"github.com/kaleida/analytics-ingest/internal/service/imports"
)

// MetricRepo implements imports.MetricRepository against PostgreSQL.
// The metric bag is one JSONB column keyed by canonical metric name, so
// new export types never need a schema change.
type MetricRepo struct{ db *sql.DB }

// NewMetricRepo creates a Postgres-backed daily metric repository.
func NewMetricRepo(db *sql.DB) *MetricRepo { return &MetricRepo{db: db} }

func (r *MetricRepo) GetDaily(ctx context.Context, clientID string, platform domain.Platform, date string) (*domain.DailyMetricPoint, error) {
	p := &domain.DailyMetricPoint{}
	var metrics, metadata []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT client_id, platform, to_char(metric_date, 'YYYY-MM-DD'),
		       COALESCE(metrics,'{}'), COALESCE(metadata,'{}')
		FROM analytics_daily_metrics
		WHERE client_id = $1 AND platform = $2 AND metric_date = $3
	`, clientID, string(platform), date).Scan(
		&p.ClientID, &p.Platform, &p.MetricDate, &metrics, &metadata,
	)
	if err == sql.ErrNoRows {
		return nil, imports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get daily metrics: %w", err)
	}
	if err := unmarshalMap(metrics, &p.Metrics); err != nil {
		return nil, fmt.Errorf("get daily metrics bag: %w", err)
	}
	if err := unmarshalMap(metadata, &p.Metadata); err != nil {
		return nil, fmt.Errorf("get daily metrics metadata: %w", err)
	}
	return p, nil
}

func (r *MetricRepo) PutDaily(ctx context.Context, p *domain.DailyMetricPoint) error {
	metrics, err := marshalMap(p.Metrics)
	if err != nil {
		return fmt.Errorf("put daily metrics bag: %w", err)
	}
	metadata, err := marshalMap(p.Metadata)
	if err != nil {
		return fmt.Errorf("put daily metrics metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analytics_daily_metrics
			(client_id, platform, metric_date, metrics, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (client_id, platform, metric_date) DO UPDATE SET
			metrics = EXCLUDED.metrics,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
	`, p.ClientID, string(p.Platform), p.MetricDate, metrics, metadata)
	if err != nil {
		return fmt.Errorf("put daily metrics: %w", err)
	}
	return nil
}
