package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kaleida/analytics-ingest/internal/domain"
)

// ImportLogRepo manages the watcher's resumable file queue in
// analytics_import_log. Claims are plain conditional UPDATEs on the
// status column, which is enough to keep concurrent workers from
// double-processing one key.
type ImportLogRepo struct{ db *sql.DB }

// NewImportLogRepo creates a Postgres-backed import log repository.
func NewImportLogRepo(db *sql.DB) *ImportLogRepo { return &ImportLogRepo{db: db} }

// Enqueue registers a newly discovered file as pending. Re-discovering a
// known key is a no-op; returns whether a new row was inserted.
func (r *ImportLogRepo) Enqueue(ctx context.Context, f *domain.ImportFile) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO analytics_import_log
			(original_key, client_id, platform, status, file_size, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (original_key) DO NOTHING
	`, f.OriginalKey, f.ClientID, string(f.Platform), domain.ImportStatusPending, f.FileSize)
	if err != nil {
		return false, fmt.Errorf("enqueue import file: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// NextPending returns up to limit pending keys, smallest file first so
// quick wins surface early in a cycle.
func (r *ImportLogRepo) NextPending(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT original_key FROM analytics_import_log
		WHERE status = 'pending'
		ORDER BY file_size ASC, created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending imports: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan pending import: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Claim atomically moves a pending file to processing. Returns false
// when another worker already claimed it.
func (r *ImportLogRepo) Claim(ctx context.Context, key string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE analytics_import_log
		SET status = 'processing', retry_count = retry_count + 1, started_at = NOW()
		WHERE original_key = $1 AND status = 'pending'
	`, key)
	if err != nil {
		return false, fmt.Errorf("claim import file: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetClassification records the detected type and the processed/ key the
// file will be renamed to.
func (r *ImportLogRepo) SetClassification(ctx context.Context, key, renamedKey, detectedType string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE analytics_import_log
		SET renamed_key = $1, detected_type = $2
		WHERE original_key = $3
	`, renamedKey, detectedType, key)
	if err != nil {
		return fmt.Errorf("set classification: %w", err)
	}
	return nil
}

// Complete marks a file done with its row counts.
func (r *ImportLogRepo) Complete(ctx context.Context, key string, recordCount, errorCount int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE analytics_import_log
		SET status = 'completed', record_count = $1, error_count = $2, processed_at = NOW()
		WHERE original_key = $3
	`, recordCount, errorCount, key)
	if err != nil {
		return fmt.Errorf("complete import file: %w", err)
	}
	return nil
}

// Fail marks a file failed and records the reason.
func (r *ImportLogRepo) Fail(ctx context.Context, key, msg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE analytics_import_log
		SET status = 'failed', error_message = $1
		WHERE original_key = $2
	`, msg, key)
	if err != nil {
		return fmt.Errorf("fail import file: %w", err)
	}
	return nil
}

// ResumeStuck requeues files abandoned in processing by a prior crash.
// Files past maxRetries are failed instead of looping forever.
func (r *ImportLogRepo) ResumeStuck(ctx context.Context, maxRetries int) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE analytics_import_log
		SET status = 'failed', error_message = 'max retries exceeded'
		WHERE status = 'processing' AND retry_count >= $1
	`, maxRetries); err != nil {
		return fmt.Errorf("fail exhausted imports: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `
		UPDATE analytics_import_log
		SET status = 'pending'
		WHERE status = 'processing'
	`); err != nil {
		return fmt.Errorf("requeue stuck imports: %w", err)
	}
	return nil
}

// Stats returns the queue's per-status counts for the watcher status
// endpoint.
func (r *ImportLogRepo) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM analytics_import_log GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("import log stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan import log stats: %w", err)
		}
		stats[status] = n
	}
	return stats, rows.Err()
}
