package domain

import "time"

// Import file lifecycle states for the drop-bucket watcher queue.
const (
	ImportStatusPending    = "pending"
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
	ImportStatusFailed     = "failed"
)

// ImportFile is one discovered drop-bucket CSV tracked through the
// watcher queue, keyed by its original S3 key.
type ImportFile struct {
	OriginalKey  string     `json:"original_key" db:"original_key"`
	RenamedKey   string     `json:"renamed_key,omitempty" db:"renamed_key"`
	ClientID     string     `json:"client_id" db:"client_id"`
	Platform     Platform   `json:"platform" db:"platform"`
	Status       string     `json:"status" db:"status"`
	DetectedType string     `json:"detected_type,omitempty" db:"detected_type"`
	FileSize     int64      `json:"file_size" db:"file_size"`
	RecordCount  int        `json:"record_count" db:"record_count"`
	ErrorCount   int        `json:"error_count" db:"error_count"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
	RetryCount   int        `json:"retry_count" db:"retry_count"`
	StartedAt    *time.Time `json:"started_at,omitempty" db:"started_at"`
	ProcessedAt  *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}
