// Package ingest runs the per-file validation pipeline: tokenize, locate
// headers, classify, sanitize, and build typed domain records. Everything
// here is pure and synchronous — persistence happens one layer up, in the
// imports service.
package ingest

import (
	"fmt"

	"github.com/kaleida/analytics-ingest/internal/classify"
	"github.com/kaleida/analytics-ingest/internal/csvparse"
	"github.com/kaleida/analytics-ingest/internal/domain"
	"github.com/kaleida/analytics-ingest/internal/sanitize"
)

// Validate runs the full dry-run pipeline over one file's raw text.
// It never panics or returns an error: every failure mode is reported
// inside the ValidationResult so the caller can show it to the user.
func Validate(rawText string, platform domain.Platform) *ValidationResult {
	res := &ValidationResult{DetectedType: classify.TypeUnknown}

	headers, rows := csvparse.Parse(rawText)
	if len(rows) == 0 {
		res.addError("no data rows found — the file may be empty or not a CSV export")
		return res
	}

	records := csvparse.MapRecords(headers, rows)
	res.TotalRows = len(records)

	det := classify.Classify(rawText, headers, records, string(platform))
	res.Detection = det
	res.DetectedType = det.Type
	if det.Type == classify.TypeUnknown {
		res.addError("could not determine the CSV type from its headers — is this a supported platform export?")
		return res
	}

	sanitized := sanitize.Sanitize(headers, records, det.Type)
	res.Warnings = sanitized.Warnings
	res.Headers = headers
	res.RawData = sanitized.Kept
	res.PreviewData = buildPreview(sanitized.Kept, sanitized.Warnings)

	// Dry-run the builders to count how many rows would actually import.
	built := Build("", platform, det, sanitized.Kept)
	res.ValidRows = len(built.Posts) + len(built.Stories) + len(built.Daily)
	res.DateFormatAssumption = built.DateAssumption

	if det.NeedsConversion {
		res.addSuggestion("follower counts look like a running total and will be converted to day-over-day changes")
	}
	if built.Invalid > 0 {
		res.addSuggestion(fmt.Sprintf("%d of %d rows are missing required fields and will be skipped", built.Invalid, res.TotalRows))
	}
	if built.DateAssumption == AssumeUSWithTime || built.DateAssumption == AssumeDayFirst {
		res.addSuggestion(fmt.Sprintf("dates were read as %s — confirm this matches the export's locale", built.DateAssumption))
	}

	return res
}
