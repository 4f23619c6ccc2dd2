package ingest

import (
	"github.com/kaleida/analytics-ingest/internal/classify"
	"github.com/kaleida/analytics-ingest/internal/csvparse"
	"github.com/kaleida/analytics-ingest/internal/sanitize"
)

// previewRowLimit caps how many rows the validation report carries for
// user review.
const previewRowLimit = 5

// PreviewRow is one sample data row annotated with any warnings that
// apply to it.
type PreviewRow struct {
	Fields   csvparse.Record `json:"fields"`
	Warnings []string        `json:"warnings,omitempty"`
}

// ValidationResult is the full dry-run report for one uploaded file. It
// is held by the caller for user review and discarded on re-validation;
// it is never persisted.
type ValidationResult struct {
	Detection    classify.DetectionResult `json:"detection"`
	DetectedType classify.CSVType         `json:"detected_type"`

	Warnings    []sanitize.Warning `json:"warnings"`
	Errors      []string           `json:"errors"`
	Suggestions []string           `json:"suggestions"`
	PreviewData []PreviewRow       `json:"preview_data"`

	TotalRows int `json:"total_rows"`
	ValidRows int `json:"valid_rows"`

	// DateFormatAssumption names the date pattern that matched, so the
	// user can confirm day-first vs month-first reading before commit.
	DateFormatAssumption string `json:"date_format_assumption,omitempty"`

	// Headers and RawData carry the filtered parse output forward so
	// commit does not have to re-tokenize the file.
	Headers []string          `json:"-"`
	RawData []csvparse.Record `json:"raw_data"`
}

// IsValid reports whether the file can be committed. Warnings never
// block; only hard errors and an unknown type do.
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0 && v.DetectedType != classify.TypeUnknown
}

func (v *ValidationResult) addError(msg string) {
	v.Errors = append(v.Errors, msg)
}

func (v *ValidationResult) addSuggestion(msg string) {
	v.Suggestions = append(v.Suggestions, msg)
}

// buildPreview annotates the first few kept rows with their warnings.
// Warning rows index the pre-filter records, so each one is shifted down
// past the removed total rows to land on the kept row it describes;
// total-row warnings describe rows that no longer exist and stay
// file-level.
func buildPreview(records []csvparse.Record, warnings []sanitize.Warning) []PreviewRow {
	n := len(records)
	if n > previewRowLimit {
		n = previewRowLimit
	}

	var removed []int
	for _, w := range warnings {
		if w.Type == sanitize.WarnTotalRow && w.Row >= 0 {
			removed = append(removed, w.Row)
		}
	}

	byRow := make(map[int][]string)
	for _, w := range warnings {
		if w.Row < 0 || w.Type == sanitize.WarnTotalRow {
			continue
		}
		idx := w.Row
		for _, r := range removed {
			if r < w.Row {
				idx--
			}
		}
		if idx < n {
			byRow[idx] = append(byRow[idx], w.Message)
		}
	}

	preview := make([]PreviewRow, 0, n)
	for i := 0; i < n; i++ {
		preview = append(preview, PreviewRow{Fields: records[i], Warnings: byRow[i]})
	}
	return preview
}
