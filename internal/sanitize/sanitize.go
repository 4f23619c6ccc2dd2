// Package sanitize removes summary rows and flags suspicious data before
// domain records are built. Its output is advisory: warnings never block
// an import, they are surfaced so the user can review before committing.
package sanitize

import (
	"fmt"

	"github.com/kaleida/analytics-ingest/internal/classify"
	"github.com/kaleida/analytics-ingest/internal/csvparse"
)

// Tuning constants for the statistical total-row heuristic. Platform
// exports sometimes append a "Total" row whose accumulated sum would
// corrupt daily-delta calculations; a legitimate spike day does not
// exceed BOTH the mean and the max of its siblings by these factors.
const (
	TotalRowMeanMultiplier = 10.0
	TotalRowMaxMultiplier  = 2.0

	// HighValueThreshold flags single-day values that are suspicious for
	// a daily metric. Posts are exempt — a viral post can legitimately
	// carry very large view counts.
	HighValueThreshold = 100000

	// MissingDateWarningCap bounds per-row missing-date warnings before
	// they collapse into a single "and N more" summary.
	MissingDateWarningCap = 3
)

// dateColumns are the header variants that carry the row date across
// platforms and locales.
var dateColumns = []string{"data", "date", "dia", "day"}

// Warning types.
const (
	WarnTotalRow      = "total_row"
	WarnDuplicateDate = "duplicate_date"
	WarnMissingDate   = "missing_date"
	WarnHighValue     = "high_value"
)

// Warning is one advisory finding about a row (or the file as a whole
// when Row is -1). Row is the 0-based index into the records passed to
// Sanitize, before any total rows were removed.
type Warning struct {
	Type    string `json:"type"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result is the outcome of sanitizing one file's records.
type Result struct {
	Kept          []csvparse.Record
	Warnings      []Warning
	RemovedTotals int
}

// Sanitize filters total/summary rows out of the records and collects
// warnings for duplicate dates, missing dates, and outlier values.
// headers preserve column order (records are maps); the primary metric
// column is the first non-date column.
func Sanitize(headers []string, records []csvparse.Record, csvType classify.CSVType) Result {
	res := Result{Kept: make([]csvparse.Record, 0, len(records))}

	// Post and story exports are keyed by post id, not by a date column:
	// their timestamp lives in "horário de publicação"/"publish time" and
	// missing ones are rejected per record by the builders. None of the
	// date-based heuristics below apply, and the primary column would be
	// an id, so pass the rows through untouched.
	if csvType == classify.TypePosts || csvType == classify.TypeStories {
		res.Kept = append(res.Kept, records...)
		return res
	}

	primary := primaryColumn(headers)
	values := make([]float64, len(records))
	for i, rec := range records {
		values[i] = float64(csvparse.LenientInt(rec[primary]))
	}

	dateCounts := make(map[string]int)
	missingDates := 0

	for i, rec := range records {
		date := rec.Get(dateColumns...)

		if isTotalRow(date, values, i) {
			res.RemovedTotals++
			res.Warnings = append(res.Warnings, Warning{
				Type:    WarnTotalRow,
				Row:     i,
				Message: fmt.Sprintf("row %d looks like a summary/total row (value %.0f) and was excluded", i+1, values[i]),
			})
			continue
		}

		if date == "" {
			missingDates++
			if missingDates <= MissingDateWarningCap {
				res.Warnings = append(res.Warnings, Warning{
					Type:    WarnMissingDate,
					Row:     i,
					Message: fmt.Sprintf("row %d has no date and will be skipped during import", i+1),
				})
			}
		} else {
			dateCounts[date]++
			if dateCounts[date] > 1 {
				res.Warnings = append(res.Warnings, Warning{
					Type:    WarnDuplicateDate,
					Row:     i,
					Message: fmt.Sprintf("date %s appears more than once; the last occurrence wins", date),
				})
			}
		}

		if csvType != classify.TypeFollowersAbsolute && values[i] > HighValueThreshold {
			res.Warnings = append(res.Warnings, Warning{
				Type:    WarnHighValue,
				Row:     i,
				Message: fmt.Sprintf("row %d has an unusually large value (%.0f) for a daily metric", i+1, values[i]),
			})
		}

		res.Kept = append(res.Kept, rec)
	}

	if extra := missingDates - MissingDateWarningCap; extra > 0 {
		res.Warnings = append(res.Warnings, Warning{
			Type:    WarnMissingDate,
			Row:     -1,
			Message: fmt.Sprintf("and %d more rows without a date", extra),
		})
	}

	return res
}

// isTotalRow decides whether row i is a summary row. A blank date with a
// non-zero value is the explicit "Total" pattern; a populated date can
// still be a total when its value dwarfs every sibling on both the mean
// and the max scale.
func isTotalRow(date string, values []float64, i int) bool {
	if date == "" && values[i] > 0 {
		return true
	}

	var sum, max float64
	n := 0
	for j, v := range values {
		if j == i {
			continue
		}
		sum += v
		if v > max {
			max = v
		}
		n++
	}
	if n == 0 || sum == 0 {
		return false
	}
	mean := sum / float64(n)

	return values[i] > mean*TotalRowMeanMultiplier && values[i] > max*TotalRowMaxMultiplier
}

// primaryColumn returns the first non-date header, which carries the
// export's main metric in every known layout.
func primaryColumn(headers []string) string {
	for _, h := range headers {
		isDate := false
		for _, d := range dateColumns {
			if h == d {
				isDate = true
				break
			}
		}
		if !isDate && h != "" {
			return h
		}
	}
	if len(headers) > 0 {
		return headers[0]
	}
	return ""
}
