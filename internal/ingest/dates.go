package ingest

import (
	"fmt"
	"strings"
	"time"
)

// Date format assumption labels, surfaced on the validation report so a
// user can confirm how ambiguous dates were read.
const (
	AssumeUSWithTime = "MM/DD/YYYY HH:mm"
	AssumeISO        = "ISO 8601"
	AssumeDayFirst   = "DD/MM/YYYY"
)

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseExportDate parses the three date styles seen in platform exports,
// in fixed priority order:
//
//  1. MM/DD/YYYY HH:mm (US order, with a time suffix)
//  2. ISO 8601 (contains 'T' or '-')
//  3. DD/MM/YYYY (bare day-first date)
//
// The returned assumption label names which pattern matched. Ambiguity
// warning: a day-first date with a time suffix whose day is <= 12 also
// parses as pattern 1 and will be read month-first. This priority order
// is kept intact for compatibility with historical imports; changing it
// would silently re-date previously imported rows.
func ParseExportDate(raw string) (time.Time, string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, "", fmt.Errorf("empty date")
	}

	if t, err := time.Parse("01/02/2006 15:04", s); err == nil {
		return t, AssumeUSWithTime, nil
	}

	if strings.Contains(s, "T") || strings.Contains(s, "-") {
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, AssumeISO, nil
			}
		}
	}

	if t, err := time.Parse("02/01/2006", s); err == nil {
		return t, AssumeDayFirst, nil
	}

	return time.Time{}, "", fmt.Errorf("unrecognized date %q", raw)
}

// MetricDate normalizes an export date to the YYYY-MM-DD natural-key
// form used by daily metric rows.
func MetricDate(t time.Time) string {
	return t.Format("2006-01-02")
}
