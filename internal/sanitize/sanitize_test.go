package sanitize

import (
	"fmt"
	"testing"

	"github.com/kaleida/analytics-ingest/internal/classify"
	"github.com/kaleida/analytics-ingest/internal/csvparse"
)

var reachHeaders = []string{"data", "alcance"}

func reachRecord(date string, value int) csvparse.Record {
	return csvparse.Record{"data": date, "alcance": fmt.Sprint(value)}
}

func warningsOfType(res Result, typ string) []Warning {
	var out []Warning
	for _, w := range res.Warnings {
		if w.Type == typ {
			out = append(out, w)
		}
	}
	return out
}

func TestSanitizeRemovesStatisticalTotalRow(t *testing.T) {
	records := []csvparse.Record{
		reachRecord("01/02/2024", 100),
		reachRecord("02/02/2024", 120),
		reachRecord("03/02/2024", 90),
		reachRecord("04/02/2024", 5000), // > 10x mean and > 2x max of siblings
	}
	res := Sanitize(reachHeaders, records, classify.TypeReach)

	if res.RemovedTotals != 1 {
		t.Fatalf("RemovedTotals = %d, want 1", res.RemovedTotals)
	}
	if len(res.Kept) != 3 {
		t.Fatalf("Kept = %d rows, want 3", len(res.Kept))
	}
	for _, rec := range res.Kept {
		if rec["alcance"] == "5000" {
			t.Error("total row survived sanitization")
		}
	}
}

func TestSanitizeKeepsLegitimateSpike(t *testing.T) {
	// Large relative to its siblings but inside both thresholds: a
	// plausible spike day, not a total.
	records := []csvparse.Record{
		reachRecord("01/02/2024", 10),
		reachRecord("02/02/2024", 3000),
		reachRecord("03/02/2024", 5000),
	}
	res := Sanitize(reachHeaders, records, classify.TypeReach)
	if res.RemovedTotals != 0 {
		t.Errorf("RemovedTotals = %d, want 0", res.RemovedTotals)
	}
	if len(res.Kept) != 3 {
		t.Errorf("Kept = %d rows, want 3", len(res.Kept))
	}
}

func TestSanitizeBlankDateRows(t *testing.T) {
	records := []csvparse.Record{
		reachRecord("01/02/2024", 100),
		reachRecord("", 350), // classic trailing "Total" row
		reachRecord("", 0),   // empty row: kept but flagged
	}
	res := Sanitize(reachHeaders, records, classify.TypeReach)

	if res.RemovedTotals != 1 {
		t.Fatalf("RemovedTotals = %d, want 1", res.RemovedTotals)
	}
	if len(res.Kept) != 2 {
		t.Fatalf("Kept = %d rows, want 2", len(res.Kept))
	}
	if got := warningsOfType(res, "missing_date"); len(got) != 1 {
		t.Errorf("missing_date warnings = %d, want 1", len(got))
	}
}

func TestSanitizeDuplicateDates(t *testing.T) {
	records := []csvparse.Record{
		reachRecord("01/02/2024", 100),
		reachRecord("01/02/2024", 110),
		reachRecord("02/02/2024", 90),
	}
	res := Sanitize(reachHeaders, records, classify.TypeReach)

	dups := warningsOfType(res, "duplicate_date")
	if len(dups) != 1 {
		t.Fatalf("duplicate_date warnings = %d, want 1", len(dups))
	}
	if dups[0].Row != 1 {
		t.Errorf("warning row = %d, want 1 (the repeat, not the first)", dups[0].Row)
	}
	if len(res.Kept) != 3 {
		t.Errorf("duplicates are kept (last wins downstream): Kept = %d", len(res.Kept))
	}
}

func TestSanitizeMissingDateWarningCap(t *testing.T) {
	var records []csvparse.Record
	for i := 0; i < 6; i++ {
		records = append(records, reachRecord("", 0))
	}
	res := Sanitize(reachHeaders, records, classify.TypeReach)

	got := warningsOfType(res, "missing_date")
	if len(got) != MissingDateWarningCap+1 {
		t.Fatalf("missing_date warnings = %d, want %d capped + 1 summary",
			len(got), MissingDateWarningCap)
	}
	last := got[len(got)-1]
	if last.Row != -1 {
		t.Errorf("summary warning row = %d, want -1", last.Row)
	}
}

func TestSanitizePassesPostRowsThrough(t *testing.T) {
	// Post exports carry their timestamp in the publish-time column, not
	// in a "data"/"date" column. They must never trip the blank-date
	// total-row rule.
	headers := []string{"identificação do post", "link permanente", "horário de publicação", "curtidas"}
	records := []csvparse.Record{
		{"identificação do post": "p1", "link permanente": "https://insta/p/p1", "horário de publicação": "06/15/2024 13:45", "curtidas": "100"},
		{"identificação do post": "p2", "link permanente": "https://insta/p/p2", "horário de publicação": "06/16/2024 09:30", "curtidas": "250000"},
	}

	for _, typ := range []classify.CSVType{classify.TypePosts, classify.TypeStories} {
		res := Sanitize(headers, records, typ)
		if len(res.Kept) != 2 {
			t.Errorf("%s: Kept = %d rows, want 2", typ, len(res.Kept))
		}
		if res.RemovedTotals != 0 {
			t.Errorf("%s: RemovedTotals = %d, want 0", typ, res.RemovedTotals)
		}
		if len(res.Warnings) != 0 {
			t.Errorf("%s: warnings = %v, want none", typ, res.Warnings)
		}
	}
}

func TestSanitizeHighValue(t *testing.T) {
	records := []csvparse.Record{
		reachRecord("01/02/2024", 150000),
		reachRecord("02/02/2024", 140000),
		reachRecord("03/02/2024", 130000),
	}

	res := Sanitize(reachHeaders, records, classify.TypeReach)
	if got := warningsOfType(res, "high_value"); len(got) != 3 {
		t.Errorf("high_value warnings = %d, want 3", len(got))
	}

	// Posts and running follower totals legitimately exceed the threshold.
	for _, typ := range []classify.CSVType{classify.TypePosts, classify.TypeFollowersAbsolute} {
		res := Sanitize(reachHeaders, records, typ)
		if got := warningsOfType(res, "high_value"); len(got) != 0 {
			t.Errorf("%s: high_value warnings = %d, want 0", typ, len(got))
		}
	}
}
