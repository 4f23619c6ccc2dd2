package ingest

import (
	"testing"
	"time"
)

func TestParseExportDate(t *testing.T) {
	tests := []struct {
		in             string
		want           time.Time
		wantAssumption string
	}{
		{
			in:             "06/15/2024 13:45",
			want:           time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC),
			wantAssumption: AssumeUSWithTime,
		},
		{
			in:             "2024-06-15",
			want:           time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			wantAssumption: AssumeISO,
		},
		{
			in:             "2024-06-15T13:45:00",
			want:           time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC),
			wantAssumption: AssumeISO,
		},
		{
			in:             "15/06/2024",
			want:           time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			wantAssumption: AssumeDayFirst,
		},
		{
			// Ambiguous day <= 12 with a time suffix reads month-first.
			// Locked-in behavior: changing the priority would re-date
			// historical imports.
			in:             "03/04/2024 10:00",
			want:           time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
			wantAssumption: AssumeUSWithTime,
		},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, assumption, err := ParseExportDate(tt.in)
			if err != nil {
				t.Fatalf("ParseExportDate(%q) error: %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("time = %v, want %v", got, tt.want)
			}
			if assumption != tt.wantAssumption {
				t.Errorf("assumption = %q, want %q", assumption, tt.wantAssumption)
			}
		})
	}
}

func TestParseExportDateErrors(t *testing.T) {
	for _, in := range []string{"", "   ", "yesterday", "13/13/2024", "2024/06/15"} {
		if _, _, err := ParseExportDate(in); err == nil {
			t.Errorf("ParseExportDate(%q) = nil error, want failure", in)
		}
	}
}

func TestMetricDate(t *testing.T) {
	got := MetricDate(time.Date(2024, 6, 5, 23, 59, 0, 0, time.UTC))
	if got != "2024-06-05" {
		t.Errorf("MetricDate = %q, want 2024-06-05", got)
	}
}
