package csvparse

import "strings"

// Record maps a lower-cased column name to its raw string value for one
// data row. Records are built once and never mutated afterwards.
type Record map[string]string

// Get returns the value for the first of the given column names that is
// present and non-empty. Platform exports name the same metric
// differently across locales and versions, so lookups usually carry a
// list of known variants.
func (r Record) Get(names ...string) string {
	for _, n := range names {
		if v, ok := r[n]; ok && v != "" {
			return v
		}
	}
	return ""
}

// Find returns the value of the first column whose name contains any of
// the given substrings. Useful when exports decorate a known column name
// ("seguidores" vs "seguidores no instagram"). Substrings are tried in
// order; ties within one substring resolve to the lexically smallest
// column so lookups stay deterministic.
func (r Record) Find(substrs ...string) string {
	for _, s := range substrs {
		best := ""
		for k, v := range r {
			if v == "" || !strings.Contains(k, s) {
				continue
			}
			if best == "" || k < best {
				best = k
			}
		}
		if best != "" {
			return r[best]
		}
	}
	return ""
}

// MapRecords zips headers with data rows into field-keyed records.
// Rows shorter than the header are padded implicitly (missing columns
// absent from the record); extra trailing fields are ignored. A
// duplicated header name keeps its first column.
func MapRecords(headers []string, rows [][]string) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := make(Record, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(row) {
				continue
			}
			if _, seen := rec[h]; seen {
				continue
			}
			rec[h] = row[i]
		}
		records = append(records, rec)
	}
	return records
}
