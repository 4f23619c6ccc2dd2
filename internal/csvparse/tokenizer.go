// Package csvparse turns raw social-platform CSV exports into field-keyed
// records.
//
// The stdlib encoding/csv reader is deliberately not used here: platform
// exports arrive with BOMs, mixed line endings, semicolon delimiters,
// metadata preambles before the header row, and quoted fields containing
// raw newlines. The tokenizer handles all of those in one forgiving pass
// and never returns an error — a file that yields nothing useful simply
// produces empty output, which callers report as "no data".
package csvparse

import "strings"

// Tokenize splits raw decoded file text into rows of trimmed string fields.
//
// The delimiter is detected once from the first physical line: ';' if
// present, otherwise ','. Quoted fields may contain the delimiter, doubled
// quotes, and newlines. Rows with fewer than 2 non-empty fields are
// dropped as blank/noise lines.
func Tokenize(text string) [][]string {
	text = strings.TrimPrefix(text, "\uFEFF")
	// Normalize line endings up front so the scanner only sees '\n'.
	// Quoted multi-line fields lose their '\r' here, which field
	// sanitization would strip anyway.
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	if text == "" {
		return nil
	}

	delim := detectDelimiter(text)

	var (
		rows     [][]string
		row      []string
		field    strings.Builder
		inQuotes bool
	)

	endField := func() {
		row = append(row, sanitizeField(field.String()))
		field.Reset()
	}
	endRow := func() {
		endField()
		if countNonEmpty(row) >= 2 {
			rows = append(rows, row)
		}
		row = nil
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if inQuotes {
			if ch == '"' {
				if i+1 < len(runes) && runes[i+1] == '"' {
					field.WriteRune('"') // escaped quote
					i++
				} else {
					inQuotes = false
				}
			} else {
				field.WriteRune(ch)
			}
			continue
		}

		switch ch {
		case '"':
			inQuotes = true
		case delim:
			endField()
		case '\n':
			endRow()
		default:
			field.WriteRune(ch)
		}
	}
	if field.Len() > 0 || len(row) > 0 {
		endRow()
	}

	return rows
}

// Parse tokenizes the text, locates the true header row, and returns
// lower-cased headers plus the data rows that follow it. When fewer than
// 2 rows survive tokenization it returns empty results rather than an
// error; the caller treats that as "no data".
func Parse(text string) (headers []string, rows [][]string) {
	all := Tokenize(text)
	if len(all) < 2 {
		return nil, nil
	}

	idx := LocateHeader(all)
	if idx+1 >= len(all) {
		return nil, nil
	}

	headers = make([]string, len(all[idx]))
	for i, h := range all[idx] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return headers, all[idx+1:]
}

func detectDelimiter(text string) rune {
	firstLine := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		firstLine = text[:i]
	}
	if strings.ContainsRune(firstLine, ';') {
		return ';'
	}
	return ','
}

// sanitizeField strips NUL bytes and stray carriage returns, then trims.
func sanitizeField(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimSpace(s)
}

func countNonEmpty(fields []string) int {
	n := 0
	for _, f := range fields {
		if f != "" {
			n++
		}
	}
	return n
}
