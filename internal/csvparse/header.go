package csvparse

import "strings"

// headerScanLimit bounds how many leading rows are inspected for the
// header. Platform exports prepend at most 1-3 metadata lines.
const headerScanLimit = 5

// headerAnchors are phrases that only ever appear in real export header
// rows, never in metadata preambles or data rows.
var headerAnchors = []string{
	"identificação do post",
	"identificação da story",
	"link permanente",
	"horário de publicação",
	"publish time",
	"post id",
	"permalink",
}

// LocateHeader returns the index of the true header row. Some platforms
// prepend metadata lines ("Relatório gerado em ...") before the header,
// so the first rows are scanned for anchor phrases characteristic of real
// headers. Defaults to row 0 — exports without a preamble are the common
// case.
func LocateHeader(rows [][]string) int {
	limit := headerScanLimit
	if len(rows) < limit {
		limit = len(rows)
	}

	for i := 0; i < limit; i++ {
		joined := strings.ToLower(strings.Join(rows[i], " "))
		for _, anchor := range headerAnchors {
			if strings.Contains(joined, anchor) {
				return i
			}
		}
		// Daily exports have no post-identifier columns; a "data" column
		// next to a "primary" metric column is their header signature.
		if strings.Contains(joined, "data") && strings.Contains(joined, "primary") {
			return i
		}
	}
	return 0
}
