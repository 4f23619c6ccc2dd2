package csvparse

import (
	"strconv"
	"strings"
)

// LenientInt parses an integer out of a raw CSV cell. Exports decorate
// numbers freely ("1.234", "1,234", "12 mil", "≈45"), so everything except
// digits and a leading minus sign is stripped before parsing. Returns 0
// when nothing parseable remains — ingestion never fails on a bad number,
// it just records a zero.
func LenientInt(s string) int {
	var b strings.Builder
	for i, r := range s {
		if r == '-' && i == 0 {
			b.WriteRune(r)
		} else if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}

// LenientFloat parses a decimal value out of a raw CSV cell, accepting
// both '.' and ',' as the decimal separator ("12.5%", "12,5"). Returns 0
// on failure, same contract as LenientInt.
func LenientFloat(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	// A comma with no dot is a locale decimal separator, not thousands.
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	var b strings.Builder
	for i, r := range s {
		if r == '-' && i == 0 || r >= '0' && r <= '9' || r == '.' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return f
}
