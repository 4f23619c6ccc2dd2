package classify

import "github.com/kaleida/analytics-ingest/internal/csvparse"

// Absolute-total detection thresholds. A genuinely daily new-follower
// count swings a lot relative to its mean; a cumulative total drifts
// slowly around a large value. Both conditions must hold to call the
// column a running total.
const (
	absoluteMeanThreshold     = 1000.0
	absoluteVarianceThreshold = 0.10 // (max-min)/avg
)

// classifyFollowers refines a follower-header match into "absolute total"
// vs "already incremental" by scanning the magnitudes of the value
// column (the column after the date, i.e. the second header).
func classifyFollowers(e *evidence, base DetectionResult) DetectionResult {
	if len(e.headers) < 2 {
		return base
	}

	valueCol := e.headers[1]
	var values []float64
	for _, rec := range e.records {
		raw, ok := rec[valueCol]
		if !ok || raw == "" {
			continue
		}
		values = append(values, float64(csvparse.LenientInt(raw)))
	}
	if len(values) < 2 {
		return base
	}

	sum, min, max := 0.0, values[0], values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	avg := sum / float64(len(values))

	if avg > absoluteMeanThreshold && (max-min)/avg < absoluteVarianceThreshold {
		return DetectionResult{
			Type:            TypeFollowersAbsolute,
			Label:           "Followers (running total)",
			Confidence:      base.Confidence,
			NeedsConversion: true,
			ConversionType:  ConversionAbsoluteToIncremental,
		}
	}
	return base
}
