// Package classify assigns a CSV export type to an uploaded file.
//
// Detection runs an ordered cascade of header and value checks: the first
// matching rule wins, so rule order encodes priority. Confidence values
// are fixed per rule — they are surfaced to the user so weaker detections
// can be reviewed, not probabilities.
package classify

// CSVType is the closed set of export types the pipeline can ingest.
type CSVType string

const (
	TypePosts             CSVType = "posts"
	TypeStories           CSVType = "stories"
	TypeReach             CSVType = "reach"
	TypeFollowers         CSVType = "followers"
	TypeFollowersAbsolute CSVType = "followers_absolute"
	TypeViews             CSVType = "views"
	TypeInteractions      CSVType = "interactions"
	TypeProfileVisits     CSVType = "profile_visits"
	TypeLinkClicks        CSVType = "link_clicks"
	TypeNewsletterDaily   CSVType = "newsletter_daily"
	TypeNewsletterWeb     CSVType = "newsletter_web"
	TypeUnknown           CSVType = "unknown"
)

// ConversionAbsoluteToIncremental marks follower exports that carry a
// running total instead of day-over-day deltas.
const ConversionAbsoluteToIncremental = "absolute_to_incremental"

// DetectionResult is the classifier's verdict for one file.
type DetectionResult struct {
	Type            CSVType `json:"type"`
	Label           string  `json:"label"`
	Confidence      int     `json:"confidence"` // 0-100, fixed per rule
	NeedsConversion bool    `json:"needs_conversion"`
	ConversionType  string  `json:"conversion_type,omitempty"`
}

// Unknown is the result when no rule matches. Callers treat it as a hard
// validation error: there is no domain builder for an unknown type.
func Unknown() DetectionResult {
	return DetectionResult{Type: TypeUnknown, Label: "Unknown", Confidence: 0}
}
