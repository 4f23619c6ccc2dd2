package classify

import (
	"strings"

	"github.com/kaleida/analytics-ingest/internal/csvparse"
)

// evidence bundles everything a rule may inspect: the lower-cased raw
// text sample, the located headers, and the mapped records.
type evidence struct {
	text    string
	headers []string
	records []csvparse.Record
}

func (e *evidence) hasHeader(substrs ...string) bool {
	for _, h := range e.headers {
		for _, s := range substrs {
			if strings.Contains(h, s) {
				return true
			}
		}
	}
	return false
}

// firstRowValue returns the lower-cased value of the given column in the
// first data row.
func (e *evidence) firstRowValue(cols ...string) string {
	if len(e.records) == 0 {
		return ""
	}
	return strings.ToLower(e.records[0].Get(cols...))
}

// rule pairs a predicate with the fixed result it yields. Rules are
// evaluated top to bottom and the first match wins, so the order of the
// rules slice is load-bearing: specific evidence (exact domain headers,
// first-row values) must be checked before generic header shapes that
// several export types share.
type rule struct {
	name      string
	platforms []string // empty = any platform
	match     func(*evidence) bool
	result    DetectionResult
}

var rules = []rule{
	// Stories exports share most headers with Posts exports; a "Story"
	// post-type value in the first data row is the strongest separator
	// and must run before any header-shape rule.
	{
		name:      "story_post_type_value",
		platforms: []string{"instagram"},
		match: func(e *evidence) bool {
			v := e.firstRowValue("tipo de post", "post type", "tipo")
			return v == "story" || v == "stories"
		},
		result: DetectionResult{Type: TypeStories, Label: "Instagram Stories", Confidence: 95},
	},
	{
		name:      "post_identifier_header",
		platforms: []string{"instagram"},
		match: func(e *evidence) bool {
			return e.hasHeader("identificação do post", "post id")
		},
		result: DetectionResult{Type: TypePosts, Label: "Instagram Posts", Confidence: 95},
	},
	{
		name:      "story_identifier_header",
		platforms: []string{"instagram"},
		match: func(e *evidence) bool {
			return e.hasHeader("identificação da story", "story id") ||
				e.hasHeader("avançar", "taps forward")
		},
		result: DetectionResult{Type: TypeStories, Label: "Instagram Stories", Confidence: 90},
	},
	{
		name:      "posts_generic_headers",
		platforms: []string{"instagram"},
		match: func(e *evidence) bool {
			return e.hasHeader("link permanente", "permalink") &&
				e.hasHeader("curtidas", "likes")
		},
		result: DetectionResult{Type: TypePosts, Label: "Instagram Posts", Confidence: 90},
	},
	// Follower counts: the result here is provisional — classifyFollowers
	// then decides absolute total vs already-incremental from the value
	// magnitudes (see followers.go).
	{
		name: "followers_header",
		match: func(e *evidence) bool {
			return e.hasHeader("seguidores", "followers", "inscritos", "subscribers gained")
		},
		result: DetectionResult{Type: TypeFollowers, Label: "Followers", Confidence: 90},
	},
	{
		name:      "reach_header",
		platforms: []string{"instagram"},
		match: func(e *evidence) bool {
			return e.hasHeader("alcance", "reach")
		},
		result: DetectionResult{Type: TypeReach, Label: "Reach", Confidence: 85},
	},
	{
		name:      "newsletter_daily_headers",
		platforms: []string{"newsletter"},
		match: func(e *evidence) bool {
			return e.hasHeader("open rate", "taxa de abertura") ||
				e.hasHeader("click rate", "taxa de clique")
		},
		result: DetectionResult{Type: TypeNewsletterDaily, Label: "Newsletter Daily Performance", Confidence: 85},
	},
	// Newsletter web exports carry a "page views" column, so they must be
	// checked before the generic views rule and the views rule itself is
	// limited to the video/social platforms.
	{
		name:      "newsletter_web_headers",
		platforms: []string{"newsletter"},
		match: func(e *evidence) bool {
			// Some web-performance exports only identify themselves in a
			// metadata preamble, which the header locator skips past.
			return e.hasHeader("page views", "visitantes", "web views") ||
				strings.Contains(e.text, "web performance")
		},
		result: DetectionResult{Type: TypeNewsletterWeb, Label: "Newsletter Web Performance", Confidence: 85},
	},
	{
		name:      "views_header",
		platforms: []string{"instagram", "youtube"},
		match: func(e *evidence) bool {
			return e.hasHeader("visualizações", "views")
		},
		result: DetectionResult{Type: TypeViews, Label: "Views", Confidence: 85},
	},
	{
		name:      "interactions_header",
		platforms: []string{"instagram"},
		match: func(e *evidence) bool {
			return e.hasHeader("interações", "interactions")
		},
		result: DetectionResult{Type: TypeInteractions, Label: "Interactions", Confidence: 85},
	},
	{
		name:      "profile_visits_header",
		platforms: []string{"instagram"},
		match: func(e *evidence) bool {
			return e.hasHeader("visitas ao perfil", "profile visits")
		},
		result: DetectionResult{Type: TypeProfileVisits, Label: "Profile Visits", Confidence: 85},
	},
	{
		name:      "link_clicks_header",
		platforms: []string{"instagram"},
		match: func(e *evidence) bool {
			return e.hasHeader("cliques no link", "link clicks", "toques no link")
		},
		result: DetectionResult{Type: TypeLinkClicks, Label: "Link Clicks", Confidence: 85},
	},
}

// Classify inspects a file's raw text, headers, and mapped records and
// returns the detected CSV type. hint narrows the rule set to one
// platform's exports ("" considers every rule). The first matching rule
// wins; when nothing matches the result is Unknown, which the caller
// treats as a hard error.
func Classify(rawText string, headers []string, records []csvparse.Record, hint string) DetectionResult {
	e := &evidence{
		text:    strings.ToLower(rawText),
		headers: headers,
		records: records,
	}

	for _, r := range rules {
		if !r.appliesTo(hint) {
			continue
		}
		if r.match(e) {
			res := r.result
			if res.Type == TypeFollowers {
				res = classifyFollowers(e, res)
			}
			return res
		}
	}
	return Unknown()
}

func (r rule) appliesTo(hint string) bool {
	if hint == "" || len(r.platforms) == 0 {
		return true
	}
	for _, p := range r.platforms {
		if p == hint {
			return true
		}
	}
	return false
}
