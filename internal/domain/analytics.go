package domain

import "time"

// Platform enumerates the social platforms whose exports we ingest.
type Platform string

const (
	PlatformInstagram  Platform = "instagram"
	PlatformNewsletter Platform = "newsletter"
	PlatformYouTube    Platform = "youtube"
)

// InstagramPost is one published post for a client, keyed by
// (client_id, post_id). post_id is the platform's stable identifier;
// when an export lacks one we fall back to the permalink.
type InstagramPost struct {
	ClientID       string            `json:"client_id" db:"client_id"`
	PostID         string            `json:"post_id" db:"post_id"`
	PostType       string            `json:"post_type" db:"post_type"`
	Caption        string            `json:"caption" db:"caption"`
	PostedAt       time.Time         `json:"posted_at" db:"posted_at"`
	Likes          int               `json:"likes" db:"likes"`
	Comments       int               `json:"comments" db:"comments"`
	Shares         int               `json:"shares" db:"shares"`
	Saves          int               `json:"saves" db:"saves"`
	Reach          int               `json:"reach" db:"reach"`
	Impressions    int               `json:"impressions" db:"impressions"`
	EngagementRate float64           `json:"engagement_rate" db:"engagement_rate"`
	Permalink      string            `json:"permalink" db:"permalink"`
	Metadata       map[string]string `json:"metadata" db:"metadata"`
}

// InstagramStory is one published story, keyed by (client_id, story_id).
// Stories share most metric columns with posts but add navigation metrics.
type InstagramStory struct {
	ClientID    string            `json:"client_id" db:"client_id"`
	StoryID     string            `json:"story_id" db:"story_id"`
	Caption     string            `json:"caption" db:"caption"`
	PostedAt    time.Time         `json:"posted_at" db:"posted_at"`
	Reach       int               `json:"reach" db:"reach"`
	Impressions int               `json:"impressions" db:"impressions"`
	Replies     int               `json:"replies" db:"replies"`
	Shares      int               `json:"shares" db:"shares"`
	TapsForward int               `json:"taps_forward" db:"taps_forward"`
	TapsBack    int               `json:"taps_back" db:"taps_back"`
	Exits       int               `json:"exits" db:"exits"`
	Permalink   string            `json:"permalink" db:"permalink"`
	Metadata    map[string]string `json:"metadata" db:"metadata"`
}

// DailyMetricPoint is one day of platform metrics for a client, keyed by
// (client_id, platform, metric_date). Metrics is a flexible bag so that
// different export types for the same day (e.g. a newsletter "web
// performance" file and a "daily performance" file) can each contribute
// their own keys without clobbering the other's.
//
// Canonical metric keys: views, subscribers, open_rate, click_rate,
// reach, impressions, follower_change, interactions, profile_visits,
// link_clicks. Platform-specific extras keep their source column name.
type DailyMetricPoint struct {
	ClientID   string             `json:"client_id" db:"client_id"`
	Platform   Platform           `json:"platform" db:"platform"`
	MetricDate string             `json:"metric_date" db:"metric_date"` // YYYY-MM-DD
	Metrics    map[string]float64 `json:"metrics" db:"metrics"`
	Metadata   map[string]string  `json:"metadata" db:"metadata"`
}

// Metric returns the named metric and whether it is present.
func (p *DailyMetricPoint) Metric(name string) (float64, bool) {
	v, ok := p.Metrics[name]
	return v, ok
}

// SetMetric records a metric value, allocating the bag on first use.
func (p *DailyMetricPoint) SetMetric(name string, v float64) {
	if p.Metrics == nil {
		p.Metrics = make(map[string]float64)
	}
	p.Metrics[name] = v
}
