// Package merge implements the conflict-resolution policies applied when
// an import collides with already-persisted data.
//
// Re-imports of overlapping date ranges are routine (users re-export a
// month that was already partially imported), so every policy here is
// additive: applying the same file twice is a no-op, and a later partial
// export can never regress previously-good data.
package merge

import "github.com/kaleida/analytics-ingest/internal/domain"

// Post merges an incoming post into the existing row for the same
// (client_id, post_id). Each metric is overwritten only if the incoming
// value is strictly greater — overlapping exports report the same post
// at different points in time, and counters only grow. Non-metric fields
// take the incoming value when it is explicitly provided.
func Post(existing, incoming *domain.InstagramPost) *domain.InstagramPost {
	if existing == nil {
		return incoming
	}

	out := *existing
	out.Likes = maxInt(existing.Likes, incoming.Likes)
	out.Comments = maxInt(existing.Comments, incoming.Comments)
	out.Shares = maxInt(existing.Shares, incoming.Shares)
	out.Saves = maxInt(existing.Saves, incoming.Saves)
	out.Reach = maxInt(existing.Reach, incoming.Reach)
	out.Impressions = maxInt(existing.Impressions, incoming.Impressions)
	if incoming.EngagementRate > existing.EngagementRate {
		out.EngagementRate = incoming.EngagementRate
	}

	if incoming.Caption != "" {
		out.Caption = incoming.Caption
	}
	if incoming.PostType != "" {
		out.PostType = incoming.PostType
	}
	if incoming.Permalink != "" {
		out.Permalink = incoming.Permalink
	}
	if !incoming.PostedAt.IsZero() {
		out.PostedAt = incoming.PostedAt
	}
	out.Metadata = mergeStringMap(existing.Metadata, incoming.Metadata)

	return &out
}

// Story merges an incoming story into the existing row for the same
// (client_id, story_id), with the same additive policy as Post.
func Story(existing, incoming *domain.InstagramStory) *domain.InstagramStory {
	if existing == nil {
		return incoming
	}

	out := *existing
	out.Reach = maxInt(existing.Reach, incoming.Reach)
	out.Impressions = maxInt(existing.Impressions, incoming.Impressions)
	out.Replies = maxInt(existing.Replies, incoming.Replies)
	out.Shares = maxInt(existing.Shares, incoming.Shares)
	out.TapsForward = maxInt(existing.TapsForward, incoming.TapsForward)
	out.TapsBack = maxInt(existing.TapsBack, incoming.TapsBack)
	out.Exits = maxInt(existing.Exits, incoming.Exits)

	if incoming.Caption != "" {
		out.Caption = incoming.Caption
	}
	if incoming.Permalink != "" {
		out.Permalink = incoming.Permalink
	}
	if !incoming.PostedAt.IsZero() {
		out.PostedAt = incoming.PostedAt
	}
	out.Metadata = mergeStringMap(existing.Metadata, incoming.Metadata)

	return &out
}

// Daily merges an incoming day of metrics into the existing row for the
// same (client_id, platform, metric_date). Only keys the new file
// actually reports are written; everything else is preserved from the
// prior row. This is what lets a "web performance" file and a "daily
// performance" file for the same newsletter fill in different halves of
// the same date row.
func Daily(existing, incoming *domain.DailyMetricPoint) *domain.DailyMetricPoint {
	if existing == nil {
		return incoming
	}

	out := *existing
	out.Metrics = make(map[string]float64, len(existing.Metrics)+len(incoming.Metrics))
	for k, v := range existing.Metrics {
		out.Metrics[k] = v
	}
	for k, v := range incoming.Metrics {
		out.Metrics[k] = v
	}
	out.Metadata = mergeStringMap(existing.Metadata, incoming.Metadata)

	return &out
}

func mergeStringMap(existing, incoming map[string]string) map[string]string {
	if len(existing) == 0 && len(incoming) == 0 {
		return nil
	}
	out := make(map[string]string, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range incoming {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func maxInt(a, b int) int {
	if b > a {
		return b
	}
	return a
}
