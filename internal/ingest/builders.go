package ingest

import (
	"math"
	"sort"

	"github.com/kaleida/analytics-ingest/internal/classify"
	"github.com/kaleida/analytics-ingest/internal/csvparse"
	"github.com/kaleida/analytics-ingest/internal/domain"
)

// Column name variants, unified across locales and export versions.
// Lookups go through Record.Get (exact) or Record.Find (substring).
var (
	colsDate      = []string{"data", "date", "dia", "day"}
	colsPostID    = []string{"identificação do post", "post id", "id"}
	colsStoryID   = []string{"identificação da story", "story id", "id"}
	colsPermalink = []string{"link permanente", "permalink"}
	colsCaption   = []string{"descrição", "legenda", "caption", "description"}
	colsPostType  = []string{"tipo de post", "post type", "tipo"}
	colsPostedAt  = []string{"horário de publicação", "publish time", "data de publicação", "data", "date"}
)

// BuildOutput holds the typed records produced from one file plus the
// count of rows that were skipped for missing required fields.
type BuildOutput struct {
	Posts   []domain.InstagramPost
	Stories []domain.InstagramStory
	Daily   []domain.DailyMetricPoint

	// Invalid counts rows excluded for missing required fields. Partial
	// success is expected and reported, never fatal.
	Invalid int

	// DateAssumption names the date pattern that matched, for user
	// confirmation on the validation report.
	DateAssumption string
}

// Build converts sanitized generic records into typed domain records for
// the detected CSV type. It never returns an error: unusable rows are
// tallied as Invalid.
func Build(clientID string, platform domain.Platform, det classify.DetectionResult, records []csvparse.Record) BuildOutput {
	switch det.Type {
	case classify.TypePosts:
		return buildPosts(clientID, records)
	case classify.TypeStories:
		return buildStories(clientID, records)
	default:
		return buildDaily(clientID, platform, det, records)
	}
}

func buildPosts(clientID string, records []csvparse.Record) BuildOutput {
	var out BuildOutput
	for _, rec := range records {
		postedAt, assumption, err := ParseExportDate(rec.Get(colsPostedAt...))
		permalink := rec.Get(colsPermalink...)
		if err != nil || permalink == "" {
			out.Invalid++
			continue
		}
		if out.DateAssumption == "" {
			out.DateAssumption = assumption
		}

		postID := rec.Get(colsPostID...)
		if postID == "" {
			postID = permalink
		}

		p := domain.InstagramPost{
			ClientID:    clientID,
			PostID:      postID,
			PostType:    rec.Get(colsPostType...),
			Caption:     rec.Get(colsCaption...),
			PostedAt:    postedAt,
			Likes:       csvparse.LenientInt(rec.Find("curtidas", "likes")),
			Comments:    csvparse.LenientInt(rec.Find("comentários", "comments")),
			Shares:      csvparse.LenientInt(rec.Find("compartilhamentos", "shares")),
			Saves:       csvparse.LenientInt(rec.Find("salvamentos", "itens salvos", "saves")),
			Reach:       csvparse.LenientInt(rec.Find("alcance", "reach")),
			Impressions: csvparse.LenientInt(rec.Find("impressões", "impressions")),
			Permalink:   permalink,
		}

		if raw := rec.Find("taxa de engajamento", "engagement rate"); raw != "" {
			p.EngagementRate = csvparse.LenientFloat(raw)
		} else {
			p.EngagementRate = engagementRate(p)
		}

		out.Posts = append(out.Posts, p)
	}
	return out
}

func buildStories(clientID string, records []csvparse.Record) BuildOutput {
	var out BuildOutput
	for _, rec := range records {
		postedAt, assumption, err := ParseExportDate(rec.Get(colsPostedAt...))
		if err != nil {
			out.Invalid++
			continue
		}
		if out.DateAssumption == "" {
			out.DateAssumption = assumption
		}

		permalink := rec.Get(colsPermalink...)
		storyID := rec.Get(colsStoryID...)
		if storyID == "" {
			storyID = permalink
		}
		if storyID == "" {
			out.Invalid++
			continue
		}

		out.Stories = append(out.Stories, domain.InstagramStory{
			ClientID:    clientID,
			StoryID:     storyID,
			Caption:     rec.Get(colsCaption...),
			PostedAt:    postedAt,
			Reach:       csvparse.LenientInt(rec.Find("alcance", "reach")),
			Impressions: csvparse.LenientInt(rec.Find("impressões", "impressions")),
			Replies:     csvparse.LenientInt(rec.Find("respostas", "replies")),
			Shares:      csvparse.LenientInt(rec.Find("compartilhamentos", "shares")),
			TapsForward: csvparse.LenientInt(rec.Find("avançar", "taps forward")),
			TapsBack:    csvparse.LenientInt(rec.Find("voltar", "taps back")),
			Exits:       csvparse.LenientInt(rec.Find("saídas", "exits")),
			Permalink:   permalink,
		})
	}
	return out
}

// dailyMetricColumns maps each daily CSV type to its canonical metric key
// and the column name fragments that carry the value.
var dailyMetricColumns = map[classify.CSVType]struct {
	key  string
	cols []string
}{
	classify.TypeReach:             {"reach", []string{"alcance", "reach"}},
	classify.TypeViews:             {"views", []string{"visualizações", "views"}},
	classify.TypeInteractions:      {"interactions", []string{"interações", "interactions"}},
	classify.TypeProfileVisits:     {"profile_visits", []string{"visitas ao perfil", "profile visits"}},
	classify.TypeLinkClicks:        {"link_clicks", []string{"cliques no link", "link clicks", "toques no link"}},
	classify.TypeFollowers:         {"follower_change", []string{"seguidores", "followers", "inscritos", "subscribers gained"}},
	classify.TypeFollowersAbsolute: {"followers_total", []string{"seguidores", "followers", "inscritos"}},
}

func buildDaily(clientID string, platform domain.Platform, det classify.DetectionResult, records []csvparse.Record) BuildOutput {
	var out BuildOutput
	for _, rec := range records {
		t, assumption, err := ParseExportDate(rec.Get(colsDate...))
		if err != nil {
			out.Invalid++
			continue
		}
		if out.DateAssumption == "" {
			out.DateAssumption = assumption
		}

		point := domain.DailyMetricPoint{
			ClientID:   clientID,
			Platform:   platform,
			MetricDate: MetricDate(t),
		}

		switch det.Type {
		case classify.TypeNewsletterDaily:
			if v := rec.Find("open rate", "taxa de abertura"); v != "" {
				point.SetMetric("open_rate", csvparse.LenientFloat(v))
			}
			if v := rec.Find("click rate", "taxa de clique"); v != "" {
				point.SetMetric("click_rate", csvparse.LenientFloat(v))
			}
			if v := rec.Find("subscribers", "assinantes", "inscritos"); v != "" {
				point.SetMetric("subscribers", float64(csvparse.LenientInt(v)))
			}
			if v := rec.Find("views", "visualizações", "aberturas"); v != "" {
				point.SetMetric("views", float64(csvparse.LenientInt(v)))
			}
		case classify.TypeNewsletterWeb:
			if v := rec.Find("page views", "web views", "visualizações"); v != "" {
				point.SetMetric("views", float64(csvparse.LenientInt(v)))
			}
			if v := rec.Find("visitantes", "visitors"); v != "" {
				point.SetMetric("visitors", float64(csvparse.LenientInt(v)))
			}
		default:
			spec, ok := dailyMetricColumns[det.Type]
			if !ok {
				out.Invalid++
				continue
			}
			point.SetMetric(spec.key, float64(csvparse.LenientInt(rec.Find(spec.cols...))))
		}

		if len(point.Metrics) == 0 {
			out.Invalid++
			continue
		}
		out.Daily = append(out.Daily, point)
	}

	if det.NeedsConversion && det.ConversionType == classify.ConversionAbsoluteToIncremental {
		out.Daily = convertAbsoluteFollowers(out.Daily)
	}

	return out
}

// convertAbsoluteFollowers turns a running follower total into
// day-over-day deltas. The earliest row has no baseline and is dropped;
// the raw total is preserved alongside the delta so the absolute count
// is not lost.
func convertAbsoluteFollowers(points []domain.DailyMetricPoint) []domain.DailyMetricPoint {
	if len(points) < 2 {
		return nil
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].MetricDate < points[j].MetricDate
	})

	out := make([]domain.DailyMetricPoint, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev, _ := points[i-1].Metric("followers_total")
		cur, _ := points[i].Metric("followers_total")
		p := points[i]
		p.SetMetric("follower_change", cur-prev)
		out = append(out, p)
	}
	return out
}

// engagementRate computes the rate the source omitted:
// interactions over reach (or impressions), as a percentage rounded to
// 2 decimals.
func engagementRate(p domain.InstagramPost) float64 {
	base := p.Reach
	if base == 0 {
		base = p.Impressions
	}
	if base == 0 {
		return 0
	}
	interactions := p.Likes + p.Comments + p.Saves + p.Shares
	rate := float64(interactions) / float64(base) * 100
	return math.Round(rate*100) / 100
}
