// Package postgres implements the service-layer repository contracts
// against PostgreSQL via database/sql and lib/pq. Map-valued fields
// (metric bags, metadata) are stored as JSONB.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kaleida/analytics-ingest/internal/domain"
	"github.com/kaleida/analytics-ingest/internal/service/imports"
)

// PostRepo implements imports.PostRepository against PostgreSQL.
// Posts and stories live in separate tables but share the natural-key
// (client_id, platform identifier) access pattern.
type PostRepo struct{ db *sql.DB }

// NewPostRepo creates a Postgres-backed post/story repository.
func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{db: db} }

func (r *PostRepo) GetPost(ctx context.Context, clientID, postID string) (*domain.InstagramPost, error) {
	p := &domain.InstagramPost{}
	var metadata []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT client_id, post_id, COALESCE(post_type,''), COALESCE(caption,''),
		       posted_at, likes, comments, shares, saves, reach, impressions,
		       engagement_rate, COALESCE(permalink,''), COALESCE(metadata,'{}')
		FROM analytics_posts
		WHERE client_id = $1 AND post_id = $2
	`, clientID, postID).Scan(
		&p.ClientID, &p.PostID, &p.PostType, &p.Caption,
		&p.PostedAt, &p.Likes, &p.Comments, &p.Shares, &p.Saves, &p.Reach, &p.Impressions,
		&p.EngagementRate, &p.Permalink, &metadata,
	)
	if err == sql.ErrNoRows {
		return nil, imports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	if err := unmarshalMap(metadata, &p.Metadata); err != nil {
		return nil, fmt.Errorf("get post metadata: %w", err)
	}
	return p, nil
}

func (r *PostRepo) PutPost(ctx context.Context, p *domain.InstagramPost) error {
	metadata, err := marshalMap(p.Metadata)
	if err != nil {
		return fmt.Errorf("put post metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analytics_posts
			(client_id, post_id, post_type, caption, posted_at, likes, comments,
			 shares, saves, reach, impressions, engagement_rate, permalink,
			 metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		ON CONFLICT (client_id, post_id) DO UPDATE SET
			post_type = EXCLUDED.post_type,
			caption = EXCLUDED.caption,
			posted_at = EXCLUDED.posted_at,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			saves = EXCLUDED.saves,
			reach = EXCLUDED.reach,
			impressions = EXCLUDED.impressions,
			engagement_rate = EXCLUDED.engagement_rate,
			permalink = EXCLUDED.permalink,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
	`, p.ClientID, p.PostID, p.PostType, p.Caption, p.PostedAt, p.Likes, p.Comments,
		p.Shares, p.Saves, p.Reach, p.Impressions, p.EngagementRate, p.Permalink, metadata)
	if err != nil {
		return fmt.Errorf("put post: %w", err)
	}
	return nil
}

func (r *PostRepo) GetStory(ctx context.Context, clientID, storyID string) (*domain.InstagramStory, error) {
	s := &domain.InstagramStory{}
	var metadata []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT client_id, story_id, COALESCE(caption,''), posted_at,
		       reach, impressions, replies, shares, taps_forward, taps_back, exits,
		       COALESCE(permalink,''), COALESCE(metadata,'{}')
		FROM analytics_stories
		WHERE client_id = $1 AND story_id = $2
	`, clientID, storyID).Scan(
		&s.ClientID, &s.StoryID, &s.Caption, &s.PostedAt,
		&s.Reach, &s.Impressions, &s.Replies, &s.Shares, &s.TapsForward, &s.TapsBack, &s.Exits,
		&s.Permalink, &metadata,
	)
	if err == sql.ErrNoRows {
		return nil, imports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get story: %w", err)
	}
	if err := unmarshalMap(metadata, &s.Metadata); err != nil {
		return nil, fmt.Errorf("get story metadata: %w", err)
	}
	return s, nil
}

func (r *PostRepo) PutStory(ctx context.Context, s *domain.InstagramStory) error {
	metadata, err := marshalMap(s.Metadata)
	if err != nil {
		return fmt.Errorf("put story metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analytics_stories
			(client_id, story_id, caption, posted_at, reach, impressions, replies,
			 shares, taps_forward, taps_back, exits, permalink, metadata,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		ON CONFLICT (client_id, story_id) DO UPDATE SET
			caption = EXCLUDED.caption,
			posted_at = EXCLUDED.posted_at,
			reach = EXCLUDED.reach,
			impressions = EXCLUDED.impressions,
			replies = EXCLUDED.replies,
			shares = EXCLUDED.shares,
			taps_forward = EXCLUDED.taps_forward,
			taps_back = EXCLUDED.taps_back,
			exits = EXCLUDED.exits,
			permalink = EXCLUDED.permalink,
			metadata = EXCLUDED.metadata,
			updated_at = NOW()
	`, s.ClientID, s.StoryID, s.Caption, s.PostedAt, s.Reach, s.Impressions, s.Replies,
		s.Shares, s.TapsForward, s.TapsBack, s.Exits, s.Permalink, metadata)
	if err != nil {
		return fmt.Errorf("put story: %w", err)
	}
	return nil
}

// marshalMap serializes a map for a JSONB column, writing '{}' for an
// empty or nil map so reads never see JSON null.
func marshalMap[V any](m map[string]V) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func unmarshalMap(raw []byte, dst interface{}) error {
	if len(raw) == 0 || string(raw) == "{}" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
