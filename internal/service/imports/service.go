package imports

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kaleida/analytics-ingest/internal/domain"
	"github.com/kaleida/analytics-ingest/internal/ingest"
	"github.com/kaleida/analytics-ingest/internal/merge"
)

// File is one uploaded CSV in a batch.
type File struct {
	Name     string          `json:"name"`
	Platform domain.Platform `json:"platform"`
	Content  string          `json:"-"`
}

// FileResult reports the outcome of importing one file.
type FileResult struct {
	Name       string                   `json:"name"`
	Validation *ingest.ValidationResult `json:"validation"`
	Created    int                      `json:"created"`
	Updated    int                      `json:"updated"`
	Skipped    int                      `json:"skipped"`
	Errors     []string                 `json:"errors,omitempty"`
}

// BatchResult aggregates per-file outcomes plus the final daily-metric
// flush.
type BatchResult struct {
	Files   []FileResult `json:"files"`
	Created int          `json:"created"`
	Updated int          `json:"updated"`
	Errors  []string     `json:"errors,omitempty"`
}

// Service coordinates validation, record building, and merge-aware
// persistence for analytics imports.
type Service struct {
	posts    PostRepository
	metrics  MetricRepository
	progress ProgressSink // optional
}

// NewService creates an imports service. progress may be nil.
func NewService(posts PostRepository, metrics MetricRepository, progress ProgressSink) *Service {
	return &Service{posts: posts, metrics: metrics, progress: progress}
}

// Validate runs the dry-run pipeline for one file without touching
// persistence. The returned report is shown to the user before commit.
func (s *Service) Validate(ctx context.Context, clientID string, f File) (*ingest.ValidationResult, error) {
	if clientID == "" {
		return nil, ErrNoClient
	}
	return ingest.Validate(f.Content, f.Platform), nil
}

// ImportBatch validates and commits a batch of files sequentially.
// Files are processed in the order given: later files may need to see
// merge state left by earlier ones, so there is no interleaving. A file
// that fails validation or panics mid-parse is converted into an
// error-typed FileResult and its siblings still run. Daily metrics from
// every file accumulate in one aggregator owned by this call and are
// flushed once at the end.
func (s *Service) ImportBatch(ctx context.Context, clientID, jobID string, files []File) (*BatchResult, error) {
	if clientID == "" {
		return nil, ErrNoClient
	}

	res := &BatchResult{}
	agg := NewDailyAggregator(clientID)

	s.setPhase(ctx, jobID, "importing")
	for i, f := range files {
		fr := s.importFile(ctx, clientID, jobID, f, agg)
		res.Files = append(res.Files, fr)
		res.Created += fr.Created
		res.Updated += fr.Updated
		for _, e := range fr.Errors {
			res.Errors = append(res.Errors, f.Name+": "+e)
		}
		s.recordRows(ctx, jobID, i+1, len(files))
	}

	s.setPhase(ctx, jobID, "flushing")
	created, updated, errs := agg.Flush(ctx, s.metrics)
	res.Created += created
	res.Updated += updated
	res.Errors = append(res.Errors, errs...)
	for _, e := range errs {
		s.recordError(ctx, jobID, e)
	}

	s.setPhase(ctx, jobID, "completed")
	return res, nil
}

// importFile runs one file end to end. Post/story upserts are applied
// immediately in file order; daily metrics go to the batch aggregator.
// All failure modes end up in the FileResult, never as a panic or a
// returned error, so sibling files are isolated.
func (s *Service) importFile(ctx context.Context, clientID, jobID string, f File, agg *DailyAggregator) (fr FileResult) {
	fr.Name = f.Name

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[imports] panic processing %s: %v", f.Name, r)
			fr.Errors = append(fr.Errors, fmt.Sprintf("internal error: %v", r))
		}
	}()

	v := ingest.Validate(f.Content, f.Platform)
	fr.Validation = v
	if !v.IsValid() {
		fr.Errors = append(fr.Errors, v.Errors...)
		return fr
	}

	built := ingest.Build(clientID, f.Platform, v.Detection, v.RawData)
	fr.Skipped = built.Invalid

	for i := range built.Posts {
		if err := s.upsertPost(ctx, clientID, &built.Posts[i], &fr); err != nil {
			fr.Errors = append(fr.Errors, err.Error())
			s.recordError(ctx, jobID, f.Name+": "+err.Error())
		}
	}
	for i := range built.Stories {
		if err := s.upsertStory(ctx, clientID, &built.Stories[i], &fr); err != nil {
			fr.Errors = append(fr.Errors, err.Error())
			s.recordError(ctx, jobID, f.Name+": "+err.Error())
		}
	}
	for _, p := range built.Daily {
		agg.Add(p)
	}

	return fr
}

// upsertPost applies the read-merge-write sequence for one post. The
// two-step fetch-then-write is not atomic; imports for one client are
// expected to run single-writer (see the batch ordering contract above).
func (s *Service) upsertPost(ctx context.Context, clientID string, p *domain.InstagramPost, fr *FileResult) error {
	existing, err := s.posts.GetPost(ctx, clientID, p.PostID)
	switch {
	case err == nil:
		merged := merge.Post(existing, p)
		if err := s.posts.PutPost(ctx, merged); err != nil {
			return fmt.Errorf("update post %s: %w", p.PostID, err)
		}
		fr.Updated++
	case errors.Is(err, ErrNotFound):
		if err := s.posts.PutPost(ctx, p); err != nil {
			return fmt.Errorf("insert post %s: %w", p.PostID, err)
		}
		fr.Created++
	default:
		return fmt.Errorf("fetch post %s: %w", p.PostID, err)
	}
	return nil
}

func (s *Service) upsertStory(ctx context.Context, clientID string, st *domain.InstagramStory, fr *FileResult) error {
	existing, err := s.posts.GetStory(ctx, clientID, st.StoryID)
	switch {
	case err == nil:
		merged := merge.Story(existing, st)
		if err := s.posts.PutStory(ctx, merged); err != nil {
			return fmt.Errorf("update story %s: %w", st.StoryID, err)
		}
		fr.Updated++
	case errors.Is(err, ErrNotFound):
		if err := s.posts.PutStory(ctx, st); err != nil {
			return fmt.Errorf("insert story %s: %w", st.StoryID, err)
		}
		fr.Created++
	default:
		return fmt.Errorf("fetch story %s: %w", st.StoryID, err)
	}
	return nil
}

func (s *Service) setPhase(ctx context.Context, jobID, phase string) {
	if s.progress != nil && jobID != "" {
		s.progress.SetPhase(ctx, jobID, phase)
	}
}

func (s *Service) recordRows(ctx context.Context, jobID string, processed, total int) {
	if s.progress != nil && jobID != "" {
		s.progress.RecordRows(ctx, jobID, processed, total)
	}
}

func (s *Service) recordError(ctx context.Context, jobID, msg string) {
	if s.progress != nil && jobID != "" {
		s.progress.RecordError(ctx, jobID, msg)
	}
}
