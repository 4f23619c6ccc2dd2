package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kaleida/analytics-ingest/internal/domain"
	"github.com/kaleida/analytics-ingest/internal/service/imports"
)

func setupRepoTest(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPostRepoGetPostNotFound(t *testing.T) {
	db, mock := setupRepoTest(t)
	mock.ExpectQuery("(?s)SELECT .+ FROM analytics_posts").
		WithArgs("c1", "p1").
		WillReturnError(sql.ErrNoRows)

	_, err := NewPostRepo(db).GetPost(context.Background(), "c1", "p1")
	if !errors.Is(err, imports.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPostRepoGetPost(t *testing.T) {
	db, mock := setupRepoTest(t)
	postedAt := time.Date(2024, 6, 15, 13, 45, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"client_id", "post_id", "post_type", "caption", "posted_at",
		"likes", "comments", "shares", "saves", "reach", "impressions",
		"engagement_rate", "permalink", "metadata",
	}).AddRow("c1", "p1", "Reel", "hello", postedAt,
		100, 20, 5, 15, 2000, 2500, 7.0, "https://insta/p/p1",
		[]byte(`{"source":"export.csv"}`))

	mock.ExpectQuery("(?s)SELECT .+ FROM analytics_posts").
		WithArgs("c1", "p1").
		WillReturnRows(rows)

	p, err := NewPostRepo(db).GetPost(context.Background(), "c1", "p1")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if p.Likes != 100 || p.PostType != "Reel" {
		t.Errorf("post = %+v", p)
	}
	if p.Metadata["source"] != "export.csv" {
		t.Errorf("Metadata = %v", p.Metadata)
	}
}

func TestPostRepoPutPostUpserts(t *testing.T) {
	db, mock := setupRepoTest(t)
	mock.ExpectExec("(?s)INSERT INTO analytics_posts .+ ON CONFLICT \\(client_id, post_id\\) DO UPDATE").
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &domain.InstagramPost{ClientID: "c1", PostID: "p1", Likes: 100}
	if err := NewPostRepo(db).PutPost(context.Background(), p); err != nil {
		t.Fatalf("PutPost: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMetricRepoRoundTrip(t *testing.T) {
	db, mock := setupRepoTest(t)

	mock.ExpectQuery("(?s)SELECT .+ FROM analytics_daily_metrics").
		WithArgs("c1", "newsletter", "2024-06-15").
		WillReturnRows(sqlmock.NewRows([]string{
			"client_id", "platform", "metric_date", "metrics", "metadata",
		}).AddRow("c1", "newsletter", "2024-06-15",
			[]byte(`{"open_rate":45.2}`), []byte(`{}`)))

	repo := NewMetricRepo(db)
	p, err := repo.GetDaily(context.Background(), "c1", domain.PlatformNewsletter, "2024-06-15")
	if err != nil {
		t.Fatalf("GetDaily: %v", err)
	}
	if p.Metrics["open_rate"] != 45.2 {
		t.Errorf("Metrics = %v", p.Metrics)
	}

	mock.ExpectExec("(?s)INSERT INTO analytics_daily_metrics .+ ON CONFLICT \\(client_id, platform, metric_date\\) DO UPDATE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.PutDaily(context.Background(), p); err != nil {
		t.Fatalf("PutDaily: %v", err)
	}
}

func TestMetricRepoGetDailyNotFound(t *testing.T) {
	db, mock := setupRepoTest(t)
	mock.ExpectQuery("(?s)SELECT .+ FROM analytics_daily_metrics").
		WillReturnError(sql.ErrNoRows)

	_, err := NewMetricRepo(db).GetDaily(context.Background(), "c1", domain.PlatformInstagram, "2024-06-15")
	if !errors.Is(err, imports.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestImportLogClaim(t *testing.T) {
	db, mock := setupRepoTest(t)
	repo := NewImportLogRepo(db)

	mock.ExpectExec("(?s)UPDATE analytics_import_log").
		WithArgs("drop/insta.csv").
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.Claim(context.Background(), "drop/insta.csv")
	if err != nil || !ok {
		t.Fatalf("Claim = %v, %v, want true, nil", ok, err)
	}

	// Second claim: another worker already has it.
	mock.ExpectExec("(?s)UPDATE analytics_import_log").
		WithArgs("drop/insta.csv").
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.Claim(context.Background(), "drop/insta.csv")
	if err != nil || ok {
		t.Fatalf("Claim = %v, %v, want false, nil", ok, err)
	}
}

func TestImportLogEnqueueIdempotent(t *testing.T) {
	db, mock := setupRepoTest(t)
	repo := NewImportLogRepo(db)
	f := &domain.ImportFile{OriginalKey: "drop/insta.csv", ClientID: "c1", Platform: domain.PlatformInstagram, FileSize: 512}

	mock.ExpectExec("(?s)INSERT INTO analytics_import_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	inserted, err := repo.Enqueue(context.Background(), f)
	if err != nil || !inserted {
		t.Fatalf("first Enqueue = %v, %v", inserted, err)
	}

	mock.ExpectExec("(?s)INSERT INTO analytics_import_log").
		WillReturnResult(sqlmock.NewResult(0, 0))
	inserted, err = repo.Enqueue(context.Background(), f)
	if err != nil || inserted {
		t.Fatalf("repeat Enqueue = %v, %v, want false (ON CONFLICT no-op)", inserted, err)
	}
}

func TestImportLogStats(t *testing.T) {
	db, mock := setupRepoTest(t)
	mock.ExpectQuery("(?s)SELECT status, COUNT\\(\\*\\) FROM analytics_import_log").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 3).
			AddRow("completed", 41))

	stats, err := NewImportLogRepo(db).Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["pending"] != 3 || stats["completed"] != 41 {
		t.Errorf("stats = %v", stats)
	}
}
