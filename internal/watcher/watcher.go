// Package watcher polls a tenant drop bucket for new analytics exports
// and runs them through the import pipeline without a user in the loop.
//
// Drop keys follow <client_id>/<platform>/<name>.csv; files already
// under processed/ are ignored. Every discovered file is registered in
// the import log and claimed through a conditional status update, so
// several workers can share one bucket without double-importing.
package watcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kaleida/analytics-ingest/internal/domain"
	"github.com/kaleida/analytics-ingest/internal/service/imports"
)

// Config tunes one watcher instance.
type Config struct {
	Region     string
	AWSProfile string
	Bucket     string

	// DefaultClientID is used for keys that do not carry a client
	// prefix. Empty means such keys are skipped.
	DefaultClientID string

	Interval    time.Duration
	BatchSize   int
	Concurrency int
	MaxRetries  int
}

// Queue is the import-log contract the watcher depends on. The
// Postgres implementation lives in internal/repository/postgres.
type Queue interface {
	Enqueue(ctx context.Context, f *domain.ImportFile) (bool, error)
	NextPending(ctx context.Context, limit int) ([]string, error)
	Claim(ctx context.Context, key string) (bool, error)
	SetClassification(ctx context.Context, key, renamedKey, detectedType string) error
	Complete(ctx context.Context, key string, recordCount, errorCount int) error
	Fail(ctx context.Context, key, msg string) error
	ResumeStuck(ctx context.Context, maxRetries int) error
	Stats(ctx context.Context) (map[string]int, error)
}

// Importer runs one file batch through validation and persistence.
type Importer interface {
	ImportBatch(ctx context.Context, clientID, jobID string, files []imports.File) (*imports.BatchResult, error)
}

// objectStore is the S3 surface the watcher uses, narrowed for tests.
type objectStore interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, opts ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Watcher discovers, claims, and imports drop-bucket files on a timer.
type Watcher struct {
	store    objectStore
	queue    Queue
	importer Importer
	cfg      Config

	ctx       context.Context
	cancel    context.CancelFunc
	running   int32
	healthy   atomic.Bool
	lastRunAt atomic.Int64 // unix seconds

	titleCaser cases.Caser
}

// New creates a watcher backed by a real S3 client.
func New(queue Queue, importer Importer, cfg Config) (*Watcher, error) {
	ctx := context.Background()

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AWSProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return newWith(s3.NewFromConfig(awsCfg), queue, importer, cfg), nil
}

func newWith(store objectStore, queue Queue, importer Importer, cfg Config) *Watcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	w := &Watcher{
		store:      store,
		queue:      queue,
		importer:   importer,
		cfg:        cfg,
		titleCaser: cases.Title(language.English),
	}
	w.healthy.Store(true)
	return w
}

// Start launches the polling loop. Stuck files from a prior crash are
// requeued before the first cycle.
func (w *Watcher) Start() {
	w.ctx, w.cancel = context.WithCancel(context.Background())
	go func() {
		if err := w.queue.ResumeStuck(w.ctx, w.cfg.MaxRetries); err != nil {
			log.Printf("[watcher] resume stuck files: %v", err)
		}
		w.runOnce()
		ticker := time.NewTicker(w.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.runOnce()
			}
		}
	}()
}

// Stop cancels the polling loop.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

func (w *Watcher) IsHealthy() bool { return w.healthy.Load() }
func (w *Watcher) IsRunning() bool { return atomic.LoadInt32(&w.running) == 1 }
func (w *Watcher) LastRunAt() time.Time {
	sec := w.lastRunAt.Load()
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// ManualTrigger runs a single cycle immediately, for the API endpoint.
func (w *Watcher) ManualTrigger() {
	go w.runOnce()
}

// runOnce executes one cycle: discover new files, then drain a batch
// from the queue. Overlapping cycles are collapsed into one.
func (w *Watcher) runOnce() {
	if !atomic.CompareAndSwapInt32(&w.running, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&w.running, 0)

	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	w.lastRunAt.Store(time.Now().Unix())
	w.healthy.Store(true)

	w.discover(ctx)
	w.drainQueue(ctx)
}

// discover lists the bucket and registers every new CSV as pending.
func (w *Watcher) discover(ctx context.Context) {
	var token *string
	discovered := 0
	for {
		if ctx.Err() != nil {
			return
		}
		page, err := w.store.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(w.cfg.Bucket),
			ContinuationToken: token,
		})
		if err != nil {
			log.Printf("[watcher] list objects: %v", err)
			w.healthy.Store(false)
			return
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if obj.Size == nil || *obj.Size == 0 {
				continue
			}
			if strings.HasPrefix(key, "processed/") {
				continue
			}
			if !strings.HasSuffix(strings.ToLower(key), ".csv") {
				continue
			}
			clientID, platform := parseDropKey(key, w.cfg.DefaultClientID)
			if clientID == "" {
				log.Printf("[watcher] skipping %s: no client prefix and no default client", key)
				continue
			}

			inserted, err := w.queue.Enqueue(ctx, &domain.ImportFile{
				OriginalKey: key,
				ClientID:    clientID,
				Platform:    platform,
				FileSize:    *obj.Size,
			})
			if err != nil {
				log.Printf("[watcher] enqueue %s: %v", key, err)
				continue
			}
			if inserted {
				discovered++
			}
		}

		if page.IsTruncated == nil || !*page.IsTruncated {
			break
		}
		token = page.NextContinuationToken
	}

	if discovered > 0 {
		log.Printf("[watcher] discovered %d new files", discovered)
	}
}

// drainQueue claims and processes a batch of pending files with bounded
// concurrency. Per-file failures are recorded on the import log and do
// not affect siblings.
func (w *Watcher) drainQueue(ctx context.Context) {
	keys, err := w.queue.NextPending(ctx, w.cfg.BatchSize)
	if err != nil {
		log.Printf("[watcher] query queue: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}

	log.Printf("[watcher] processing batch of %d files", len(keys))

	// Daily-metric upserts are read-merge-write on the (client, platform,
	// date) natural key, so two files for the same client must never run
	// concurrently. Keys are grouped by client; groups fan out, files
	// inside a group run in queue order.
	groups := make(map[string][]string)
	var clients []string
	for _, key := range keys {
		clientID, _ := parseDropKey(key, w.cfg.DefaultClientID)
		if _, ok := groups[clientID]; !ok {
			clients = append(clients, clientID)
		}
		groups[clientID] = append(groups[clientID], key)
	}

	sem := make(chan struct{}, w.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, client := range clients {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(ks []string) {
			defer wg.Done()
			defer func() { <-sem }()
			for _, k := range ks {
				if ctx.Err() != nil {
					return
				}
				if err := w.processFile(ctx, k); err != nil {
					log.Printf("[watcher] process %s: %v", k, err)
				}
			}
		}(groups[client])
	}
	wg.Wait()
}

// processFile runs one claimed file end to end: download, import,
// rename into processed/.
func (w *Watcher) processFile(ctx context.Context, key string) error {
	claimed, err := w.queue.Claim(ctx, key)
	if err != nil {
		return fmt.Errorf("claim: %w", err)
	}
	if !claimed {
		return nil
	}

	clientID, platform := parseDropKey(key, w.cfg.DefaultClientID)

	obj, err := w.store.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(w.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		w.fail(ctx, key, fmt.Sprintf("get object: %v", err))
		return fmt.Errorf("get object: %w", err)
	}
	body, err := io.ReadAll(obj.Body)
	obj.Body.Close()
	if err != nil {
		w.fail(ctx, key, fmt.Sprintf("read object: %v", err))
		return fmt.Errorf("read object: %w", err)
	}

	jobID := fmt.Sprintf("watcher-%s", key)
	res, err := w.importer.ImportBatch(ctx, clientID, jobID, []imports.File{
		{Name: key, Platform: platform, Content: string(body)},
	})
	if err != nil {
		w.fail(ctx, key, err.Error())
		return fmt.Errorf("import: %w", err)
	}

	fr := res.Files[0]
	if fr.Validation == nil || !fr.Validation.IsValid() {
		w.fail(ctx, key, strings.Join(fr.Errors, "; "))
		log.Printf("[watcher] rejected %s: %v", key, fr.Errors)
		return nil
	}

	// The archive key embeds the UTC processing time and the original
	// file name, so keys stay unique across restarts and never overwrite
	// an earlier archive.
	label := w.titleCaser.String(strings.ReplaceAll(string(fr.Validation.DetectedType), "_", " "))
	renamedKey := fmt.Sprintf("processed/%s-%s-%s",
		time.Now().UTC().Format("20060102T150405Z"),
		strings.ReplaceAll(label, " ", ""), path.Base(key))
	if err := w.queue.SetClassification(ctx, key, renamedKey, string(fr.Validation.DetectedType)); err != nil {
		log.Printf("[watcher] record classification %s: %v", key, err)
	}

	imported := res.Created + res.Updated
	if err := w.queue.Complete(ctx, key, imported, len(fr.Errors)); err != nil {
		log.Printf("[watcher] mark completed %s: %v", key, err)
	}

	w.archive(ctx, key, renamedKey)

	log.Printf("[watcher] completed %s -> %s: created=%d updated=%d skipped=%d type=%s",
		key, renamedKey, res.Created, res.Updated, fr.Skipped, fr.Validation.DetectedType)
	return nil
}

// archive copies the original under processed/ and deletes it. A failed
// copy leaves the original in place; discovery skips it because the
// import log already knows the key.
func (w *Watcher) archive(ctx context.Context, key, renamedKey string) {
	_, err := w.store.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(w.cfg.Bucket),
		CopySource: aws.String(w.cfg.Bucket + "/" + key),
		Key:        aws.String(renamedKey),
	})
	if err != nil {
		log.Printf("[watcher] copy %s -> %s: %v", key, renamedKey, err)
		return
	}
	if _, err := w.store.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(w.cfg.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		log.Printf("[watcher] delete original %s: %v", key, err)
	}
}

func (w *Watcher) fail(ctx context.Context, key, msg string) {
	if err := w.queue.Fail(ctx, key, msg); err != nil {
		log.Printf("[watcher] mark failed %s: %v", key, err)
	}
}

// Status summarizes the watcher for the API.
type Status struct {
	Healthy   bool           `json:"healthy"`
	Running   bool           `json:"running"`
	LastRunAt time.Time      `json:"last_run_at"`
	Queue     map[string]int `json:"queue"`
}

// Status reports health, activity, and queue counts.
func (w *Watcher) Status(ctx context.Context) (*Status, error) {
	stats, err := w.queue.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		Healthy:   w.IsHealthy(),
		Running:   w.IsRunning(),
		LastRunAt: w.LastRunAt(),
		Queue:     stats,
	}, nil
}

// parseDropKey extracts the client and platform from a drop key shaped
// <client_id>/<platform>/<name>.csv. A key without a recognizable
// platform segment defaults to instagram; a key without a client prefix
// falls back to the configured default.
func parseDropKey(key, defaultClient string) (string, domain.Platform) {
	parts := strings.Split(key, "/")
	if len(parts) >= 3 {
		if p, ok := platformFromSegment(parts[1]); ok {
			return parts[0], p
		}
	}
	if len(parts) == 2 {
		if p, ok := platformFromSegment(parts[0]); ok {
			return defaultClient, p
		}
		return parts[0], domain.PlatformInstagram
	}
	return defaultClient, domain.PlatformInstagram
}

func platformFromSegment(s string) (domain.Platform, bool) {
	switch domain.Platform(strings.ToLower(s)) {
	case domain.PlatformInstagram:
		return domain.PlatformInstagram, true
	case domain.PlatformNewsletter:
		return domain.PlatformNewsletter, true
	case domain.PlatformYouTube:
		return domain.PlatformYouTube, true
	}
	return "", false
}
