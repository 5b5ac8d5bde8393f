// Package pipeline implements the four archival stages -- Discover, Fetch,
// Parse, Store -- as pools of goroutines draining typed job queues. Each
// stage dequeues a job, executes it, pushes any successor job, marks the
// original job done, and logs (without propagating) any error, mirroring
// the generic QueueWorker loop shape of the system this was ported from.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"media-observer/internal/archive"
	"media-observer/internal/domain/entity"
	"media-observer/internal/extractor"
	"media-observer/internal/observability/metrics"
	"media-observer/internal/queue"
	"media-observer/internal/repository"
)

// Config controls parallelism per stage and the diagnostics directory used
// to persist failing parse attempts.
type Config struct {
	DiscoverWorkers int
	FetchWorkers    int
	ParseWorkers    int
	StoreWorkers    int
	DiagnosticsDir  string

	// DiscoverTimeout bounds a single Discover job's existence-check plus
	// CDX search cycle, taken from the Watchdog's SnapshotSearchTimeout so
	// the two share one operator-facing knob. Zero disables the timeout.
	DiscoverTimeout time.Duration
}

// DefaultConfig mirrors the original implementation's reasonable defaults:
// three Discover, three Fetch, three Parse, one Store worker.
func DefaultConfig() Config {
	return Config{
		DiscoverWorkers: 3,
		FetchWorkers:    3,
		ParseWorkers:    3,
		StoreWorkers:    1,
		DiagnosticsDir:  "./parse-diagnostics",
		DiscoverTimeout: 2 * time.Minute,
	}
}

// Pipeline wires the four stages to a shared job queue Set, an archive
// client and a storage repository.
type Pipeline struct {
	cfg     Config
	queues  *queue.Set
	archive *archive.Client
	storage repository.StorageRepository
	logger  *slog.Logger
}

// New constructs a Pipeline.
func New(cfg Config, queues *queue.Set, archiveClient *archive.Client, storage repository.StorageRepository, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, queues: queues, archive: archiveClient, storage: storage, logger: logger}
}

// Run starts every stage's worker pool and blocks until ctx is cancelled or
// the queue set fully drains (queues.Join returns).
func (p *Pipeline) Run(ctx context.Context) {
	var wg sync.WaitGroup

	spawn := func(n int, fn func()) {
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				fn()
			}()
		}
	}

	spawn(p.cfg.DiscoverWorkers, func() { p.runDiscover(ctx) })
	spawn(p.cfg.FetchWorkers, func() { p.runFetch(ctx) })
	spawn(p.cfg.ParseWorkers, func() { p.runParse(ctx) })
	spawn(p.cfg.StoreWorkers, func() { p.runStore(ctx) })

	<-ctx.Done()
	wg.Wait()
}

func (p *Pipeline) runDiscover(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queues.Discover:
			if !ok {
				return
			}
			p.executeDiscover(ctx, job)
			p.queues.Done()
		}
	}
}

func (p *Pipeline) executeDiscover(ctx context.Context, job queue.DiscoverJob) {
	start := time.Now()

	if p.cfg.DiscoverTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.DiscoverTimeout)
		defer cancel()
	}

	exists, err := p.storage.FrontPageExists(ctx, job.Site.Name, job.Instant.Unix())
	if err != nil {
		p.logError("discover", job.Site, job.Instant, err)
		metrics.RecordPipelineJob("discover", "error", time.Since(start))
		return
	}
	if exists {
		metrics.RecordPipelineJob("discover", "skipped", time.Since(start))
		return
	}

	snapID, err := p.archive.FindClosest(ctx, job.Site.OriginalURL, job.Instant)
	if err != nil {
		var notYet *archive.NotYetAvailableError
		if errors.As(err, &notYet) {
			p.logger.Warn("discover: snapshot not yet available",
				slog.String("site", job.Site.Name), slog.Time("instant", job.Instant))
		} else {
			p.logError("discover", job.Site, job.Instant, err)
		}
		metrics.RecordPipelineJob("discover", "error", time.Since(start))
		return
	}

	delta := job.Instant.Sub(snapID.Timestamp)
	if absDuration(delta) > time.Hour {
		p.logger.Warn("discover: closest snapshot is far from target instant",
			slog.String("site", job.Site.Name),
			slog.Time("instant", job.Instant),
			slog.Time("snapshot_timestamp", snapID.Timestamp))
	}

	p.queues.PutFetch(queue.NewFetchJob(job.JobID(), job.Site, snapID, job.Instant))
	metrics.RecordPipelineJob("discover", "success", time.Since(start))
}

func (p *Pipeline) runFetch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queues.Fetch:
			if !ok {
				return
			}
			p.executeFetch(ctx, job)
			p.queues.Done()
		}
	}
}

func (p *Pipeline) executeFetch(ctx context.Context, job queue.FetchJob) {
	start := time.Now()
	snapshot, err := p.archive.Fetch(ctx, job.SnapID)
	if err != nil {
		p.logError("fetch", job.Site, job.Instant, err)
		metrics.RecordPipelineJob("fetch", "error", time.Since(start))
		return
	}

	p.queues.PutParse(queue.NewParseJob(job.JobID(), job.Site, *snapshot, job.Instant))
	metrics.RecordPipelineJob("fetch", "success", time.Since(start))
}

func (p *Pipeline) runParse(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queues.Parse:
			if !ok {
				return
			}
			p.executeParse(job)
			p.queues.Done()
		}
	}
}

func (p *Pipeline) executeParse(job queue.ParseJob) {
	start := time.Now()
	page, err := extractor.Parse(job.Site.Name, job.Snapshot)
	if err != nil {
		p.writeParseDiagnostics(job.Snapshot, err)
		p.logError("parse", job.Site, job.Instant, err)
		metrics.RecordPipelineJob("parse", "error", time.Since(start))
		return
	}

	p.queues.PutStore(queue.NewStoreJob(job.JobID(), job.Site, *page, job.Instant))
	metrics.RecordPipelineJob("parse", "success", time.Since(start))
}

// writeParseDiagnostics persists the failing HTML, the offending URL and
// the error to a directory keyed by the snapshot's original URL and
// timestamp, so a failing extractor can be debugged after the fact.
func (p *Pipeline) writeParseDiagnostics(snapshot entity.Snapshot, parseErr error) {
	dir := filepath.Join(
		p.cfg.DiagnosticsDir,
		url.QueryEscape(snapshot.ID.Original),
		url.QueryEscape(snapshot.ID.Timestamp.Format(entity.ArchiveTimestampLayout)),
	)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		p.logger.Error("parse: failed to create diagnostics directory", slog.String("dir", dir), slog.Any("error", err))
		return
	}

	_ = os.WriteFile(filepath.Join(dir, "snapshot.html"), []byte(snapshot.Text), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "exception.txt"), []byte(parseErr.Error()), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "url.txt"), []byte(snapshot.ID.URL()), 0o644)

	p.logger.Error("parse: failed, diagnostics written",
		slog.String("url", snapshot.ID.URL()), slog.String("dir", dir))
}

func (p *Pipeline) runStore(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queues.Store:
			if !ok {
				return
			}
			p.executeStore(ctx, job)
			p.queues.Done()
		}
	}
}

func (p *Pipeline) executeStore(ctx context.Context, job queue.StoreJob) {
	start := time.Now()
	if err := job.Page.Validate(); err != nil {
		p.logError("store", job.Site, job.Instant, err)
		metrics.RecordPipelineJob("store", "error", time.Since(start))
		return
	}

	if err := p.storage.AddPage(ctx, &job.Site, &job.Page, job.Instant.Unix()); err != nil {
		p.logError("store", job.Site, job.Instant, err)
		metrics.RecordPipelineJob("store", "error", time.Since(start))
		return
	}

	metrics.RecordPipelineJob("store", "success", time.Since(start))
}

func (p *Pipeline) logError(stage string, site entity.Site, instant time.Time, err error) {
	p.logger.Error(fmt.Sprintf("%s: failed", stage),
		slog.String("site", site.Name), slog.Time("instant", instant), slog.Any("error", err))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
