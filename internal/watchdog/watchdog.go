// Package watchdog implements the cron-driven scheduler that emits Discover
// jobs at configured hours for a trailing window of days, then sleeps to the
// next tick. It is the only component allowed to create DiscoverJobs; every
// other job is a successor created by a pipeline stage.
package watchdog

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"media-observer/internal/infra/worker"
	"media-observer/internal/queue"
	"media-observer/internal/repository"
)

// Watchdog owns the cron schedule and the set of known sites. On every tick
// it walks DaysInPast x cfg.Hours x sites and enqueues one DiscoverJob per
// instant not in the future.
type Watchdog struct {
	cfg     worker.WorkerConfig
	storage repository.StorageRepository
	queues  *queue.Set
	metrics *worker.WorkerMetrics
	logger  *slog.Logger

	cron *cron.Cron
}

// New constructs a Watchdog. Sites are loaded from storage fresh on every
// tick, so newly registered sites are picked up without a restart. Each
// site's own time zone (entity.Site.Location) governs its hour-of-day
// instants, not cfg.Timezone, which only bounds the cron schedule itself.
func New(cfg worker.WorkerConfig, storage repository.StorageRepository, queues *queue.Set, metrics *worker.WorkerMetrics, logger *slog.Logger) (*Watchdog, error) {
	return &Watchdog{
		cfg:     cfg,
		storage: storage,
		queues:  queues,
		metrics: metrics,
		logger:  logger,
		cron:    cron.New(),
	}, nil
}

// Run starts the cron schedule and blocks until ctx is cancelled. It ticks
// once immediately on startup so a restart does not wait a full interval
// before catching up on missed instants.
func (w *Watchdog) Run(ctx context.Context) error {
	_, err := w.cron.AddFunc(w.cfg.CronSchedule, func() {
		w.tick(ctx)
	})
	if err != nil {
		return err
	}

	w.cron.Start()
	defer w.cron.Stop()

	w.tick(ctx)

	<-ctx.Done()
	return nil
}

func (w *Watchdog) tick(ctx context.Context) {
	start := time.Now()
	sites, err := w.storage.ListSites(ctx)
	if err != nil {
		w.logger.Error("watchdog: failed to list sites", slog.Any("error", err))
		w.metrics.RecordTick("failure")
		return
	}

	emitted := 0
outer:
	for _, site := range sites {
		for _, instant := range lastNDaysAtHours(w.cfg.DaysInPast, w.cfg.Hours, site.Location) {
			if w.cfg.MaxConcurrentDiscoverJobs > 0 && emitted >= w.cfg.MaxConcurrentDiscoverJobs {
				w.logger.Warn("watchdog: max concurrent discover jobs reached, deferring remainder to next tick",
					slog.Int("limit", w.cfg.MaxConcurrentDiscoverJobs))
				break outer
			}

			exists, err := w.storage.FrontPageExists(ctx, site.Name, instant.Unix())
			if err != nil {
				w.logger.Error("watchdog: existence check failed",
					slog.String("site", site.Name), slog.Time("instant", instant), slog.Any("error", err))
				continue
			}
			if exists {
				continue
			}

			w.queues.PutDiscover(queue.NewDiscoverJob(*site, instant))
			emitted++
		}
	}

	w.metrics.RecordDiscoverJobsEmitted(emitted)
	w.metrics.RecordTickDuration(time.Since(start).Seconds())
	w.metrics.RecordTick("success")
	w.metrics.RecordLastSuccess()
	w.logger.Info("watchdog: tick complete", slog.Int("sites", len(sites)), slog.Int("discover_jobs_emitted", emitted))
}

// lastNDaysAtHours returns, for each of the last n calendar days (today
// inclusive) and each hour in hours, the local datetime at that hour,
// filtered to instants strictly before now. Mirrors the original
// SnapshotSearchJob.last_n_days_at_hours.
func lastNDaysAtHours(n int, hours []int, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var result []time.Time
	for i := 0; i < n; i++ {
		day := today.AddDate(0, 0, -i)
		for _, h := range hours {
			dt := time.Date(day.Year(), day.Month(), day.Day(), h, 0, 0, 0, loc)
			if dt.Before(now) {
				result = append(result, dt)
			}
		}
	}
	return result
}
