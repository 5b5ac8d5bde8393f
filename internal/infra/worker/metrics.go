package worker

import (
	"media-observer/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the Watchdog component.
// It embeds the standard ConfigMetrics for configuration monitoring and
// adds Watchdog-specific metrics for cron tick and Discover job emission
// tracking.
type WorkerMetrics struct {
	*config.ConfigMetrics

	// CronTicksTotal counts the total number of Watchdog cron ticks.
	CronTicksTotal *prometheus.CounterVec

	// CronTickDurationSeconds measures the duration of a single tick,
	// which enumerates sites x hours-of-day and enqueues Discover jobs.
	CronTickDurationSeconds prometheus.Histogram

	// DiscoverJobsEmittedTotal counts Discover jobs enqueued per tick.
	DiscoverJobsEmittedTotal prometheus.Counter

	// CronTickLastSuccessTimestamp records the Unix timestamp of the
	// last successful tick.
	CronTickLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics
// initialized and registered via promauto.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("watchdog"),

		CronTicksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchdog_cron_ticks_total",
			Help: "Total number of Watchdog cron ticks by status (success/failure)",
		}, []string{"status"}),

		CronTickDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "watchdog_cron_tick_duration_seconds",
			Help:    "Duration of a single Watchdog cron tick in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60},
		}),

		DiscoverJobsEmittedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchdog_discover_jobs_emitted_total",
			Help: "Total number of Discover jobs emitted across all ticks",
		}),

		CronTickLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "watchdog_cron_tick_last_success_timestamp",
			Help: "Unix timestamp of the last successful Watchdog cron tick",
		}),
	}
}

// MustRegister is a no-op: metrics are auto-registered via promauto when
// created in NewWorkerMetrics. The explicit call keeps the initialization
// pattern consistent with components that do need manual registration.
func (m *WorkerMetrics) MustRegister() {}

// RecordTick increments the tick counter for the given status.
func (m *WorkerMetrics) RecordTick(status string) {
	m.CronTicksTotal.WithLabelValues(status).Inc()
}

// RecordTickDuration observes the duration of a tick, in seconds.
func (m *WorkerMetrics) RecordTickDuration(seconds float64) {
	m.CronTickDurationSeconds.Observe(seconds)
}

// RecordDiscoverJobsEmitted adds to the total Discover jobs emitted counter.
func (m *WorkerMetrics) RecordDiscoverJobsEmitted(count int) {
	m.DiscoverJobsEmittedTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful tick.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.CronTickLastSuccessTimestamp.SetToCurrentTime()
}
