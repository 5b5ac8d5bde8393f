// Package worker holds the ambient cron/health/metrics scaffolding shared
// by the Watchdog: a WorkerConfig loaded fail-open from the environment, a
// liveness/readiness HTTP server, and Prometheus counters for job runs.
package worker

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"media-observer/internal/pkg/config"
)

// WorkerConfig holds the configuration for the Watchdog: the cron schedule
// that drives Discover job emission, the site-local timezone used to
// compute "hours in the past" windows, and operational limits.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have sensible defaults and validation rules so the Watchdog
// can start even with invalid or missing configuration.
type WorkerConfig struct {
	// CronSchedule is the cron expression the Watchdog ticks on to emit
	// Discover jobs for every site and hour-of-day combination.
	// Default: "*/15 * * * *" (every 15 minutes).
	CronSchedule string

	// Timezone is the IANA timezone name used to interpret Hours.
	// Default: "Europe/Paris".
	Timezone string

	// DaysInPast bounds how many calendar days back the Watchdog
	// considers when generating Discover jobs on startup, so a restart
	// does not silently skip days that were never searched.
	// Range: 1-30. Default: 3.
	DaysInPast int

	// MaxConcurrentDiscoverJobs caps how many Discover jobs the Watchdog
	// enqueues per tick, so a large site/hour matrix cannot flood the
	// pipeline's Discover queue in one burst.
	// Range: 1-100. Default: 20.
	MaxConcurrentDiscoverJobs int

	// SnapshotSearchTimeout bounds a single CDX search-plus-fetch cycle.
	// Default: 2 minutes.
	SnapshotSearchTimeout time.Duration

	// HealthPort is the port for the liveness/readiness HTTP server.
	// Range: 1024-65535. Default: 9091.
	HealthPort int

	// Hours are the hours, in each site's local time zone, at which a
	// Discover job is emitted for that day. Default: 8, 12, 18, 22.
	Hours []int
}

// DefaultConfig returns a WorkerConfig with sensible default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:              "*/15 * * * *",
		Timezone:                  "Europe/Paris",
		DaysInPast:                3,
		MaxConcurrentDiscoverJobs: 20,
		SnapshotSearchTimeout:     2 * time.Minute,
		HealthPort:                9091,
		Hours:                     []int{8, 12, 18, 22},
	}
}

// formatHours renders hours as the comma-separated form WATCHDOG_HOURS
// expects, used to build the fallback default passed to LoadEnvWithFallback.
func formatHours(hours []int) string {
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = strconv.Itoa(h)
	}
	return strings.Join(parts, ",")
}

// parseHours parses a comma-separated list of hours-of-day (e.g. "8,12,18,22").
func parseHours(raw string) ([]int, error) {
	fields := strings.Split(raw, ",")
	hours := make([]int, 0, len(fields))
	for _, f := range fields {
		h, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", f)
		}
		if h < 0 || h > 23 {
			return nil, fmt.Errorf("hour %d out of range 0-23", h)
		}
		hours = append(hours, h)
	}
	if len(hours) == 0 {
		return nil, fmt.Errorf("no hours specified")
	}
	return hours, nil
}

func validateHoursOfDay(raw string) error {
	_, err := parseHours(raw)
	return err
}

// Validate checks if the configuration values are valid, using the
// reusable validators from internal/pkg/config.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.DaysInPast, 1, 30); err != nil {
		errs = append(errs, fmt.Errorf("days in past: %w", err))
	}
	if err := config.ValidateIntRange(c.MaxConcurrentDiscoverJobs, 1, 100); err != nil {
		errs = append(errs, fmt.Errorf("max concurrent discover jobs: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.SnapshotSearchTimeout); err != nil {
		errs = append(errs, fmt.Errorf("snapshot search timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := validateHoursOfDay(formatHours(c.Hours)); err != nil {
		errs = append(errs, fmt.Errorf("hours: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads Watchdog configuration from environment
// variables with validation and automatic fallback to default values on
// failure (fail-open): invalid values are logged and replaced, never
// returned as an error.
//
// Environment variables:
//   - CRON_SCHEDULE
//   - WORKER_TIMEZONE
//   - WATCHDOG_DAYS_IN_PAST
//   - WATCHDOG_MAX_CONCURRENT_DISCOVER_JOBS
//   - WATCHDOG_SNAPSHOT_SEARCH_TIMEOUT
//   - WORKER_HEALTH_PORT
//   - WATCHDOG_HOURS
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	apply := func(field string, result config.ConfigLoadResult) {
		if result.FallbackApplied {
			fallbackApplied = true
			metrics.RecordValidationError(field)
			metrics.RecordFallback(field, "default")
			for _, warning := range result.Warnings {
				logger.Warn("configuration fallback applied",
					slog.String("field", field),
					slog.String("warning", warning))
			}
		}
	}

	result := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	apply("cron_schedule", result)

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	apply("timezone", result)

	result = config.LoadEnvInt("WATCHDOG_DAYS_IN_PAST", cfg.DaysInPast, func(v int) error {
		return config.ValidateIntRange(v, 1, 30)
	})
	cfg.DaysInPast = result.Value.(int)
	apply("days_in_past", result)

	result = config.LoadEnvInt("WATCHDOG_MAX_CONCURRENT_DISCOVER_JOBS", cfg.MaxConcurrentDiscoverJobs, func(v int) error {
		return config.ValidateIntRange(v, 1, 100)
	})
	cfg.MaxConcurrentDiscoverJobs = result.Value.(int)
	apply("max_concurrent_discover_jobs", result)

	result = config.LoadEnvDuration("WATCHDOG_SNAPSHOT_SEARCH_TIMEOUT", cfg.SnapshotSearchTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 10*time.Second, 10*time.Minute)
	})
	cfg.SnapshotSearchTimeout = result.Value.(time.Duration)
	apply("snapshot_search_timeout", result)

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	apply("health_port", result)

	result = config.LoadEnvWithFallback("WATCHDOG_HOURS", formatHours(cfg.Hours), validateHoursOfDay)
	hours, err := parseHours(result.Value.(string))
	if err != nil {
		// validateHoursOfDay already rejected anything parseHours would
		// reject, so this can only happen if formatHours(cfg.Hours) itself
		// were malformed, which never happens for the constructed default.
		hours = cfg.Hours
	}
	cfg.Hours = hours
	apply("hours", result)

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
