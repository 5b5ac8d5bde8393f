package worker

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWorkerMetrics(t *testing.T) {
	// Use the global instance to avoid duplicate Prometheus registration.
	metrics := globalTestMetrics

	if metrics == nil {
		t.Fatal("NewWorkerMetrics returned nil")
	}
	if metrics.ConfigMetrics == nil {
		t.Error("ConfigMetrics is nil")
	}
	if metrics.CronTicksTotal == nil {
		t.Error("CronTicksTotal is nil")
	}
	if metrics.CronTickDurationSeconds == nil {
		t.Error("CronTickDurationSeconds is nil")
	}
	if metrics.DiscoverJobsEmittedTotal == nil {
		t.Error("DiscoverJobsEmittedTotal is nil")
	}
	if metrics.CronTickLastSuccessTimestamp == nil {
		t.Error("CronTickLastSuccessTimestamp is nil")
	}

	metrics.MustRegister()
}

func TestWorkerMetrics_RecordTick(t *testing.T) {
	reg := prometheus.NewRegistry()

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_watchdog_cron_ticks_total",
		Help: "Test counter",
	}, []string{"status"})
	reg.MustRegister(counter)

	metrics := &WorkerMetrics{CronTicksTotal: counter}

	metrics.RecordTick("success")
	metrics.RecordTick("success")
	metrics.RecordTick("failure")

	successCount := testutil.ToFloat64(metrics.CronTicksTotal.WithLabelValues("success"))
	if successCount != 2 {
		t.Errorf("Expected success count 2, got %f", successCount)
	}

	failureCount := testutil.ToFloat64(metrics.CronTicksTotal.WithLabelValues("failure"))
	if failureCount != 1 {
		t.Errorf("Expected failure count 1, got %f", failureCount)
	}
}

func TestWorkerMetrics_RecordTickDuration(t *testing.T) {
	reg := prometheus.NewRegistry()

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_watchdog_cron_tick_duration_seconds",
		Help:    "Test histogram",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60},
	})
	reg.MustRegister(histogram)

	metrics := &WorkerMetrics{CronTickDurationSeconds: histogram}

	metrics.RecordTickDuration(0.5)
	metrics.RecordTickDuration(5.0)
	metrics.RecordTickDuration(30.0)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	if len(metricFamilies) == 0 {
		t.Error("Expected at least one metric family")
	}
}

func TestWorkerMetrics_RecordDiscoverJobsEmitted(t *testing.T) {
	reg := prometheus.NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_watchdog_discover_jobs_emitted_total",
		Help: "Test counter",
	})
	reg.MustRegister(counter)

	metrics := &WorkerMetrics{DiscoverJobsEmittedTotal: counter}

	metrics.RecordDiscoverJobsEmitted(4)
	metrics.RecordDiscoverJobsEmitted(6)

	count := testutil.ToFloat64(metrics.DiscoverJobsEmittedTotal)
	if count != 10 {
		t.Errorf("Expected count 10, got %f", count)
	}
}

func TestWorkerMetrics_RecordLastSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_watchdog_cron_tick_last_success_timestamp",
		Help: "Test gauge",
	})
	reg.MustRegister(gauge)

	metrics := &WorkerMetrics{CronTickLastSuccessTimestamp: gauge}
	metrics.RecordLastSuccess()

	value := testutil.ToFloat64(metrics.CronTickLastSuccessTimestamp)
	if value == 0 {
		t.Error("Expected last success timestamp to be set to a non-zero value")
	}
}
