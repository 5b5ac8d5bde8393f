// Package metrics provides centralized Prometheus metrics for the worker
// process: queue depth, archive request outcomes, pipeline stage duration,
// embedding batch size, and similarity index rebuild duration.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueDepth tracks the number of jobs currently buffered per stage.
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Number of jobs currently queued, by stage",
		},
		[]string{"stage"},
	)

	// ArchiveRequestsTotal counts outbound archive requests by operation and
	// outcome (ok, not_yet_available, error).
	ArchiveRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_requests_total",
			Help: "Total number of archive client requests, by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// PipelineStageDuration measures how long a single job takes to execute
	// within a pipeline stage.
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of one job's execution within a pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"stage"},
	)

	// PipelineJobsTotal counts jobs processed per stage and outcome
	// (success, error).
	PipelineJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_jobs_total",
			Help: "Total number of jobs processed by a pipeline stage",
		},
		[]string{"stage", "outcome"},
	)

	// EmbeddingBatchSize records the size of each embedding batch computed.
	EmbeddingBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "embedding_batch_size",
			Help:    "Number of unique titles embedded per batch",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	// EmbeddingBatchDuration measures the time to compute one batch of
	// embeddings.
	EmbeddingBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "embedding_batch_duration_seconds",
			Help:    "Time taken to compute one batch of embeddings",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// IndexRebuildDuration measures the time to rebuild the similarity
	// index from storage.
	IndexRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "similarity_index_rebuild_duration_seconds",
			Help:    "Time taken to rebuild the similarity index from storage",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	// IndexSize tracks the number of vectors currently held by the
	// similarity index.
	IndexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "similarity_index_size",
			Help: "Number of vectors held by the similarity index",
		},
	)

	// DBQueryDuration measures storage query duration.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)
)

// SetQueueDepth records the current depth of a stage's queue.
func SetQueueDepth(stage string, depth int) {
	QueueDepth.WithLabelValues(stage).Set(float64(depth))
}

// RecordArchiveRequest records the outcome of one archive client request.
func RecordArchiveRequest(operation, outcome string) {
	ArchiveRequestsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordPipelineJob records the duration and outcome of one pipeline stage
// execution.
func RecordPipelineJob(stage, outcome string, duration time.Duration) {
	PipelineJobsTotal.WithLabelValues(stage, outcome).Inc()
	PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordEmbeddingBatch records the size and duration of one embedding batch.
func RecordEmbeddingBatch(size int, duration time.Duration) {
	EmbeddingBatchSize.Observe(float64(size))
	EmbeddingBatchDuration.Observe(duration.Seconds())
}

// RecordIndexRebuild records the duration of a similarity index rebuild and
// the resulting index size.
func RecordIndexRebuild(duration time.Duration, size int) {
	IndexRebuildDuration.Observe(duration.Seconds())
	IndexSize.Set(float64(size))
}

// RecordOperationDuration records the duration of a named storage operation.
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
