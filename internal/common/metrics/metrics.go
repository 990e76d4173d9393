// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	RankDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommender_rank_duration_seconds",
			Help:    "Duration of hybrid ranking requests",
			Buckets: prometheus.DefBuckets,
		},
	)

	CFSourceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_cf_source_total",
			Help: "Ranking requests by the collaborative scorer that answered (none when unavailable)",
		},
		[]string{"source"},
	)

	CollaboratorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_collaborator_errors_total",
			Help: "Errors returned by embedding, vector search, store and CF collaborators",
		},
		[]string{"collaborator", "code"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recommender_circuit_breaker_state",
			Help: "Circuit breaker state per collaborator (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_training_runs_total",
			Help: "Training runs by outcome",
		},
		[]string{"status"},
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommender_training_duration_seconds",
			Help:    "Wall time of successful training runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_model_version",
			Help: "Version of the latent factor model currently served",
		},
	)

	EmbeddingCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_embedding_cache_total",
			Help: "Embedding cache lookups by result (hit, miss, stale, error)",
		},
		[]string{"result"},
	)

	IndexedJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_indexed_jobs_total",
			Help: "Job postings written to or removed from the vector index",
		},
		[]string{"result"},
	)

	SkippedInteractions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommender_skipped_interactions_total",
			Help: "Feedback rows rejected at ingestion for an unknown feedback type",
		},
	)
)
