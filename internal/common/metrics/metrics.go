package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "link_preserver"

	WorkerSubsystem = "worker"
	StoreSubsystem  = "store"
)

// Общие метрики для всех сервисов.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)
)

// Метрики воркера сохранения.
var (
	PreservationJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: WorkerSubsystem,
			Name:      "preservation_jobs_total",
			Help:      "Total number of preservation jobs processed",
		},
		[]string{"status"},
	)

	PreservationJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: WorkerSubsystem,
			Name:      "preservation_job_duration_seconds",
			Help:      "Preservation job duration in seconds (p50, p95, p99)",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"status"},
	)

	FormatAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: WorkerSubsystem,
			Name:      "format_attempts_total",
			Help:      "Total number of archive format generation attempts",
		},
		[]string{"format", "status"},
	)

	FormatAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: WorkerSubsystem,
			Name:      "format_attempt_duration_seconds",
			Help:      "Archive format generation duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"format"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: WorkerSubsystem,
			Name:      "queue_depth",
			Help:      "Number of preservation jobs waiting in the queue",
		},
	)

	LinksMissingArchives = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: WorkerSubsystem,
			Name:      "links_missing_archives",
			Help:      "Number of links with at least one missing archive format",
		},
	)
)

// Метрики хранилища артефактов и базы данных.
var (
	ArtifactBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: StoreSubsystem,
			Name:      "artifact_bytes_written_total",
			Help:      "Total bytes of archive artifacts written to the store",
		},
		[]string{"format"},
	)

	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: StoreSubsystem,
			Name:      "database_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: StoreSubsystem,
			Name:      "database_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func RecordHTTPRequest(service, method, endpoint string, statusCode int, duration time.Duration) {
	status := "success"
	if statusCode >= 400 {
		status = "error"
	}

	HTTPRequestsTotal.WithLabelValues(service, method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(service, method, endpoint).Observe(duration.Seconds())
}

func RecordPreservationJob(status string, duration time.Duration) {
	PreservationJobsTotal.WithLabelValues(status).Inc()
	PreservationJobDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func RecordFormatAttempt(format, status string, duration time.Duration) {
	FormatAttemptsTotal.WithLabelValues(format, status).Inc()
	FormatAttemptDuration.WithLabelValues(format).Observe(duration.Seconds())
}

func SetQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}

func UpdateLinksMissingArchives(count float64) {
	LinksMissingArchives.Set(count)
}

func RecordArtifactWrite(format string, size int) {
	ArtifactBytesWritten.WithLabelValues(format).Add(float64(size))
}

func RecordDatabaseQuery(operation, status string, duration time.Duration) {
	DatabaseQueriesTotal.WithLabelValues(operation, status).Inc()
	DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
