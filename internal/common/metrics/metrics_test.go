package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-link-preserver/internal/common/metrics"
)

const (
	statusSuccess = "success"
)

func TestRecordHTTPRequest(t *testing.T) {
	// Arrange
	service := "test-service"
	method := "GET"
	endpoint := "/test"
	statusCode := 200
	duration := 100 * time.Millisecond

	// Act
	metrics.RecordHTTPRequest(service, method, endpoint, statusCode, duration)

	// Assert
	counterValue := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(service, method, endpoint, "success"))
	assert.Equal(t, float64(1), counterValue)

	assert.NotNil(t, metrics.HTTPRequestDuration)
}

func TestRecordHTTPRequestError(t *testing.T) {
	// Arrange
	service := "test-service"
	method := "POST"
	endpoint := "/error"
	statusCode := 500
	duration := 50 * time.Millisecond

	// Act
	metrics.RecordHTTPRequest(service, method, endpoint, statusCode, duration)

	// Assert
	counterValue := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(service, method, endpoint, "error"))
	assert.Equal(t, float64(1), counterValue)
}

func TestRecordPreservationJob(t *testing.T) {
	// Arrange
	status := statusSuccess
	duration := 2 * time.Second

	initialValue := testutil.ToFloat64(metrics.PreservationJobsTotal.WithLabelValues(status))

	// Act
	metrics.RecordPreservationJob(status, duration)

	// Assert
	finalValue := testutil.ToFloat64(metrics.PreservationJobsTotal.WithLabelValues(status))
	assert.Equal(t, initialValue+1, finalValue)

	assert.NotNil(t, metrics.PreservationJobDuration)
}

func TestRecordFormatAttempt(t *testing.T) {
	// Arrange
	format := "screenshot"
	status := statusSuccess
	duration := 500 * time.Millisecond

	// Act
	metrics.RecordFormatAttempt(format, status, duration)

	// Assert
	counterValue := testutil.ToFloat64(metrics.FormatAttemptsTotal.WithLabelValues(format, status))
	assert.Equal(t, float64(1), counterValue)

	assert.NotNil(t, metrics.FormatAttemptDuration)
}

func TestSetQueueDepth(t *testing.T) {
	// Arrange
	depth := 17

	// Act
	metrics.SetQueueDepth(depth)

	// Assert
	gaugeValue := testutil.ToFloat64(metrics.QueueDepth)
	assert.Equal(t, float64(depth), gaugeValue)
}

func TestUpdateLinksMissingArchives(t *testing.T) {
	// Arrange
	count := float64(42)

	// Act
	metrics.UpdateLinksMissingArchives(count)

	// Assert
	gaugeValue := testutil.ToFloat64(metrics.LinksMissingArchives)
	assert.Equal(t, count, gaugeValue)
}

func TestRecordArtifactWrite(t *testing.T) {
	// Arrange
	format := "monolith_test"
	size := 2048

	// Act
	metrics.RecordArtifactWrite(format, size)

	// Assert
	counterValue := testutil.ToFloat64(metrics.ArtifactBytesWritten.WithLabelValues(format))
	assert.Equal(t, float64(size), counterValue)
}

func TestRecordDatabaseQuery(t *testing.T) {
	// Arrange
	operation := "SELECT"
	status := statusSuccess
	duration := 10 * time.Millisecond

	// Act
	metrics.RecordDatabaseQuery(operation, status, duration)

	// Assert
	counterValue := testutil.ToFloat64(metrics.DatabaseQueriesTotal.WithLabelValues(operation, status))
	assert.Equal(t, float64(1), counterValue)

	assert.NotNil(t, metrics.DatabaseQueryDuration)
}

func TestMetricsExist(t *testing.T) {
	// Arrange & Act & Assert
	metricFamilies, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	metricNames := make(map[string]bool)
	for _, mf := range metricFamilies {
		metricNames[*mf.Name] = true
	}

	expectedMetrics := []string{
		"link_preserver_http_requests_total",
		"link_preserver_http_request_duration_seconds",
		"link_preserver_worker_preservation_jobs_total",
		"link_preserver_worker_preservation_job_duration_seconds",
		"link_preserver_worker_format_attempts_total",
		"link_preserver_worker_format_attempt_duration_seconds",
		"link_preserver_worker_queue_depth",
		"link_preserver_worker_links_missing_archives",
		"link_preserver_store_artifact_bytes_written_total",
		"link_preserver_store_database_queries_total",
		"link_preserver_store_database_query_duration_seconds",
	}

	for _, metricName := range expectedMetrics {
		assert.True(t, metricNames[metricName], "Метрика %s должна быть зарегистрирована", metricName)
	}
}

func TestFormatAttemptPercentiles(t *testing.T) {
	// Arrange
	format := "pdf_test"
	status := statusSuccess

	durations := []time.Duration{
		10 * time.Millisecond,   // p50
		500 * time.Millisecond,  // p95
		1000 * time.Millisecond, // p99
	}

	initialValue := testutil.ToFloat64(metrics.FormatAttemptsTotal.WithLabelValues(format, status))

	// Act
	for _, duration := range durations {
		metrics.RecordFormatAttempt(format, status, duration)
	}

	// Assert
	assert.NotNil(t, metrics.FormatAttemptDuration)

	finalValue := testutil.ToFloat64(metrics.FormatAttemptsTotal.WithLabelValues(format, status))
	assert.Equal(t, initialValue+float64(len(durations)), finalValue)
}
