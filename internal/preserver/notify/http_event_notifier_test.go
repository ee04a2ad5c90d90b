package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/notify"
)

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) PublishSummary(_ context.Context, _ *models.JobSummary) error {
	s.calls++
	return s.err
}

func sampleSummary() *models.JobSummary {
	return &models.JobSummary{
		LinkID: 42,
		Ready:  true,
		Results: []models.FormatResult{
			{Format: models.FormatScreenshot, Path: "archives/42/screenshot.png"},
			{Format: models.FormatPDF, Err: errors.New("таймаут рендера")},
		},
		FinishedAt: time.Now(),
	}
}

func TestHTTPEventNotifier_PublishesSummary(t *testing.T) {
	t.Parallel()

	// Arrange
	var received notify.PreservationEventMessage

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := notify.NewHTTPEventNotifier(resty.New(), server.URL, testLogger())

	// Act
	err := notifier.PublishSummary(context.Background(), sampleSummary())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, int64(42), received.LinkID)
	assert.True(t, received.Ready)
	assert.Equal(t, []string{"screenshot"}, received.Succeeded)
	assert.Equal(t, []string{"pdf"}, received.Failed)
}

func TestHTTPEventNotifier_ErrorStatus(t *testing.T) {
	t.Parallel()

	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := notify.NewHTTPEventNotifier(resty.New(), server.URL, testLogger())

	// Act
	err := notifier.PublishSummary(context.Background(), sampleSummary())

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFallbackNotifier_PrimarySucceeds(t *testing.T) {
	t.Parallel()

	// Arrange
	primary := &stubNotifier{}
	secondary := &stubNotifier{}
	notifier := notify.NewFallbackEventNotifier(primary, secondary, testLogger())

	// Act
	err := notifier.PublishSummary(context.Background(), sampleSummary())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, secondary.calls, "резервный транспорт не должен вызываться")
}

func TestFallbackNotifier_SwitchesToSecondary(t *testing.T) {
	t.Parallel()

	// Arrange
	primary := &stubNotifier{err: errors.New("kafka недоступна")}
	secondary := &stubNotifier{}
	notifier := notify.NewFallbackEventNotifier(primary, secondary, testLogger())

	// Act
	err := notifier.PublishSummary(context.Background(), sampleSummary())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallbackNotifier_BothFailReturnsPrimaryError(t *testing.T) {
	t.Parallel()

	// Arrange
	primaryErr := errors.New("kafka недоступна")
	primary := &stubNotifier{err: primaryErr}
	secondary := &stubNotifier{err: errors.New("webhook тоже недоступен")}
	notifier := notify.NewFallbackEventNotifier(primary, secondary, testLogger())

	// Act
	err := notifier.PublishSummary(context.Background(), sampleSummary())

	// Assert
	require.Error(t, err)
	assert.Equal(t, primaryErr, err, "исходная ошибка основного транспорта не маскируется")
}
