package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

// HTTPEventNotifier отправляет итоги заданий на внешний webhook.
type HTTPEventNotifier struct {
	client     *resty.Client
	webhookURL string
	logger     *slog.Logger
}

func NewHTTPEventNotifier(client *resty.Client, webhookURL string, logger *slog.Logger) *HTTPEventNotifier {
	return &HTTPEventNotifier{
		client:     client,
		webhookURL: webhookURL,
		logger:     logger,
	}
}

func (n *HTTPEventNotifier) PublishSummary(ctx context.Context, summary *models.JobSummary) error {
	message := eventMessageFromSummary(summary)

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(n.webhookURL)
	if err != nil {
		n.logger.Error("Ошибка при отправке события на webhook",
			"linkID", summary.LinkID,
			"error", err,
		)

		return err
	}

	if resp.StatusCode() >= 400 {
		return &customerrors.HTTPError{StatusCode: resp.StatusCode()}
	}

	n.logger.Debug("Событие сохранения отправлено на webhook",
		"linkID", summary.LinkID,
		"status", resp.StatusCode(),
	)

	return nil
}

func eventMessageFromSummary(summary *models.JobSummary) PreservationEventMessage {
	message := PreservationEventMessage{
		LinkID:     summary.LinkID,
		Ready:      summary.Ready,
		FinishedAt: summary.FinishedAt.Format(time.RFC3339),
	}

	for _, result := range summary.Results {
		if result.Succeeded() {
			message.Succeeded = append(message.Succeeded, string(result.Format))
		} else {
			message.Failed = append(message.Failed, string(result.Format))
		}
	}

	return message
}
