package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/central-university-dev/go-link-preserver/internal/common/httputil"
	"github.com/central-university-dev/go-link-preserver/internal/config"
	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

// EventNotifier сообщает внешним потребителям об итогах заданий
// сохранения.
type EventNotifier interface {
	PublishSummary(ctx context.Context, summary *models.JobSummary) error
}

type NotifierType string

const (
	KafkaNotifier NotifierType = "KAFKA"
	HTTPNotifier  NotifierType = "HTTP"
	NoopNotifier  NotifierType = "NOOP"
)

type NotifierFactory struct {
	config *config.Config
	logger *slog.Logger
}

func NewNotifierFactory(config *config.Config, logger *slog.Logger) *NotifierFactory {
	return &NotifierFactory{
		config: config,
		logger: logger,
	}
}

func (f *NotifierFactory) CreateNotifier() (EventNotifier, error) {
	notifierType := NotifierType(strings.ToUpper(f.config.NotifierTransport))

	f.logger.Info("Создание нотификатора",
		"type", notifierType,
	)

	switch notifierType {
	case KafkaNotifier:
		brokers := strings.Split(f.config.KafkaBrokers, ",")
		kafkaNotifier := NewKafkaEventNotifier(brokers, f.config.TopicPreservationEvent, f.config.TopicDeadLetterQueue, f.logger)

		// При настроенном webhook Kafka получает резервный HTTP-транспорт.
		if f.config.WebhookURL != "" {
			return NewFallbackEventNotifier(kafkaNotifier, f.createHTTPNotifier(), f.logger), nil
		}

		return kafkaNotifier, nil
	case HTTPNotifier:
		return f.createHTTPNotifier(), nil
	case NoopNotifier:
		return &noopEventNotifier{logger: f.logger}, nil
	default:
		return nil, &customerrors.ErrUnknownNotifierTransport{Transport: f.config.NotifierTransport}
	}
}

func (f *NotifierFactory) createHTTPNotifier() *HTTPEventNotifier {
	client := httputil.CreateResilientHTTPClient(f.config, f.logger, "webhook")

	return NewHTTPEventNotifier(client, f.config.WebhookURL, f.logger)
}

// noopEventNotifier используется, когда внешняя шина не развёрнута.
type noopEventNotifier struct {
	logger *slog.Logger
}

func (n *noopEventNotifier) PublishSummary(_ context.Context, summary *models.JobSummary) error {
	n.logger.Debug("Событие сохранения пропущено: нотификатор отключён",
		"linkID", summary.LinkID,
		"ready", summary.Ready,
	)

	return nil
}
