package notify

import (
	"context"
	"log/slog"

	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

// FallbackEventNotifier пробует основной транспорт и при его отказе
// переключается на резервный. Ошибка резервного не маскирует исходную.
type FallbackEventNotifier struct {
	primary   EventNotifier
	secondary EventNotifier
	logger    *slog.Logger
}

func NewFallbackEventNotifier(primary, secondary EventNotifier, logger *slog.Logger) *FallbackEventNotifier {
	return &FallbackEventNotifier{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

func (n *FallbackEventNotifier) PublishSummary(ctx context.Context, summary *models.JobSummary) error {
	err := n.primary.PublishSummary(ctx, summary)
	if err == nil {
		return nil
	}

	n.logger.Warn("Основной транспорт недоступен, переключаемся на резервный",
		"primaryError", err,
		"linkID", summary.LinkID,
	)

	fallbackErr := n.secondary.PublishSummary(ctx, summary)
	if fallbackErr != nil {
		return err
	}

	n.logger.Info("Событие успешно отправлено через резервный транспорт",
		"linkID", summary.LinkID,
	)

	return nil
}
