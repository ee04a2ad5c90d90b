package service

import (
	"context"
	"errors"
	"log/slog"

	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

const (
	OperationRegenerate       = "regenerate"
	OperationDelete           = "delete"
	OperationDeleteRegenerate = "delete-regenerate"
)

type MaintenanceLinkRepository interface {
	FindAll(ctx context.Context, limit, offset int) ([]*models.Link, error)
	ClearArchiveFields(ctx context.Context, id int64, formats []models.Format) error
}

type ArtifactRemover interface {
	DeleteArtifacts(linkID int64) error
}

type Transactor interface {
	WithTransaction(ctx context.Context, txFunc func(ctx context.Context) error) error
}

// MaintenanceService выполняет массовые административные операции по
// всему корпусу ссылок. Ошибка одной ссылки фиксируется в итогах и не
// прерывает обход.
type MaintenanceService struct {
	linkRepo  MaintenanceLinkRepository
	store     ArtifactRemover
	pool      Enqueuer
	txManager Transactor
	logger    *slog.Logger
	batchSize int
}

func NewMaintenanceService(
	linkRepo MaintenanceLinkRepository,
	store ArtifactRemover,
	pool Enqueuer,
	txManager Transactor,
	batchSize int,
	logger *slog.Logger,
) *MaintenanceService {
	if batchSize <= 0 {
		batchSize = 100
	}

	return &MaintenanceService{
		linkRepo:  linkRepo,
		store:     store,
		pool:      pool,
		txManager: txManager,
		logger:    logger,
		batchSize: batchSize,
	}
}

// RegenerateAll ставит каждую ссылку в очередь на добор недостающих
// форматов. Существующие архивы не трогаются.
func (m *MaintenanceService) RegenerateAll(ctx context.Context) (*models.MaintenanceSummary, error) {
	return m.forEachLink(ctx, OperationRegenerate, func(_ context.Context, link *models.Link) error {
		return m.enqueueTolerant(link.ID, false)
	})
}

// DeleteAll удаляет сгенерированные архивы всех ссылок: очищает
// архивные поля и стирает артефакты. Загруженные пользователем
// оригиналы остаются.
func (m *MaintenanceService) DeleteAll(ctx context.Context) (*models.MaintenanceSummary, error) {
	return m.forEachLink(ctx, OperationDelete, func(ctx context.Context, link *models.Link) error {
		return m.deleteOne(ctx, link)
	})
}

// DeleteAndRegenerateAll очищает архивы и сразу ставит ссылки в
// очередь на полное пересоздание.
func (m *MaintenanceService) DeleteAndRegenerateAll(ctx context.Context) (*models.MaintenanceSummary, error) {
	return m.forEachLink(ctx, OperationDeleteRegenerate, func(ctx context.Context, link *models.Link) error {
		if err := m.deleteOne(ctx, link); err != nil {
			return err
		}

		return m.enqueueTolerant(link.ID, false)
	})
}

func (m *MaintenanceService) forEachLink(
	ctx context.Context,
	operation string,
	apply func(ctx context.Context, link *models.Link) error,
) (*models.MaintenanceSummary, error) {
	m.logger.Info("Начало массовой операции",
		"operation", operation,
	)

	summary := &models.MaintenanceSummary{Operation: operation}

	offset := 0

	for {
		links, err := m.linkRepo.FindAll(ctx, m.batchSize, offset)
		if err != nil {
			return summary, err
		}

		if len(links) == 0 {
			break
		}

		for _, link := range links {
			summary.Processed++

			if err := apply(ctx, link); err != nil {
				summary.Failed++

				m.logger.Error("Ошибка при обработке ссылки",
					"operation", operation,
					"linkID", link.ID,
					"error", err,
				)

				continue
			}

			summary.Succeeded++
		}

		offset += len(links)
	}

	m.logger.Info("Массовая операция завершена",
		"operation", operation,
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
	)

	return summary, nil
}

func (m *MaintenanceService) deleteOne(ctx context.Context, link *models.Link) error {
	err := m.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		return m.linkRepo.ClearArchiveFields(ctx, link.ID, nil)
	})
	if err != nil {
		return err
	}

	return m.store.DeleteArtifacts(link.ID)
}

// enqueueTolerant не считает занятую ссылку или переполненную очередь
// ошибкой: фоновая зачистка доберёт пропущенное.
func (m *MaintenanceService) enqueueTolerant(linkID int64, force bool) error {
	err := m.pool.Enqueue(models.Job{LinkID: linkID, Force: force})
	if err != nil {
		if errors.Is(err, &customerrors.ErrLinkBusy{}) || errors.Is(err, &customerrors.ErrQueueFull{}) {
			m.logger.Debug("Ссылка не поставлена в очередь",
				"linkID", linkID,
				"reason", err.Error(),
			)

			return nil
		}

		return err
	}

	return nil
}
