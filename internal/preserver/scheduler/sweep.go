// Package scheduler содержит фоновую зачистку: периодический проход по
// ссылкам с недостающими архивами и постановку заданий сохранения.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/central-university-dev/go-link-preserver/internal/common/metrics"
	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/policy"
)

type LinkSource interface {
	FindWithMissingArchives(ctx context.Context, limit, offset int) ([]*models.Link, error)
}

type PreferencesProvider interface {
	GetOwnerPreferences(ctx context.Context, collectionID int64) (*models.ArchivePreference, error)
}

type Enqueuer interface {
	Enqueue(job models.Job) error
}

// SweepScheduler периодически добирает форматы, которые не успели или
// не смогли создаться при первом сохранении. Ссылки, у которых все
// недостающие форматы уже помечены недоступными, пропускаются.
type SweepScheduler struct {
	scheduler *gocron.Scheduler
	linkRepo  LinkSource
	prefs     PreferencesProvider
	pool      Enqueuer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewSweepScheduler(
	linkRepo LinkSource,
	prefs PreferencesProvider,
	pool Enqueuer,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *SweepScheduler {
	if batchSize <= 0 {
		batchSize = 100
	}

	return &SweepScheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		linkRepo:  linkRepo,
		prefs:     prefs,
		pool:      pool,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (s *SweepScheduler) Start() {
	s.logger.Info("Запуск планировщика зачистки архивов",
		"interval", s.interval.String(),
		"batchSize", s.batchSize,
	)

	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.Sweep(context.Background())
	})

	if err != nil {
		s.logger.Error("Ошибка при настройке планировщика зачистки",
			"error", err,
		)

		return
	}

	s.scheduler.StartAsync()
}

func (s *SweepScheduler) Stop() {
	s.logger.Info("Остановка планировщика зачистки архивов")
	s.scheduler.Stop()
}

// Sweep обходит ссылки с недостающими архивами порциями и ставит
// задания в очередь. Переполнение очереди не ошибка: следующий проход
// доберёт пропущенное. MarkExhausted взводится, чтобы формат,
// проваливший несколько проходов подряд, зафиксировался сентинелом
// и не повторялся бесконечно.
func (s *SweepScheduler) Sweep(ctx context.Context) {
	s.logger.Info("Начало зачистки недостающих архивов")

	prefsByCollection := make(map[int64]*models.ArchivePreference)

	offset := 0
	seen := 0
	enqueued := 0

	for {
		links, err := s.linkRepo.FindWithMissingArchives(ctx, s.batchSize, offset)
		if err != nil {
			s.logger.Error("Ошибка при получении порции ссылок",
				"error", err,
				"offset", offset,
			)

			break
		}

		if len(links) == 0 {
			break
		}

		for _, link := range links {
			seen++

			prefs, ok := prefsByCollection[link.CollectionID]
			if !ok {
				prefs, err = s.prefs.GetOwnerPreferences(ctx, link.CollectionID)
				if err != nil {
					s.logger.Error("Ошибка при получении настроек архивации",
						"collectionID", link.CollectionID,
						"error", err,
					)

					continue
				}

				prefsByCollection[link.CollectionID] = prefs
			}

			if policy.AllMissingSettled(link, prefs) {
				continue
			}

			err = s.pool.Enqueue(models.Job{
				LinkID:        link.ID,
				MarkExhausted: true,
			})
			if err != nil {
				if errors.Is(err, &customerrors.ErrLinkBusy{}) {
					continue
				}

				if errors.Is(err, &customerrors.ErrQueueFull{}) {
					s.logger.Warn("Очередь заполнена, зачистка прервана до следующего прохода",
						"enqueued", enqueued,
					)

					metrics.UpdateLinksMissingArchives(float64(seen))

					return
				}

				s.logger.Error("Ошибка при постановке задания зачистки",
					"linkID", link.ID,
					"error", err,
				)
			} else {
				enqueued++
			}
		}

		offset += len(links)
	}

	metrics.UpdateLinksMissingArchives(float64(seen))

	s.logger.Info("Зачистка завершена",
		"seen", seen,
		"enqueued", enqueued,
	)
}
