package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/central-university-dev/go-link-preserver/internal/common/metrics"
	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

type JobProcessor interface {
	Process(ctx context.Context, job models.Job) (*models.JobSummary, error)
}

// Pool обслуживает очередь заданий сохранения. Для одной ссылки
// одновременно выполняется не больше одного задания: повторная
// постановка до завершения возвращает ErrLinkBusy.
type Pool struct {
	processor JobProcessor
	queue     chan models.Job
	logger    *slog.Logger
	workers   int

	mu       sync.Mutex
	inflight map[int64]struct{}
	closed   bool

	wg sync.WaitGroup
}

func NewPool(processor JobProcessor, workers, capacity int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}

	if capacity <= 0 {
		capacity = 256
	}

	return &Pool{
		processor: processor,
		queue:     make(chan models.Job, capacity),
		logger:    logger,
		workers:   workers,
		inflight:  make(map[int64]struct{}),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Запуск пула воркеров сохранения",
		"workers", p.workers,
		"capacity", cap(p.queue),
	)

	for i := 0; i < p.workers; i++ {
		workerID := i + 1

		p.wg.Add(1)

		go func(workerID int) {
			defer p.wg.Done()
			p.worker(ctx, workerID)
		}(workerID)
	}
}

// Enqueue ставит задание в очередь без блокировки. При переполненной
// очереди возвращает ErrQueueFull, при остановленном пуле ErrQueueClosed.
func (p *Pool) Enqueue(job models.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return &customerrors.ErrQueueClosed{}
	}

	if _, busy := p.inflight[job.LinkID]; busy {
		return &customerrors.ErrLinkBusy{LinkID: job.LinkID}
	}

	job.EnqueuedAt = time.Now()

	select {
	case p.queue <- job:
		p.inflight[job.LinkID] = struct{}{}
		metrics.SetQueueDepth(len(p.queue))

		return nil
	default:
		return &customerrors.ErrQueueFull{}
	}
}

// Stop закрывает очередь и дожидается завершения уже принятых заданий.
func (p *Pool) Stop() {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return
	}

	p.closed = true

	close(p.queue)
	p.mu.Unlock()

	p.logger.Info("Остановка пула воркеров сохранения")
	p.wg.Wait()
	p.logger.Info("Пул воркеров сохранения остановлен")
}

func (p *Pool) worker(ctx context.Context, workerID int) {
	for job := range p.queue {
		metrics.SetQueueDepth(len(p.queue))

		p.logger.Debug("Воркер взял задание",
			"worker", workerID,
			"linkID", job.LinkID,
			"force", job.Force,
			"waited", time.Since(job.EnqueuedAt).String(),
		)

		summary, err := p.processor.Process(ctx, job)

		p.release(job.LinkID)

		if err != nil {
			p.logger.Error("Ошибка при выполнении задания сохранения",
				"worker", workerID,
				"linkID", job.LinkID,
				"error", err,
			)

			continue
		}

		if failed := summary.Failed(); len(failed) > 0 {
			p.logger.Warn("Задание завершено с частичными ошибками",
				"worker", workerID,
				"linkID", job.LinkID,
				"failedFormats", len(failed),
			)
		}
	}

	p.logger.Debug("Воркер завершил работу", "worker", workerID)
}

func (p *Pool) release(linkID int64) {
	p.mu.Lock()
	delete(p.inflight, linkID)
	p.mu.Unlock()
}
