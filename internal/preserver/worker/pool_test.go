package worker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/worker"
)

type fakeProcessor struct {
	mu        sync.Mutex
	processed []int64
	started   chan int64
	release   chan struct{}
	count     atomic.Int64
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{
		started: make(chan int64, 64),
		release: make(chan struct{}),
	}
}

func (p *fakeProcessor) Process(_ context.Context, job models.Job) (*models.JobSummary, error) {
	p.started <- job.LinkID

	if p.release != nil {
		<-p.release
	}

	p.mu.Lock()
	p.processed = append(p.processed, job.LinkID)
	p.mu.Unlock()

	p.count.Add(1)

	return &models.JobSummary{LinkID: job.LinkID, Ready: true}, nil
}

func TestPool_ProcessesEnqueuedJobs(t *testing.T) {
	t.Parallel()

	// Arrange
	processor := newFakeProcessor()
	close(processor.release)
	processor.release = nil

	pool := worker.NewPool(processor, 2, 8, noopLogger())
	pool.Start(context.Background())

	// Act
	require.NoError(t, pool.Enqueue(models.Job{LinkID: 1}))
	require.NoError(t, pool.Enqueue(models.Job{LinkID: 2}))
	require.NoError(t, pool.Enqueue(models.Job{LinkID: 3}))

	pool.Stop()

	// Assert
	assert.Equal(t, int64(3), processor.count.Load())
}

func TestPool_DuplicateLinkReturnsBusy(t *testing.T) {
	t.Parallel()

	// Arrange
	processor := newFakeProcessor()
	pool := worker.NewPool(processor, 1, 8, noopLogger())
	pool.Start(context.Background())

	require.NoError(t, pool.Enqueue(models.Job{LinkID: 7}))

	// Дожидаемся, пока воркер возьмёт задание в работу.
	select {
	case <-processor.started:
	case <-time.After(2 * time.Second):
		t.Fatal("воркер не взял задание")
	}

	// Act: та же ссылка до завершения первого задания.
	err := pool.Enqueue(models.Job{LinkID: 7})

	// Assert
	assert.ErrorIs(t, err, &customerrors.ErrLinkBusy{})

	close(processor.release)
	pool.Stop()

	// После завершения ссылку снова можно ставить в очередь.
	processor.mu.Lock()
	processedOnce := len(processor.processed) == 1
	processor.mu.Unlock()
	assert.True(t, processedOnce)
}

func TestPool_QueueFull(t *testing.T) {
	t.Parallel()

	// Arrange: пул не запущен, очередь на два места.
	processor := newFakeProcessor()
	pool := worker.NewPool(processor, 1, 2, noopLogger())

	require.NoError(t, pool.Enqueue(models.Job{LinkID: 1}))
	require.NoError(t, pool.Enqueue(models.Job{LinkID: 2}))

	// Act
	err := pool.Enqueue(models.Job{LinkID: 3})

	// Assert
	assert.ErrorIs(t, err, &customerrors.ErrQueueFull{})
}

func TestPool_EnqueueAfterStop(t *testing.T) {
	t.Parallel()

	// Arrange
	processor := newFakeProcessor()
	close(processor.release)
	processor.release = nil

	pool := worker.NewPool(processor, 1, 2, noopLogger())
	pool.Start(context.Background())
	pool.Stop()

	// Act
	err := pool.Enqueue(models.Job{LinkID: 1})

	// Assert
	assert.ErrorIs(t, err, &customerrors.ErrQueueClosed{})
}

func TestPool_StopDrainsAcceptedJobs(t *testing.T) {
	t.Parallel()

	// Arrange: один воркер, несколько заданий в очереди.
	processor := newFakeProcessor()
	close(processor.release)
	processor.release = nil

	pool := worker.NewPool(processor, 1, 8, noopLogger())

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, pool.Enqueue(models.Job{LinkID: i}))
	}

	pool.Start(context.Background())

	// Act
	pool.Stop()

	// Assert: остановка дожидается всех принятых заданий.
	assert.Equal(t, int64(5), processor.count.Load())
}
