package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/central-university-dev/go-link-preserver/internal/common/metrics"
	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/backends"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/policy"
)

type LinkRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Link, error)
	UpdateArchiveFields(ctx context.Context, id int64, fields models.ArchiveFields) error
}

type PreferencesProvider interface {
	GetOwnerPreferences(ctx context.Context, collectionID int64) (*models.ArchivePreference, error)
}

type ArtifactStore interface {
	Put(linkID int64, format models.Format, ext string, payload []byte) (string, error)
	Delete(linkID int64, format models.Format) error
	DeleteAll(linkID int64) error
}

type EventNotifier interface {
	PublishSummary(ctx context.Context, summary *models.JobSummary) error
}

type StatusCache interface {
	Invalidate(ctx context.Context, linkID int64) error
}

// Сентинел "unavailable" пишется не с первого неудачного прохода
// зачистки: формат должен провалиться в нескольких заданиях подряд.
const sentinelAfterFailures = 3

type failureKey struct {
	linkID int64
	format models.Format
}

// Processor выполняет одно задание сохранения: генерирует недостающие
// форматы, складывает артефакты в хранилище и записывает все архивные
// поля ссылки одним атомарным обновлением.
type Processor struct {
	linkRepo    LinkRepository
	collections PreferencesProvider
	store       ArtifactStore
	registry    *backends.Registry
	fetcher     backends.PageFetcher
	notifier    EventNotifier
	cache       StatusCache
	logger      *slog.Logger

	retryCount    int
	retryBackoff  time.Duration
	formatTimeout time.Duration

	failMu        sync.Mutex
	sweepFailures map[failureKey]int
}

func NewProcessor(
	linkRepo LinkRepository,
	collections PreferencesProvider,
	store ArtifactStore,
	registry *backends.Registry,
	fetcher backends.PageFetcher,
	notifier EventNotifier,
	cache StatusCache,
	retryCount int,
	retryBackoff time.Duration,
	formatTimeout time.Duration,
	logger *slog.Logger,
) *Processor {
	if retryCount <= 0 {
		retryCount = 3
	}

	if formatTimeout <= 0 {
		formatTimeout = 60 * time.Second
	}

	return &Processor{
		linkRepo:      linkRepo,
		collections:   collections,
		store:         store,
		registry:      registry,
		fetcher:       fetcher,
		notifier:      notifier,
		cache:         cache,
		logger:        logger,
		retryCount:    retryCount,
		retryBackoff:  retryBackoff,
		formatTimeout: formatTimeout,
		sweepFailures: make(map[failureKey]int),
	}
}

// Process идемпотентен: уже существующие форматы повторно не создаются,
// если задание не форсированное. Ошибка одного формата не прерывает
// остальные.
//
//nolint:funlen // Последовательность шагов задания описана в одном месте.
func (p *Processor) Process(ctx context.Context, job models.Job) (*models.JobSummary, error) {
	summary := &models.JobSummary{
		LinkID:    job.LinkID,
		StartedAt: time.Now(),
	}

	link, err := p.linkRepo.FindByID(ctx, job.LinkID)
	if err != nil {
		return nil, err
	}

	prefs, err := p.collections.GetOwnerPreferences(ctx, link.CollectionID)
	if err != nil {
		return nil, err
	}

	targets := p.resolveTargets(link, prefs, job)
	if len(targets) == 0 {
		summary.Ready = policy.IsReady(link, prefs)
		summary.FinishedAt = time.Now()

		p.logger.Debug("Заданию нечего делать",
			"linkID", link.ID,
			"force", job.Force,
		)

		return summary, nil
	}

	fields := link.SnapshotArchiveFields()

	if job.Force {
		p.clearTargets(link.ID, &fields, targets)
	}

	page := p.fetchPageIfNeeded(ctx, link, targets)

	results := p.generateAll(ctx, link, targets, page)

	var mutated bool

	for _, result := range results {
		summary.Results = append(summary.Results, result)

		field := fields.Field(result.Format)

		switch {
		case result.Err == nil && field != nil:
			*field = models.StringPtr(result.Path)
			mutated = true

			p.resetFailures(link.ID, result.Format)
		case result.Err != nil && field != nil && job.MarkExhausted:
			if p.recordFailure(link.ID, result.Format) < sentinelAfterFailures {
				break
			}

			// Попытки исчерпаны: фоновые повторы бессмысленны до
			// явного обновления.
			*field = models.StringPtr(models.StatusUnavailable)
			mutated = true

			p.resetFailures(link.ID, result.Format)
		}
	}

	if mutated || job.Force {
		if err := p.linkRepo.UpdateArchiveFields(ctx, link.ID, fields); err != nil {
			if errors.Is(err, &customerrors.ErrLinkNotFound{}) {
				// Ссылку удалили, пока шло задание: удаление
				// авторитетно, артефакты не должны воскреснуть.
				_ = p.store.DeleteAll(link.ID)

				p.logger.Warn("Ссылка удалена во время сохранения, результаты отброшены",
					"linkID", link.ID,
				)

				return nil, err
			}

			return nil, fmt.Errorf("ошибка при записи архивных полей: %w", err)
		}
	}

	updated := *link
	updated.Image = fields.Image
	updated.Monolith = fields.Monolith
	updated.PDF = fields.PDF
	updated.Readable = fields.Readable
	updated.Preview = fields.Preview

	summary.Ready = policy.IsReady(&updated, prefs)
	summary.FinishedAt = time.Now()

	if p.cache != nil {
		if err := p.cache.Invalidate(ctx, link.ID); err != nil {
			p.logger.Warn("Ошибка при инвалидации кэша ссылки",
				"linkID", link.ID,
				"error", err,
			)
		}
	}

	if p.notifier != nil {
		if err := p.notifier.PublishSummary(ctx, summary); err != nil {
			p.logger.Warn("Ошибка при публикации события сохранения",
				"linkID", link.ID,
				"error", err,
			)
		}
	}

	status := "success"
	if len(summary.Failed()) > 0 {
		status = "partial"
	}

	metrics.RecordPreservationJob(status, summary.FinishedAt.Sub(summary.StartedAt))

	p.logger.Info("Задание сохранения завершено",
		"linkID", link.ID,
		"attempted", len(results),
		"failed", len(summary.Failed()),
		"ready", summary.Ready,
	)

	return summary, nil
}

// resolveTargets определяет форматы для попытки в этом задании.
// Без force пропускаются уже существующие форматы и форматы с
// сентинелом "unavailable".
func (p *Processor) resolveTargets(link *models.Link, prefs *models.ArchivePreference, job models.Job) []models.Format {
	required := policy.RequiredFormats(link, prefs)

	requested := make(map[models.Format]bool, len(job.Formats))
	for _, format := range job.Formats {
		requested[format] = true
	}

	var targets []models.Format

	for _, format := range required {
		if len(job.Formats) > 0 && !requested[format] {
			continue
		}

		if !job.Force && format != models.FormatWayback && link.Settled(format) {
			continue
		}

		targets = append(targets, format)
	}

	return targets
}

func (p *Processor) recordFailure(linkID int64, format models.Format) int {
	p.failMu.Lock()
	defer p.failMu.Unlock()

	key := failureKey{linkID: linkID, format: format}
	p.sweepFailures[key]++

	return p.sweepFailures[key]
}

func (p *Processor) resetFailures(linkID int64, format models.Format) {
	p.failMu.Lock()
	defer p.failMu.Unlock()

	delete(p.sweepFailures, failureKey{linkID: linkID, format: format})
}

func (p *Processor) clearTargets(linkID int64, fields *models.ArchiveFields, targets []models.Format) {
	for _, format := range targets {
		if field := fields.Field(format); field != nil {
			*field = nil
		}

		p.resetFailures(linkID, format)

		if format == models.FormatScreenshot {
			fields.Preview = nil
			_ = p.store.Delete(linkID, models.FormatPreview)
		}

		_ = p.store.Delete(linkID, format)
	}
}

// fetchPageIfNeeded загружает страницу один раз, если хотя бы одному
// генератору она нужна. Ошибка загрузки не фатальна: генераторы без
// страницы получат nil и зафиксируют ошибку формата сами.
func (p *Processor) fetchPageIfNeeded(ctx context.Context, link *models.Link, targets []models.Format) *backends.SourcePage {
	if !link.HasURL() {
		return nil
	}

	needsPage := false

	for _, format := range targets {
		generator, err := p.registry.For(format)
		if err == nil && generator.NeedsPage() {
			needsPage = true
			break
		}
	}

	if !needsPage {
		return nil
	}

	var page *backends.SourcePage

	err := p.withRetry(ctx, func(attemptCtx context.Context) error {
		fetched, fetchErr := p.fetcher.FetchPage(attemptCtx, *link.URL)
		if fetchErr != nil {
			return fetchErr
		}

		page = fetched

		return nil
	})
	if err != nil {
		p.logger.Warn("Страница не загружена",
			"linkID", link.ID,
			"url", *link.URL,
			"error", err,
		)

		return nil
	}

	return page
}

// generateAll запускает попытки всех форматов параллельно. Форматы
// одного задания независимы, порядок завершения не гарантирован.
func (p *Processor) generateAll(ctx context.Context, link *models.Link, targets []models.Format, page *backends.SourcePage) []models.FormatResult {
	resultCh := make(chan models.FormatResult, len(targets)*2)

	wg := sync.WaitGroup{}

	for _, format := range targets {
		wg.Add(1)

		go func(format models.Format) {
			defer wg.Done()

			for _, result := range p.generateOne(ctx, link, format, page) {
				resultCh <- result
			}
		}(format)
	}

	wg.Wait()
	close(resultCh)

	var results []models.FormatResult
	for result := range resultCh {
		results = append(results, result)
	}

	return results
}

// generateOne выполняет попытки одного формата с ретраями. Успешная
// генерация может дать дополнительные артефакты: скриншот несёт с
// собой превью.
func (p *Processor) generateOne(ctx context.Context, link *models.Link, format models.Format, page *backends.SourcePage) []models.FormatResult {
	started := time.Now()

	generator, err := p.registry.For(format)
	if err != nil {
		return []models.FormatResult{{Format: format, Err: err}}
	}

	if generator.NeedsPage() && page == nil && link.HasURL() {
		err := fmt.Errorf("страница для формата %s не загружена", format)
		metrics.RecordFormatAttempt(string(format), "error", time.Since(started))

		return []models.FormatResult{{Format: format, Err: err}}
	}

	var artifacts []backends.Artifact

	err = p.withRetry(ctx, func(attemptCtx context.Context) error {
		generated, genErr := generator.Generate(attemptCtx, link, page)
		if genErr != nil {
			return genErr
		}

		artifacts = generated

		return nil
	})
	if err != nil {
		metrics.RecordFormatAttempt(string(format), "error", time.Since(started))

		return []models.FormatResult{{Format: format, Err: err}}
	}

	// Wayback не производит локального артефакта.
	if len(artifacts) == 0 {
		metrics.RecordFormatAttempt(string(format), "success", time.Since(started))

		return []models.FormatResult{{Format: format}}
	}

	var results []models.FormatResult

	var storeErr error

	for _, artifact := range artifacts {
		path, putErr := p.store.Put(link.ID, artifact.Format, artifact.Ext, artifact.Payload)
		if putErr != nil {
			storeErr = multierr.Append(storeErr, putErr)
			results = append(results, models.FormatResult{Format: artifact.Format, Err: putErr})

			continue
		}

		results = append(results, models.FormatResult{Format: artifact.Format, Path: path})
	}

	status := "success"
	if storeErr != nil {
		status = "error"
	}

	metrics.RecordFormatAttempt(string(format), status, time.Since(started))

	return results
}

func (p *Processor) withRetry(ctx context.Context, attempt func(ctx context.Context) error) error {
	var lastErr error

	for i := 0; i < p.retryCount; i++ {
		if ctx.Err() != nil {
			return multierr.Append(lastErr, ctx.Err())
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.formatTimeout)
		err := attempt(attemptCtx)

		cancel()

		if err == nil {
			return nil
		}

		lastErr = err

		if i < p.retryCount-1 {
			select {
			case <-time.After(p.retryBackoff * time.Duration(i+1)):
			case <-ctx.Done():
				return multierr.Append(lastErr, ctx.Err())
			}
		}
	}

	return lastErr
}
