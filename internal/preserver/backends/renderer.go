package backends

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

// Renderer держит общий семафор headless-сессий. Лимит действует на
// весь пул воркеров, а не на одно задание.
type Renderer struct {
	sem    chan struct{}
	logger *slog.Logger
}

func NewRenderer(concurrency int, logger *slog.Logger) *Renderer {
	if concurrency <= 0 {
		concurrency = 2
	}

	return &Renderer{
		sem:    make(chan struct{}, concurrency),
		logger: logger,
	}
}

func (r *Renderer) acquire(ctx context.Context) error {
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Renderer) release() {
	<-r.sem
}

func (r *Renderer) newSession(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		taskCancel()
		allocCancel()
	}

	return taskCtx, cancel
}

// ScreenshotGenerator производит полностраничный скриншот и лёгкое
// превью в одной headless-сессии.
type ScreenshotGenerator struct {
	renderer *Renderer
	logger   *slog.Logger
}

func NewScreenshotGenerator(renderer *Renderer, logger *slog.Logger) *ScreenshotGenerator {
	return &ScreenshotGenerator{
		renderer: renderer,
		logger:   logger,
	}
}

func (g *ScreenshotGenerator) Format() models.Format {
	return models.FormatScreenshot
}

func (g *ScreenshotGenerator) NeedsPage() bool {
	return false
}

func (g *ScreenshotGenerator) Generate(ctx context.Context, link *models.Link, _ *SourcePage) ([]Artifact, error) {
	if err := g.renderer.acquire(ctx); err != nil {
		return nil, err
	}
	defer g.renderer.release()

	taskCtx, cancel := g.renderer.newSession(ctx)
	defer cancel()

	var screenshot, preview []byte

	// Качество 100 даёт PNG, меньшее даёт JPEG. Расширение артефакта
	// следует за фактической кодировкой.
	err := chromedp.Run(taskCtx,
		chromedp.EmulateViewport(1280, 720),
		chromedp.Navigate(*link.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.FullScreenshot(&screenshot, 100),
		chromedp.CaptureScreenshot(&preview),
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании скриншота %s: %w", *link.URL, err)
	}

	g.logger.Debug("Скриншот создан",
		"linkID", link.ID,
		"size", len(screenshot),
		"previewSize", len(preview),
	)

	return []Artifact{
		{Format: models.FormatScreenshot, Ext: "png", Payload: screenshot},
		{Format: models.FormatPreview, Ext: "png", Payload: preview},
	}, nil
}

// PDFGenerator печатает страницу в PDF через headless-браузер.
type PDFGenerator struct {
	renderer *Renderer
	logger   *slog.Logger
}

func NewPDFGenerator(renderer *Renderer, logger *slog.Logger) *PDFGenerator {
	return &PDFGenerator{
		renderer: renderer,
		logger:   logger,
	}
}

func (g *PDFGenerator) Format() models.Format {
	return models.FormatPDF
}

func (g *PDFGenerator) NeedsPage() bool {
	return false
}

func (g *PDFGenerator) Generate(ctx context.Context, link *models.Link, _ *SourcePage) ([]Artifact, error) {
	if err := g.renderer.acquire(ctx); err != nil {
		return nil, err
	}
	defer g.renderer.release()

	taskCtx, cancel := g.renderer.newSession(ctx)
	defer cancel()

	var payload []byte

	err := chromedp.Run(taskCtx,
		chromedp.Navigate(*link.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				Do(ctx)
			if err != nil {
				return err
			}

			payload = buf

			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка при печати страницы %s в PDF: %w", *link.URL, err)
	}

	g.logger.Debug("PDF создан",
		"linkID", link.ID,
		"size", len(payload),
	)

	return []Artifact{{
		Format:  models.FormatPDF,
		Ext:     "pdf",
		Payload: payload,
	}}, nil
}
