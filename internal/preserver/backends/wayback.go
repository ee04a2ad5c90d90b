package backends

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"

	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

// WaybackGenerator отправляет URL во внешний публичный архив.
// Локального артефакта нет, в готовность ссылки формат не входит.
type WaybackGenerator struct {
	client  *resty.Client
	baseURL string
	logger  *slog.Logger
}

func NewWaybackGenerator(client *resty.Client, baseURL string, logger *slog.Logger) *WaybackGenerator {
	return &WaybackGenerator{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

func (g *WaybackGenerator) Format() models.Format {
	return models.FormatWayback
}

func (g *WaybackGenerator) NeedsPage() bool {
	return false
}

func (g *WaybackGenerator) Generate(ctx context.Context, link *models.Link, _ *SourcePage) ([]Artifact, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		Get(g.baseURL + *link.URL)
	if err != nil {
		return nil, fmt.Errorf("ошибка при отправке в Wayback Machine: %w", err)
	}

	if resp.StatusCode() >= 400 {
		return nil, &customerrors.HTTPError{StatusCode: resp.StatusCode()}
	}

	g.logger.Info("Ссылка отправлена в Wayback Machine",
		"linkID", link.ID,
		"url", *link.URL,
		"status", resp.StatusCode(),
	)

	return nil, nil
}
