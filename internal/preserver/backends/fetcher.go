package backends

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"

	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
)

// PageFetcher загружает исходную страницу ссылки.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (*SourcePage, error)
}

type HTTPPageFetcher struct {
	client *resty.Client
	logger *slog.Logger
}

// NewHTTPPageFetcher оборачивает устойчивый HTTP-клиент (ретраи и
// circuit breaker настраиваются в httputil).
func NewHTTPPageFetcher(client *resty.Client, logger *slog.Logger) *HTTPPageFetcher {
	return &HTTPPageFetcher{
		client: client,
		logger: logger,
	}
}

func (f *HTTPPageFetcher) FetchPage(ctx context.Context, url string) (*SourcePage, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("ошибка при загрузке страницы %s: %w", url, err)
	}

	if resp.StatusCode() >= 400 {
		return nil, &customerrors.HTTPError{StatusCode: resp.StatusCode()}
	}

	f.logger.Debug("Страница загружена",
		"url", url,
		"status", resp.StatusCode(),
		"size", len(resp.Body()),
	)

	return &SourcePage{
		URL:  url,
		HTML: resp.Body(),
	}, nil
}
