package backends

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

// maxInlineResourceSize ограничивает размер одного встраиваемого ресурса.
const maxInlineResourceSize = 5 * 1024 * 1024

// MonolithGenerator собирает автономный HTML-снимок: изображения и
// стили встраиваются как data URI, скрипты вырезаются.
type MonolithGenerator struct {
	client *resty.Client
	logger *slog.Logger
}

func NewMonolithGenerator(client *resty.Client, logger *slog.Logger) *MonolithGenerator {
	return &MonolithGenerator{
		client: client,
		logger: logger,
	}
}

func (g *MonolithGenerator) Format() models.Format {
	return models.FormatMonolith
}

func (g *MonolithGenerator) NeedsPage() bool {
	return true
}

func (g *MonolithGenerator) Generate(ctx context.Context, link *models.Link, page *SourcePage) ([]Artifact, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("ошибка при разборе HTML страницы: %w", err)
	}

	base, err := url.Parse(page.URL)
	if err != nil {
		return nil, fmt.Errorf("ошибка при разборе URL страницы: %w", err)
	}

	doc.Find("script").Remove()

	doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
		g.inlineAttr(ctx, base, sel, "src")
	})

	doc.Find(`link[rel="stylesheet"][href]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")

		payload, contentType, ok := g.fetchResource(ctx, base, href)
		if !ok {
			return
		}

		if contentType == "" {
			contentType = "text/css"
		}

		sel.ReplaceWithHtml("<style>" + string(payload) + "</style>")
	})

	html, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("ошибка при сериализации монолита: %w", err)
	}

	return []Artifact{{
		Format:  models.FormatMonolith,
		Ext:     "html",
		Payload: []byte(html),
	}}, nil
}

func (g *MonolithGenerator) inlineAttr(ctx context.Context, base *url.URL, sel *goquery.Selection, attr string) {
	ref, _ := sel.Attr(attr)

	if strings.HasPrefix(ref, "data:") {
		return
	}

	payload, contentType, ok := g.fetchResource(ctx, base, ref)
	if !ok {
		return
	}

	if contentType == "" {
		contentType = http.DetectContentType(payload)
	}

	encoded := base64.StdEncoding.EncodeToString(payload)
	sel.SetAttr(attr, "data:"+contentType+";base64,"+encoded)
}

// fetchResource загружает подресурс. Ошибка загрузки не фатальна:
// монолит остаётся со ссылкой на оригинал.
func (g *MonolithGenerator) fetchResource(ctx context.Context, base *url.URL, ref string) (payload []byte, contentType string, ok bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, "", false
	}

	resolved, err := base.Parse(ref)
	if err != nil || (resolved.Scheme != "http" && resolved.Scheme != "https") {
		return nil, "", false
	}

	resp, err := g.client.R().
		SetContext(ctx).
		Get(resolved.String())
	if err != nil || resp.StatusCode() >= 400 {
		g.logger.Debug("Подресурс не загружен",
			"url", resolved.String(),
			"error", err,
		)

		return nil, "", false
	}

	body := resp.Body()
	if len(body) == 0 || len(body) > maxInlineResourceSize {
		return nil, "", false
	}

	return body, resp.Header().Get("Content-Type"), true
}
