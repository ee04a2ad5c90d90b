package backends

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"

	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

// DocumentReader отдаёт исходный загруженный документ ссылки без URL.
type DocumentReader interface {
	ReadOriginalDocument(linkID int64) ([]byte, error)
}

// ReadableGenerator извлекает читаемый текст: для страниц через
// readability, для загруженных PDF-документов из самого файла.
type ReadableGenerator struct {
	documents DocumentReader
	logger    *slog.Logger
}

func NewReadableGenerator(documents DocumentReader, logger *slog.Logger) *ReadableGenerator {
	return &ReadableGenerator{
		documents: documents,
		logger:    logger,
	}
}

func (g *ReadableGenerator) Format() models.Format {
	return models.FormatReadable
}

func (g *ReadableGenerator) NeedsPage() bool {
	return true
}

func (g *ReadableGenerator) Generate(ctx context.Context, link *models.Link, page *SourcePage) ([]Artifact, error) {
	if link.Type == models.LinkTypePDF && !link.HasURL() {
		return g.fromDocument(link)
	}

	if page == nil {
		return nil, &customerrors.ErrLinkHasNoURL{LinkID: link.ID}
	}

	parsedURL, err := url.Parse(page.URL)
	if err != nil {
		return nil, fmt.Errorf("ошибка при разборе URL страницы: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(page.HTML), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка при извлечении читаемого текста: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, &customerrors.ErrEmptyPayload{Format: string(models.FormatReadable)}
	}

	return []Artifact{{
		Format:  models.FormatReadable,
		Ext:     "txt",
		Payload: []byte(text),
	}}, nil
}

func (g *ReadableGenerator) fromDocument(link *models.Link) ([]Artifact, error) {
	payload, err := g.documents.ReadOriginalDocument(link.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении исходного документа: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("ошибка при разборе PDF документа: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("ошибка при извлечении текста из PDF: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return nil, fmt.Errorf("ошибка при чтении текста PDF: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return nil, &customerrors.ErrEmptyPayload{Format: string(models.FormatReadable)}
	}

	g.logger.Debug("Текст извлечён из загруженного документа",
		"linkID", link.ID,
		"size", len(text),
	)

	return []Artifact{{
		Format:  models.FormatReadable,
		Ext:     "txt",
		Payload: []byte(text),
	}}, nil
}
