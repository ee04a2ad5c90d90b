package backends_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/backends"
)

type stubDocumentReader struct {
	payload []byte
	err     error
}

func (s *stubDocumentReader) ReadOriginalDocument(_ int64) ([]byte, error) {
	return s.payload, s.err
}

func TestReadableGenerator_ExtractsArticleText(t *testing.T) {
	t.Parallel()

	// Arrange
	paragraph := strings.Repeat("Длинный содержательный абзац статьи о сохранении закладок. ", 20)
	pageHTML := `<html><head><title>Статья</title></head><body>` +
		`<nav>меню сайта</nav>` +
		`<article><h1>Заголовок</h1><p>` + paragraph + `</p></article>` +
		`</body></html>`

	generator := backends.NewReadableGenerator(&stubDocumentReader{}, testLogger())

	link := &models.Link{ID: 1, URL: models.StringPtr("https://example.com/article")}
	page := &backends.SourcePage{URL: "https://example.com/article", HTML: []byte(pageHTML)}

	// Act
	artifacts, err := generator.Generate(context.Background(), link, page)

	// Assert
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, models.FormatReadable, artifacts[0].Format)
	assert.Equal(t, "txt", artifacts[0].Ext)
	assert.Contains(t, string(artifacts[0].Payload), "содержательный абзац")
}

func TestReadableGenerator_EmptyPageRejected(t *testing.T) {
	t.Parallel()

	// Arrange
	generator := backends.NewReadableGenerator(&stubDocumentReader{}, testLogger())

	link := &models.Link{ID: 2, URL: models.StringPtr("https://example.com/empty")}
	page := &backends.SourcePage{URL: "https://example.com/empty", HTML: []byte("<html><body></body></html>")}

	// Act
	artifacts, err := generator.Generate(context.Background(), link, page)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, &customerrors.ErrEmptyPayload{}))
	assert.Nil(t, artifacts)
}

func TestReadableGenerator_NilPageForURLLink(t *testing.T) {
	t.Parallel()

	// Arrange
	generator := backends.NewReadableGenerator(&stubDocumentReader{}, testLogger())

	link := &models.Link{ID: 3, Type: models.LinkTypeURL}

	// Act
	_, err := generator.Generate(context.Background(), link, nil)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, &customerrors.ErrLinkHasNoURL{}))
}

func TestReadableGenerator_DocumentReadError(t *testing.T) {
	t.Parallel()

	// Arrange
	documents := &stubDocumentReader{err: errors.New("файл не найден")}
	generator := backends.NewReadableGenerator(documents, testLogger())

	link := &models.Link{ID: 4, Type: models.LinkTypePDF}

	// Act
	_, err := generator.Generate(context.Background(), link, nil)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "исходного документа")
}

func TestReadableGenerator_BrokenDocumentRejected(t *testing.T) {
	t.Parallel()

	// Arrange
	documents := &stubDocumentReader{payload: []byte("это не PDF")}
	generator := backends.NewReadableGenerator(documents, testLogger())

	link := &models.Link{ID: 5, Type: models.LinkTypePDF}

	// Act
	_, err := generator.Generate(context.Background(), link, nil)

	// Assert
	require.Error(t, err)
}

func TestWaybackGenerator_SubmitsURLWithoutArtifacts(t *testing.T) {
	t.Parallel()

	// Arrange
	var requestedPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.String()

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	generator := backends.NewWaybackGenerator(resty.New(), server.URL+"/save/", testLogger())

	link := &models.Link{ID: 6, URL: models.StringPtr("https://example.com/page")}

	// Act
	artifacts, err := generator.Generate(context.Background(), link, nil)

	// Assert
	require.NoError(t, err)
	assert.Empty(t, artifacts, "wayback не производит локальных артефактов")
	assert.Contains(t, requestedPath, "/save/https://example.com/page")
}

func TestWaybackGenerator_ErrorStatusPropagated(t *testing.T) {
	t.Parallel()

	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	generator := backends.NewWaybackGenerator(resty.New(), server.URL+"/save/", testLogger())

	link := &models.Link{ID: 7, URL: models.StringPtr("https://example.com/page")}

	// Act
	_, err := generator.Generate(context.Background(), link, nil)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
