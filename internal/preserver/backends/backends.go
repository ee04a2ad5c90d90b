// Package backends содержит генераторы архивных форматов: headless-рендер
// (скриншот, PDF), монолитный HTML-снимок, извлечение читаемого текста и
// отправку в Wayback Machine.
package backends

import (
	"context"

	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

// Artifact содержит один результат генерации. Wayback артефактов не производит.
type Artifact struct {
	Format  models.Format
	Ext     string
	Payload []byte
}

// SourcePage загружается один раз на задание и переиспользуется
// монолитом и readable.
type SourcePage struct {
	URL  string
	HTML []byte
}

// Generator производит артефакты одного формата. NeedsPage сообщает,
// нужна ли генератору заранее загруженная страница: headless-рендер
// ходит за страницей сам.
type Generator interface {
	Format() models.Format
	NeedsPage() bool
	Generate(ctx context.Context, link *models.Link, page *SourcePage) ([]Artifact, error)
}

// Registry сопоставляет формат с генератором.
type Registry struct {
	generators map[models.Format]Generator
}

func NewRegistry(generators ...Generator) *Registry {
	byFormat := make(map[models.Format]Generator, len(generators))
	for _, g := range generators {
		byFormat[g.Format()] = g
	}

	return &Registry{generators: byFormat}
}

func (r *Registry) For(format models.Format) (Generator, error) {
	generator, ok := r.generators[format]
	if !ok {
		return nil, &customerrors.ErrUnsupportedFormat{Format: string(format)}
	}

	return generator, nil
}
