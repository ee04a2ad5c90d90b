package repository

import (
	"context"

	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

type LinkRepository interface {
	Save(ctx context.Context, link *models.Link) error
	FindByID(ctx context.Context, id int64) (*models.Link, error)
	FindAll(ctx context.Context, limit, offset int) ([]*models.Link, error)
	FindWithMissingArchives(ctx context.Context, limit, offset int) ([]*models.Link, error)
	UpdateArchiveFields(ctx context.Context, id int64, fields models.ArchiveFields) error
	ClearArchiveFields(ctx context.Context, id int64, formats []models.Format) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
}

type CollectionRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Collection, error)
	GetOwnerPreferences(ctx context.Context, collectionID int64) (*models.ArchivePreference, error)
	SavePreferences(ctx context.Context, prefs *models.ArchivePreference) error
}
