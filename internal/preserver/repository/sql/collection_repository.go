package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/central-university-dev/go-link-preserver/internal/database"
	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

type CollectionRepository struct {
	db *database.PostgresDB
}

func NewCollectionRepository(db *database.PostgresDB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

func (r *CollectionRepository) FindByID(ctx context.Context, id int64) (*models.Collection, error) {
	collection := &models.Collection{ID: id}

	err := r.db.Pool.QueryRow(ctx,
		"SELECT owner_id, name, created_at, updated_at FROM collections WHERE id = $1",
		id).Scan(&collection.OwnerID, &collection.Name, &collection.CreatedAt, &collection.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrCollectionNotFound{CollectionID: id}
		}

		return nil, fmt.Errorf("ошибка при поиске коллекции по ID: %w", err)
	}

	members, err := r.getMembers(ctx, id)
	if err != nil {
		return nil, err
	}

	collection.Members = members

	return collection, nil
}

func (r *CollectionRepository) getMembers(ctx context.Context, collectionID int64) ([]models.Member, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT user_id, can_create, can_update, can_delete FROM collection_members WHERE collection_id = $1",
		collectionID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе участников коллекции: %w", err)
	}
	defer rows.Close()

	var members []models.Member

	for rows.Next() {
		var member models.Member

		if err := rows.Scan(&member.UserID, &member.CanCreate, &member.CanUpdate, &member.CanDelete); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании участника коллекции: %w", err)
		}

		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса участников: %w", err)
	}

	return members, nil
}

// GetOwnerPreferences возвращает настройки архивации владельца
// коллекции. Отсутствие строки настроек трактуется как "всё выключено".
func (r *CollectionRepository) GetOwnerPreferences(ctx context.Context, collectionID int64) (*models.ArchivePreference, error) {
	var ownerID int64

	err := r.db.Pool.QueryRow(ctx,
		"SELECT owner_id FROM collections WHERE id = $1",
		collectionID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrCollectionNotFound{CollectionID: collectionID}
		}

		return nil, fmt.Errorf("ошибка при поиске владельца коллекции: %w", err)
	}

	prefs := &models.ArchivePreference{UserID: ownerID}

	err = r.db.Pool.QueryRow(ctx,
		"SELECT archive_as_screenshot, archive_as_monolith, archive_as_pdf, archive_as_readable, archive_as_wayback "+
			"FROM archive_preferences WHERE user_id = $1",
		ownerID).Scan(&prefs.ArchiveAsScreenshot, &prefs.ArchiveAsMonolith, &prefs.ArchiveAsPDF,
		&prefs.ArchiveAsReadable, &prefs.ArchiveAsWaybackMachine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return prefs, nil
		}

		return nil, fmt.Errorf("ошибка при запросе настроек архивации: %w", err)
	}

	return prefs, nil
}

func (r *CollectionRepository) SavePreferences(ctx context.Context, prefs *models.ArchivePreference) error {
	_, err := r.db.Pool.Exec(ctx,
		"INSERT INTO archive_preferences (user_id, archive_as_screenshot, archive_as_monolith, archive_as_pdf, archive_as_readable, archive_as_wayback, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7) "+
			"ON CONFLICT (user_id) DO UPDATE SET archive_as_screenshot = $2, archive_as_monolith = $3, archive_as_pdf = $4, archive_as_readable = $5, archive_as_wayback = $6, updated_at = $7",
		prefs.UserID, prefs.ArchiveAsScreenshot, prefs.ArchiveAsMonolith, prefs.ArchiveAsPDF,
		prefs.ArchiveAsReadable, prefs.ArchiveAsWaybackMachine, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка при сохранении настроек архивации: %w", err)
	}

	return nil
}
