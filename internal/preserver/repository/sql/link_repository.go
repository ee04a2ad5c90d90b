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

const linkColumns = "url, name, description, type, collection_id, " +
	"image, monolith, pdf, readable, preview, created_at, updated_at"

type LinkRepository struct {
	db *database.PostgresDB
}

func NewLinkRepository(db *database.PostgresDB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) Save(ctx context.Context, link *models.Link) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка при начале транзакции: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	now := time.Now()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}

	link.UpdatedAt = now

	var id int64
	err = tx.QueryRow(ctx,
		"INSERT INTO links ("+linkColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id",
		link.URL, link.Name, link.Description, link.Type, link.CollectionID,
		link.Image, link.Monolith, link.PDF, link.Readable, link.Preview,
		link.CreatedAt, link.UpdatedAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("ошибка при сохранении ссылки: %w", err)
	}

	link.ID = id

	if len(link.Tags) > 0 {
		err = r.saveTags(ctx, tx, id, link.Tags)
		if err != nil {
			return fmt.Errorf("ошибка при сохранении тегов: %w", err)
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	return nil
}

func (r *LinkRepository) saveTags(ctx context.Context, tx pgx.Tx, linkID int64, tags []string) error {
	for _, tag := range tags {
		var tagID int64
		err := tx.QueryRow(ctx,
			"INSERT INTO tags (name) VALUES ($1) ON CONFLICT (name) DO UPDATE SET name = $1 RETURNING id",
			tag).Scan(&tagID)
		if err != nil {
			return fmt.Errorf("ошибка при сохранении тега %s: %w", tag, err)
		}

		_, err = tx.Exec(ctx,
			"INSERT INTO link_tags (link_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			linkID, tagID)
		if err != nil {
			return fmt.Errorf("ошибка при связывании ссылки с тегом: %w", err)
		}
	}

	return nil
}

func (r *LinkRepository) FindByID(ctx context.Context, id int64) (*models.Link, error) {
	link := &models.Link{ID: id}

	err := r.db.Pool.QueryRow(ctx,
		"SELECT "+linkColumns+" FROM links WHERE id = $1",
		id).Scan(&link.URL, &link.Name, &link.Description, &link.Type, &link.CollectionID,
		&link.Image, &link.Monolith, &link.PDF, &link.Readable, &link.Preview,
		&link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrLinkNotFound{LinkID: id}
		}

		return nil, fmt.Errorf("ошибка при поиске ссылки по ID: %w", err)
	}

	tags, err := r.getTagsByLinkID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ошибка при загрузке тегов: %w", err)
	}

	link.Tags = tags

	return link, nil
}

func (r *LinkRepository) getTagsByLinkID(ctx context.Context, linkID int64) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT t.name FROM tags t JOIN link_tags lt ON t.id = lt.tag_id WHERE lt.link_id = $1",
		linkID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе тегов: %w", err)
	}
	defer rows.Close()

	var tags []string

	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("ошибка при сканировании тега: %w", err)
		}

		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса тегов: %w", err)
	}

	return tags, nil
}

func (r *LinkRepository) FindAll(ctx context.Context, limit, offset int) ([]*models.Link, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT id, "+linkColumns+" FROM links ORDER BY id LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе ссылок: %w", err)
	}
	defer rows.Close()

	return scanLinks(rows)
}

// FindWithMissingArchives возвращает кандидатов на фоновую дообработку:
// ссылки с URL, у которых хотя бы одно архивное поле пустое. Нужны ли
// недостающие форматы на самом деле, решает политика по настройкам
// владельца.
func (r *LinkRepository) FindWithMissingArchives(ctx context.Context, limit, offset int) ([]*models.Link, error) {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT id, "+linkColumns+" FROM links WHERE url IS NOT NULL AND "+
			"(image IS NULL OR monolith IS NULL OR pdf IS NULL OR readable IS NULL) "+
			"ORDER BY id LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе ссылок с недостающими архивами: %w", err)
	}
	defer rows.Close()

	return scanLinks(rows)
}

func scanLinks(rows pgx.Rows) ([]*models.Link, error) {
	var links []*models.Link

	for rows.Next() {
		link := &models.Link{}

		err := rows.Scan(&link.ID, &link.URL, &link.Name, &link.Description, &link.Type, &link.CollectionID,
			&link.Image, &link.Monolith, &link.PDF, &link.Readable, &link.Preview,
			&link.CreatedAt, &link.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании ссылки: %w", err)
		}

		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов запроса ссылок: %w", err)
	}

	return links, nil
}

// UpdateArchiveFields записывает все архивные поля одним UPDATE и
// поднимает updated_at. Пользовательские поля (имя, описание, теги) не
// затрагиваются. Ноль затронутых строк означает, что ссылка удалена
// конкурентно: запись отбрасывается с ErrLinkNotFound.
func (r *LinkRepository) UpdateArchiveFields(ctx context.Context, id int64, fields models.ArchiveFields) error {
	tag, err := r.db.Pool.Exec(ctx,
		"UPDATE links SET image = $2, monolith = $3, pdf = $4, readable = $5, preview = $6, updated_at = $7 WHERE id = $1",
		id, fields.Image, fields.Monolith, fields.PDF, fields.Readable, fields.Preview, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка при обновлении архивных полей: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrLinkNotFound{LinkID: id}
	}

	return nil
}

// ClearArchiveFields сбрасывает архивные поля в NULL. Пустой список
// форматов означает все форматы.
func (r *LinkRepository) ClearArchiveFields(ctx context.Context, id int64, formats []models.Format) error {
	link, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}

	fields := link.SnapshotArchiveFields()

	if len(formats) == 0 {
		fields = models.ArchiveFields{}
		return r.UpdateArchiveFields(ctx, id, fields)
	}

	for _, format := range formats {
		if field := fields.Field(format); field != nil {
			*field = nil
		}
	}

	return r.UpdateArchiveFields(ctx, id, fields)
}

func (r *LinkRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM links WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("ошибка при удалении ссылки: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrLinkNotFound{LinkID: id}
	}

	return nil
}

func (r *LinkRepository) Count(ctx context.Context) (int, error) {
	var count int

	err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM links").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка при подсчёте ссылок: %w", err)
	}

	return count, nil
}
