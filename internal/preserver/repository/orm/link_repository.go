package orm

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/central-university-dev/go-link-preserver/internal/database"
	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
	"github.com/central-university-dev/go-link-preserver/pkg/txs"
)

var linkColumns = []string{
	"id", "url", "name", "description", "type", "collection_id",
	"image", "monolith", "pdf", "readable", "preview", "created_at", "updated_at",
}

var archiveColumnByFormat = map[models.Format]string{
	models.FormatScreenshot: "image",
	models.FormatMonolith:   "monolith",
	models.FormatPDF:        "pdf",
	models.FormatReadable:   "readable",
	models.FormatPreview:    "preview",
}

type LinkRepository struct {
	db        *database.PostgresDB
	sq        sq.StatementBuilderType
	txManager *txs.TxManager
}

func NewLinkRepository(db *database.PostgresDB, txManager *txs.TxManager) *LinkRepository {
	return &LinkRepository{
		db:        db,
		sq:        sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		txManager: txManager,
	}
}

func (r *LinkRepository) Save(ctx context.Context, link *models.Link) error {
	return r.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		querier := txs.GetQuerier(ctx, r.db.Pool)

		now := time.Now()
		if link.CreatedAt.IsZero() {
			link.CreatedAt = now
		}

		link.UpdatedAt = now

		insertQuery := r.sq.Insert("links").
			Columns("url", "name", "description", "type", "collection_id",
				"image", "monolith", "pdf", "readable", "preview", "created_at", "updated_at").
			Values(link.URL, link.Name, link.Description, link.Type, link.CollectionID,
				link.Image, link.Monolith, link.PDF, link.Readable, link.Preview,
				link.CreatedAt, link.UpdatedAt).
			Suffix("RETURNING id")

		query, args, err := insertQuery.ToSql()
		if err != nil {
			return &customerrors.ErrBuildSQLQuery{Operation: "вставка ссылки", Cause: err}
		}

		var id int64

		err = querier.QueryRow(ctx, query, args...).Scan(&id)
		if err != nil {
			return &customerrors.ErrSQLExecution{Operation: "сохранение ссылки", Cause: err}
		}

		link.ID = id

		if len(link.Tags) > 0 {
			if err := r.saveTags(ctx, querier, id, link.Tags); err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *LinkRepository) saveTags(ctx context.Context, querier txs.Querier, linkID int64, tags []string) error {
	for _, tag := range tags {
		insertQuery := r.sq.Insert("tags").
			Columns("name").
			Values(tag).
			Suffix("ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id")

		query, args, err := insertQuery.ToSql()
		if err != nil {
			return &customerrors.ErrBuildSQLQuery{Operation: "вставка тега", Cause: err}
		}

		var tagID int64

		err = querier.QueryRow(ctx, query, args...).Scan(&tagID)
		if err != nil {
			return &customerrors.ErrSQLExecution{Operation: "сохранение тега", Cause: err}
		}

		linkQuery := r.sq.Insert("link_tags").
			Columns("link_id", "tag_id").
			Values(linkID, tagID).
			Suffix("ON CONFLICT DO NOTHING")

		query, args, err = linkQuery.ToSql()
		if err != nil {
			return &customerrors.ErrBuildSQLQuery{Operation: "связывание ссылки с тегом", Cause: err}
		}

		_, err = querier.Exec(ctx, query, args...)
		if err != nil {
			return &customerrors.ErrSQLExecution{Operation: "связывание ссылки с тегом", Cause: err}
		}
	}

	return nil
}

func (r *LinkRepository) FindByID(ctx context.Context, id int64) (*models.Link, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select(linkColumns...).From("links").Where(sq.Eq{"id": id})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск ссылки по ID", Cause: err}
	}

	link := &models.Link{}

	err = querier.QueryRow(ctx, query, args...).Scan(
		&link.ID, &link.URL, &link.Name, &link.Description, &link.Type, &link.CollectionID,
		&link.Image, &link.Monolith, &link.PDF, &link.Readable, &link.Preview,
		&link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrLinkNotFound{LinkID: id}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск ссылки по ID", Cause: err}
	}

	tags, err := r.getTagsByLinkID(ctx, querier, id)
	if err != nil {
		return nil, err
	}

	link.Tags = tags

	return link, nil
}

func (r *LinkRepository) getTagsByLinkID(ctx context.Context, querier txs.Querier, linkID int64) ([]string, error) {
	selectQuery := r.sq.Select("t.name").
		From("tags t").
		Join("link_tags lt ON t.id = lt.tag_id").
		Where(sq.Eq{"lt.link_id": linkID})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "запрос тегов", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "запрос тегов", Cause: err}
	}
	defer rows.Close()

	var tags []string

	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, &customerrors.ErrSQLScan{Entity: "тега", Cause: err}
		}

		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка результатов запроса тегов", Cause: err}
	}

	return tags, nil
}

func (r *LinkRepository) FindAll(ctx context.Context, limit, offset int) ([]*models.Link, error) {
	selectQuery := r.sq.Select(linkColumns...).
		From("links").
		OrderBy("id").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	return r.queryLinks(ctx, selectQuery, "запрос ссылок")
}

func (r *LinkRepository) FindWithMissingArchives(ctx context.Context, limit, offset int) ([]*models.Link, error) {
	selectQuery := r.sq.Select(linkColumns...).
		From("links").
		Where(sq.NotEq{"url": nil}).
		Where(sq.Or{
			sq.Eq{"image": nil},
			sq.Eq{"monolith": nil},
			sq.Eq{"pdf": nil},
			sq.Eq{"readable": nil},
		}).
		OrderBy("id").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	return r.queryLinks(ctx, selectQuery, "запрос ссылок с недостающими архивами")
}

func (r *LinkRepository) queryLinks(ctx context.Context, selectQuery sq.SelectBuilder, operation string) ([]*models.Link, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: operation, Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: operation, Cause: err}
	}
	defer rows.Close()

	var links []*models.Link

	for rows.Next() {
		link := &models.Link{}

		err := rows.Scan(&link.ID, &link.URL, &link.Name, &link.Description, &link.Type, &link.CollectionID,
			&link.Image, &link.Monolith, &link.PDF, &link.Readable, &link.Preview,
			&link.CreatedAt, &link.UpdatedAt)
		if err != nil {
			return nil, &customerrors.ErrSQLScan{Entity: "ссылки", Cause: err}
		}

		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: operation, Cause: err}
	}

	return links, nil
}

func (r *LinkRepository) UpdateArchiveFields(ctx context.Context, id int64, fields models.ArchiveFields) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	updateQuery := r.sq.Update("links").
		Set("image", fields.Image).
		Set("monolith", fields.Monolith).
		Set("pdf", fields.PDF).
		Set("readable", fields.Readable).
		Set("preview", fields.Preview).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id})

	query, args, err := updateQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "обновление архивных полей", Cause: err}
	}

	tag, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "обновление архивных полей", Cause: err}
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrLinkNotFound{LinkID: id}
	}

	return nil
}

// ClearArchiveFields сбрасывает архивные поля в NULL. Пустой список
// форматов означает все форматы.
func (r *LinkRepository) ClearArchiveFields(ctx context.Context, id int64, formats []models.Format) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	updateQuery := r.sq.Update("links").
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id})

	if len(formats) == 0 {
		for _, column := range archiveColumnByFormat {
			updateQuery = updateQuery.Set(column, nil)
		}
	}

	for _, format := range formats {
		column, ok := archiveColumnByFormat[format]
		if !ok {
			continue
		}

		updateQuery = updateQuery.Set(column, nil)
	}

	query, args, err := updateQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "очистка архивных полей", Cause: err}
	}

	tag, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "очистка архивных полей", Cause: err}
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrLinkNotFound{LinkID: id}
	}

	return nil
}

func (r *LinkRepository) Delete(ctx context.Context, id int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	deleteQuery := r.sq.Delete("links").Where(sq.Eq{"id": id})

	query, args, err := deleteQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "удаление ссылки", Cause: err}
	}

	tag, err := querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "удаление ссылки", Cause: err}
	}

	if tag.RowsAffected() == 0 {
		return &customerrors.ErrLinkNotFound{LinkID: id}
	}

	return nil
}

func (r *LinkRepository) Count(ctx context.Context) (int, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	countQuery := r.sq.Select("COUNT(*)").From("links")

	query, args, err := countQuery.ToSql()
	if err != nil {
		return 0, &customerrors.ErrBuildSQLQuery{Operation: "подсчёт ссылок", Cause: err}
	}

	var count int

	err = querier.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, &customerrors.ErrSQLExecution{Operation: "подсчёт ссылок", Cause: err}
	}

	return count, nil
}
