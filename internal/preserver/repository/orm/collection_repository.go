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

type CollectionRepository struct {
	db        *database.PostgresDB
	sq        sq.StatementBuilderType
	txManager *txs.TxManager
}

func NewCollectionRepository(db *database.PostgresDB, txManager *txs.TxManager) *CollectionRepository {
	return &CollectionRepository{
		db:        db,
		sq:        sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		txManager: txManager,
	}
}

func (r *CollectionRepository) FindByID(ctx context.Context, id int64) (*models.Collection, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	selectQuery := r.sq.Select("owner_id", "name", "created_at", "updated_at").
		From("collections").
		Where(sq.Eq{"id": id})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск коллекции по ID", Cause: err}
	}

	collection := &models.Collection{ID: id}

	err = querier.QueryRow(ctx, query, args...).Scan(
		&collection.OwnerID, &collection.Name, &collection.CreatedAt, &collection.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrCollectionNotFound{CollectionID: id}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск коллекции по ID", Cause: err}
	}

	members, err := r.getMembers(ctx, querier, id)
	if err != nil {
		return nil, err
	}

	collection.Members = members

	return collection, nil
}

func (r *CollectionRepository) getMembers(ctx context.Context, querier txs.Querier, collectionID int64) ([]models.Member, error) {
	selectQuery := r.sq.Select("user_id", "can_create", "can_update", "can_delete").
		From("collection_members").
		Where(sq.Eq{"collection_id": collectionID})

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "запрос участников коллекции", Cause: err}
	}

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "запрос участников коллекции", Cause: err}
	}
	defer rows.Close()

	var members []models.Member

	for rows.Next() {
		var member models.Member

		if err := rows.Scan(&member.UserID, &member.CanCreate, &member.CanUpdate, &member.CanDelete); err != nil {
			return nil, &customerrors.ErrSQLScan{Entity: "участника коллекции", Cause: err}
		}

		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "обработка результатов запроса участников", Cause: err}
	}

	return members, nil
}

func (r *CollectionRepository) GetOwnerPreferences(ctx context.Context, collectionID int64) (*models.ArchivePreference, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	ownerQuery := r.sq.Select("owner_id").From("collections").Where(sq.Eq{"id": collectionID})

	query, args, err := ownerQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "поиск владельца коллекции", Cause: err}
	}

	var ownerID int64

	err = querier.QueryRow(ctx, query, args...).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &customerrors.ErrCollectionNotFound{CollectionID: collectionID}
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "поиск владельца коллекции", Cause: err}
	}

	prefsQuery := r.sq.Select("archive_as_screenshot", "archive_as_monolith", "archive_as_pdf",
		"archive_as_readable", "archive_as_wayback").
		From("archive_preferences").
		Where(sq.Eq{"user_id": ownerID})

	query, args, err = prefsQuery.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "запрос настроек архивации", Cause: err}
	}

	prefs := &models.ArchivePreference{UserID: ownerID}

	err = querier.QueryRow(ctx, query, args...).Scan(&prefs.ArchiveAsScreenshot, &prefs.ArchiveAsMonolith,
		&prefs.ArchiveAsPDF, &prefs.ArchiveAsReadable, &prefs.ArchiveAsWaybackMachine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return prefs, nil
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "запрос настроек архивации", Cause: err}
	}

	return prefs, nil
}

func (r *CollectionRepository) SavePreferences(ctx context.Context, prefs *models.ArchivePreference) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	insertQuery := r.sq.Insert("archive_preferences").
		Columns("user_id", "archive_as_screenshot", "archive_as_monolith", "archive_as_pdf",
			"archive_as_readable", "archive_as_wayback", "updated_at").
		Values(prefs.UserID, prefs.ArchiveAsScreenshot, prefs.ArchiveAsMonolith, prefs.ArchiveAsPDF,
			prefs.ArchiveAsReadable, prefs.ArchiveAsWaybackMachine, time.Now()).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET " +
			"archive_as_screenshot = EXCLUDED.archive_as_screenshot, " +
			"archive_as_monolith = EXCLUDED.archive_as_monolith, " +
			"archive_as_pdf = EXCLUDED.archive_as_pdf, " +
			"archive_as_readable = EXCLUDED.archive_as_readable, " +
			"archive_as_wayback = EXCLUDED.archive_as_wayback, " +
			"updated_at = EXCLUDED.updated_at")

	query, args, err := insertQuery.ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сохранение настроек архивации", Cause: err}
	}

	_, err = querier.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "сохранение настроек архивации", Cause: err}
	}

	return nil
}
