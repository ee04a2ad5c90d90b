package repository

import (
	"log/slog"

	"github.com/central-university-dev/go-link-preserver/internal/config"
	"github.com/central-university-dev/go-link-preserver/internal/database"
	"github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/repository/orm"
	sqlrepo "github.com/central-university-dev/go-link-preserver/internal/preserver/repository/sql"
	"github.com/central-university-dev/go-link-preserver/pkg/txs"
)

type Factory struct {
	db        *database.PostgresDB
	config    *config.Config
	txManager *txs.TxManager
	logger    *slog.Logger
}

func NewFactory(db *database.PostgresDB, config *config.Config, txManager *txs.TxManager, logger *slog.Logger) *Factory {
	return &Factory{
		db:        db,
		config:    config,
		txManager: txManager,
		logger:    logger,
	}
}

func (f *Factory) CreateLinkRepository() (LinkRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория ссылок")
		return orm.NewLinkRepository(f.db, f.txManager), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория ссылок")
		return sqlrepo.NewLinkRepository(f.db), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}

func (f *Factory) CreateCollectionRepository() (CollectionRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория коллекций")
		return orm.NewCollectionRepository(f.db, f.txManager), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория коллекций")
		return sqlrepo.NewCollectionRepository(f.db), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}
