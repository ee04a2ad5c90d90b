package service

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"

	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/policy"
)

type LinkRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Link, error)
}

type CollectionRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Collection, error)
	GetOwnerPreferences(ctx context.Context, collectionID int64) (*models.ArchivePreference, error)
}

type ArtifactStore interface {
	GetByPath(path string) ([]byte, error)
	PutOriginalDocument(linkID int64, ext string, payload []byte, maxUploadSize int64) (string, error)
}

type Enqueuer interface {
	Enqueue(job models.Job) error
}

type LinkCache interface {
	GetLink(ctx context.Context, linkID int64) (*models.Link, error)
	SetLink(ctx context.Context, link *models.Link) error
	Invalidate(ctx context.Context, linkID int64) error
}

// LinkStatus несёт ссылку вместе с вычисленной готовностью. Готовность
// нигде не хранится, она пересчитывается на каждом чтении.
type LinkStatus struct {
	Link      *models.Link
	Ready     bool
	Available []models.Format
	Missing   []models.Format
}

// Artifact содержит архивный файл для отдачи клиенту.
type Artifact struct {
	Payload     []byte
	ContentType string
}

type PreserverService struct {
	linkRepo       LinkRepository
	collectionRepo CollectionRepository
	store          ArtifactStore
	pool           Enqueuer
	cache          LinkCache
	logger         *slog.Logger
	maxUploadSize  int64
}

func NewPreserverService(
	linkRepo LinkRepository,
	collectionRepo CollectionRepository,
	store ArtifactStore,
	pool Enqueuer,
	cache LinkCache,
	maxUploadSize int64,
	logger *slog.Logger,
) *PreserverService {
	return &PreserverService{
		linkRepo:       linkRepo,
		collectionRepo: collectionRepo,
		store:          store,
		pool:           pool,
		cache:          cache,
		logger:         logger,
		maxUploadSize:  maxUploadSize,
	}
}

// GetLinkStatus возвращает ссылку и её готовность для пользователя с
// правом чтения коллекции.
func (s *PreserverService) GetLinkStatus(ctx context.Context, userID, linkID int64) (*LinkStatus, error) {
	link, err := s.loadLink(ctx, linkID)
	if err != nil {
		return nil, err
	}

	collection, err := s.collectionRepo.FindByID(ctx, link.CollectionID)
	if err != nil {
		return nil, err
	}

	if !collection.CanRead(userID) {
		return nil, &customerrors.ErrAccessDenied{UserID: userID, LinkID: linkID}
	}

	prefs, err := s.collectionRepo.GetOwnerPreferences(ctx, link.CollectionID)
	if err != nil {
		return nil, err
	}

	return &LinkStatus{
		Link:      link,
		Ready:     policy.IsReady(link, prefs),
		Available: policy.AvailableFormats(link),
		Missing:   policy.MissingFormats(link, prefs),
	}, nil
}

// GetArtifact отдаёт содержимое архива формата. Сентинел "unavailable"
// различается с отсутствием: клиент видит "создать не удалось", а не
// "ещё не готово".
func (s *PreserverService) GetArtifact(ctx context.Context, userID, linkID int64, format models.Format) (*Artifact, error) {
	if format == models.FormatWayback {
		return nil, &customerrors.ErrUnsupportedFormat{Format: string(format)}
	}

	link, err := s.loadLink(ctx, linkID)
	if err != nil {
		return nil, err
	}

	collection, err := s.collectionRepo.FindByID(ctx, link.CollectionID)
	if err != nil {
		return nil, err
	}

	if !collection.CanRead(userID) {
		return nil, &customerrors.ErrAccessDenied{UserID: userID, LinkID: linkID}
	}

	field := link.ArchiveField(format)
	if field == nil {
		return nil, &customerrors.ErrUnsupportedFormat{Format: string(format)}
	}

	if *field == nil {
		return nil, &customerrors.ErrArtifactNotFound{LinkID: linkID, Format: string(format)}
	}

	if **field == models.StatusUnavailable {
		return nil, &customerrors.ErrArtifactUnavailable{LinkID: linkID, Format: string(format)}
	}

	payload, err := s.store.GetByPath(**field)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Payload:     payload,
		ContentType: contentTypeFor(**field),
	}, nil
}

// RefreshArchives ставит форсированное задание пересоздания архивов.
// Требует права обновления ссылок в коллекции.
func (s *PreserverService) RefreshArchives(ctx context.Context, userID, linkID int64, formats []models.Format) error {
	link, err := s.linkRepo.FindByID(ctx, linkID)
	if err != nil {
		return err
	}

	collection, err := s.collectionRepo.FindByID(ctx, link.CollectionID)
	if err != nil {
		return err
	}

	if !collection.CanUpdateLinks(userID) {
		return &customerrors.ErrAccessDenied{UserID: userID, LinkID: linkID}
	}

	prefs, err := s.collectionRepo.GetOwnerPreferences(ctx, link.CollectionID)
	if err != nil {
		return err
	}

	if len(policy.RequiredFormats(link, prefs)) == 0 {
		return &customerrors.ErrLinkHasNoURL{LinkID: linkID}
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, linkID); err != nil {
			s.logger.Warn("Ошибка при инвалидации кэша ссылки",
				"linkID", linkID,
				"error", err,
			)
		}
	}

	err = s.pool.Enqueue(models.Job{
		LinkID:  linkID,
		Formats: formats,
		Force:   true,
	})
	if err != nil {
		return err
	}

	s.logger.Info("Пересоздание архивов поставлено в очередь",
		"linkID", linkID,
		"userID", userID,
		"formats", formats,
	)

	return nil
}

// UploadDocument сохраняет исходный документ ссылки (PDF или
// изображение) и для PDF ставит в очередь пересоздание читаемого текста.
func (s *PreserverService) UploadDocument(ctx context.Context, userID, linkID int64, ext string, payload []byte) error {
	link, err := s.linkRepo.FindByID(ctx, linkID)
	if err != nil {
		return err
	}

	collection, err := s.collectionRepo.FindByID(ctx, link.CollectionID)
	if err != nil {
		return err
	}

	if !collection.CanUpdateLinks(userID) {
		return &customerrors.ErrAccessDenied{UserID: userID, LinkID: linkID}
	}

	if _, err := s.store.PutOriginalDocument(linkID, ext, payload, s.maxUploadSize); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, linkID); err != nil {
			s.logger.Warn("Ошибка при инвалидации кэша ссылки",
				"linkID", linkID,
				"error", err,
			)
		}
	}

	s.logger.Info("Исходный документ сохранён",
		"linkID", linkID,
		"userID", userID,
		"size", len(payload),
	)

	if link.Type != models.LinkTypePDF {
		return nil
	}

	err = s.pool.Enqueue(models.Job{
		LinkID:  linkID,
		Formats: []models.Format{models.FormatReadable},
		Force:   true,
	})
	if err != nil {
		if errors.Is(err, &customerrors.ErrLinkBusy{}) || errors.Is(err, &customerrors.ErrQueueFull{}) {
			s.logger.Warn("Пересоздание читаемого текста отложено",
				"linkID", linkID,
				"error", err,
			)

			return nil
		}

		return err
	}

	return nil
}

func (s *PreserverService) loadLink(ctx context.Context, linkID int64) (*models.Link, error) {
	if s.cache != nil {
		cached, err := s.cache.GetLink(ctx, linkID)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	link, err := s.linkRepo.FindByID(ctx, linkID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetLink(ctx, link); err != nil {
			s.logger.Warn("Ошибка при сохранении ссылки в кэш",
				"linkID", linkID,
				"error", err,
			)
		}
	}

	return link, nil
}

func contentTypeFor(artifactPath string) string {
	switch strings.ToLower(path.Ext(artifactPath)) {
	case ".png":
		return "image/png"
	case ".jpeg", ".jpg":
		return "image/jpeg"
	case ".pdf":
		return "application/pdf"
	case ".html":
		return "text/html; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
