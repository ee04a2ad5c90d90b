package service_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/service"
)

type mockLinkRepository struct {
	mock.Mock
}

func (m *mockLinkRepository) FindByID(ctx context.Context, id int64) (*models.Link, error) {
	args := m.Called(ctx, id)
	if link := args.Get(0); link != nil {
		return link.(*models.Link), args.Error(1)
	}

	return nil, args.Error(1)
}

type mockCollectionRepository struct {
	mock.Mock
}

func (m *mockCollectionRepository) FindByID(ctx context.Context, id int64) (*models.Collection, error) {
	args := m.Called(ctx, id)
	if collection := args.Get(0); collection != nil {
		return collection.(*models.Collection), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockCollectionRepository) GetOwnerPreferences(ctx context.Context, collectionID int64) (*models.ArchivePreference, error) {
	args := m.Called(ctx, collectionID)
	if prefs := args.Get(0); prefs != nil {
		return prefs.(*models.ArchivePreference), args.Error(1)
	}

	return nil, args.Error(1)
}

type mockArtifactStore struct {
	mock.Mock
}

func (m *mockArtifactStore) GetByPath(path string) ([]byte, error) {
	args := m.Called(path)
	if payload := args.Get(0); payload != nil {
		return payload.([]byte), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockArtifactStore) PutOriginalDocument(linkID int64, ext string, payload []byte, maxUploadSize int64) (string, error) {
	args := m.Called(linkID, ext, payload, maxUploadSize)
	return args.String(0), args.Error(1)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(job models.Job) error {
	args := m.Called(job)
	return args.Error(0)
}

const testMaxUploadSize int64 = 1572864

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func ownerCollection(ownerID int64) *models.Collection {
	return &models.Collection{ID: 10, OwnerID: ownerID}
}

func archivedLink() *models.Link {
	return &models.Link{
		ID:           1,
		URL:          models.StringPtr("https://example.com"),
		Type:         models.LinkTypeURL,
		CollectionID: 10,
		Image:        models.StringPtr("1/screenshot.png"),
		Preview:      models.StringPtr("1/preview.png"),
	}
}

func newService(
	linkRepo *mockLinkRepository,
	collectionRepo *mockCollectionRepository,
	store *mockArtifactStore,
	pool *mockEnqueuer,
) *service.PreserverService {
	return service.NewPreserverService(linkRepo, collectionRepo, store, pool, nil, testMaxUploadSize, testLogger())
}

func TestGetLinkStatus_ReadyForOwner(t *testing.T) {
	t.Parallel()

	// Arrange
	link := archivedLink()
	prefs := &models.ArchivePreference{UserID: 100, ArchiveAsScreenshot: true}

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(ownerCollection(100), nil)
	collectionRepo.On("GetOwnerPreferences", mock.Anything, int64(10)).Return(prefs, nil)

	svc := newService(linkRepo, collectionRepo, new(mockArtifactStore), new(mockEnqueuer))

	// Act
	status, err := svc.GetLinkStatus(context.Background(), 100, 1)

	// Assert
	require.NoError(t, err)
	assert.True(t, status.Ready)
	assert.Contains(t, status.Available, models.FormatScreenshot)
	assert.Empty(t, status.Missing)
}

func TestGetLinkStatus_NotReadyWhenFormatMissing(t *testing.T) {
	t.Parallel()

	// Arrange: требуется монолит, его нет.
	link := archivedLink()
	prefs := &models.ArchivePreference{UserID: 100, ArchiveAsScreenshot: true, ArchiveAsMonolith: true}

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(ownerCollection(100), nil)
	collectionRepo.On("GetOwnerPreferences", mock.Anything, int64(10)).Return(prefs, nil)

	svc := newService(linkRepo, collectionRepo, new(mockArtifactStore), new(mockEnqueuer))

	// Act
	status, err := svc.GetLinkStatus(context.Background(), 100, 1)

	// Assert
	require.NoError(t, err)
	assert.False(t, status.Ready)
	assert.Equal(t, []models.Format{models.FormatMonolith}, status.Missing)
}

func TestGetLinkStatus_AccessDeniedForStranger(t *testing.T) {
	t.Parallel()

	// Arrange
	link := archivedLink()

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(ownerCollection(100), nil)

	svc := newService(linkRepo, collectionRepo, new(mockArtifactStore), new(mockEnqueuer))

	// Act
	_, err := svc.GetLinkStatus(context.Background(), 999, 1)

	// Assert
	assert.ErrorIs(t, err, &customerrors.ErrAccessDenied{})
}

func TestGetLinkStatus_MemberWithoutCapabilitiesDenied(t *testing.T) {
	t.Parallel()

	// Arrange: участник со всеми false-флагами считается отсутствующим.
	link := archivedLink()
	collection := ownerCollection(100)
	collection.Members = []models.Member{{UserID: 200}}

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(collection, nil)

	svc := newService(linkRepo, collectionRepo, new(mockArtifactStore), new(mockEnqueuer))

	// Act
	_, err := svc.GetLinkStatus(context.Background(), 200, 1)

	// Assert
	assert.ErrorIs(t, err, &customerrors.ErrAccessDenied{})
}

func TestGetArtifact_ReturnsPayload(t *testing.T) {
	t.Parallel()

	// Arrange
	link := archivedLink()

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)
	store := new(mockArtifactStore)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(ownerCollection(100), nil)
	store.On("GetByPath", "1/screenshot.png").Return([]byte("png-data"), nil)

	svc := newService(linkRepo, collectionRepo, store, new(mockEnqueuer))

	// Act
	artifact, err := svc.GetArtifact(context.Background(), 100, 1, models.FormatScreenshot)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []byte("png-data"), artifact.Payload)
	assert.Equal(t, "image/png", artifact.ContentType)
}

func TestGetArtifact_MissingFormat(t *testing.T) {
	t.Parallel()

	// Arrange: монолит ещё не создан.
	link := archivedLink()

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(ownerCollection(100), nil)

	svc := newService(linkRepo, collectionRepo, new(mockArtifactStore), new(mockEnqueuer))

	// Act
	_, err := svc.GetArtifact(context.Background(), 100, 1, models.FormatMonolith)

	// Assert
	assert.ErrorIs(t, err, &customerrors.ErrArtifactNotFound{})
}

func TestGetArtifact_UnavailableSentinel(t *testing.T) {
	t.Parallel()

	// Arrange
	link := archivedLink()
	link.Monolith = models.StringPtr(models.StatusUnavailable)

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(ownerCollection(100), nil)

	svc := newService(linkRepo, collectionRepo, new(mockArtifactStore), new(mockEnqueuer))

	// Act
	_, err := svc.GetArtifact(context.Background(), 100, 1, models.FormatMonolith)

	// Assert: "создать не удалось" отличается от "ещё не готово".
	assert.ErrorIs(t, err, &customerrors.ErrArtifactUnavailable{})
}

func TestGetArtifact_WaybackNotServed(t *testing.T) {
	t.Parallel()

	// Arrange
	svc := newService(new(mockLinkRepository), new(mockCollectionRepository), new(mockArtifactStore), new(mockEnqueuer))

	// Act
	_, err := svc.GetArtifact(context.Background(), 100, 1, models.FormatWayback)

	// Assert
	assert.ErrorIs(t, err, &customerrors.ErrUnsupportedFormat{})
}

func TestRefreshArchives_EnqueuesForcedJob(t *testing.T) {
	t.Parallel()

	// Arrange
	link := archivedLink()
	prefs := &models.ArchivePreference{UserID: 100, ArchiveAsScreenshot: true}

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)
	pool := new(mockEnqueuer)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(ownerCollection(100), nil)
	collectionRepo.On("GetOwnerPreferences", mock.Anything, int64(10)).Return(prefs, nil)

	pool.On("Enqueue", mock.MatchedBy(func(job models.Job) bool {
		return job.LinkID == 1 && job.Force
	})).Return(nil)

	svc := newService(linkRepo, collectionRepo, new(mockArtifactStore), pool)

	// Act
	err := svc.RefreshArchives(context.Background(), 100, 1, nil)

	// Assert
	require.NoError(t, err)
	pool.AssertExpectations(t)
}

func TestRefreshArchives_MemberWithUpdateRight(t *testing.T) {
	t.Parallel()

	// Arrange
	link := archivedLink()
	prefs := &models.ArchivePreference{UserID: 100, ArchiveAsScreenshot: true}

	collection := ownerCollection(100)
	collection.Members = []models.Member{{UserID: 200, CanUpdate: true}}

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)
	pool := new(mockEnqueuer)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(collection, nil)
	collectionRepo.On("GetOwnerPreferences", mock.Anything, int64(10)).Return(prefs, nil)
	pool.On("Enqueue", mock.Anything).Return(nil)

	svc := newService(linkRepo, collectionRepo, new(mockArtifactStore), pool)

	// Act
	err := svc.RefreshArchives(context.Background(), 200, 1, nil)

	// Assert
	assert.NoError(t, err)
}

func TestRefreshArchives_ReadOnlyMemberDenied(t *testing.T) {
	t.Parallel()

	// Arrange: право чтения есть, права обновления нет.
	link := archivedLink()

	collection := ownerCollection(100)
	collection.Members = []models.Member{{UserID: 200, CanCreate: true}}

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)
	pool := new(mockEnqueuer)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(collection, nil)

	svc := newService(linkRepo, collectionRepo, new(mockArtifactStore), pool)

	// Act
	err := svc.RefreshArchives(context.Background(), 200, 1, nil)

	// Assert
	assert.ErrorIs(t, err, &customerrors.ErrAccessDenied{})
	pool.AssertNotCalled(t, "Enqueue", mock.Anything)
}

func TestRefreshArchives_NoteRejected(t *testing.T) {
	t.Parallel()

	// Arrange: заметке без URL нечего пересоздавать.
	link := archivedLink()
	link.URL = nil

	prefs := &models.ArchivePreference{UserID: 100, ArchiveAsScreenshot: true}

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(ownerCollection(100), nil)
	collectionRepo.On("GetOwnerPreferences", mock.Anything, int64(10)).Return(prefs, nil)

	svc := newService(linkRepo, collectionRepo, new(mockArtifactStore), new(mockEnqueuer))

	// Act
	err := svc.RefreshArchives(context.Background(), 100, 1, nil)

	// Assert
	assert.ErrorIs(t, err, &customerrors.ErrLinkHasNoURL{})
}

func TestRefreshArchives_BusyPropagated(t *testing.T) {
	t.Parallel()

	// Arrange
	link := archivedLink()
	prefs := &models.ArchivePreference{UserID: 100, ArchiveAsScreenshot: true}

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)
	pool := new(mockEnqueuer)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(ownerCollection(100), nil)
	collectionRepo.On("GetOwnerPreferences", mock.Anything, int64(10)).Return(prefs, nil)
	pool.On("Enqueue", mock.Anything).Return(&customerrors.ErrLinkBusy{LinkID: 1})

	svc := newService(linkRepo, collectionRepo, new(mockArtifactStore), pool)

	// Act
	err := svc.RefreshArchives(context.Background(), 100, 1, nil)

	// Assert
	assert.ErrorIs(t, err, &customerrors.ErrLinkBusy{})
}

func TestUploadDocument_PDFEnqueuesReadableRegeneration(t *testing.T) {
	t.Parallel()

	// Arrange
	link := archivedLink()
	link.Type = models.LinkTypePDF

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)
	store := new(mockArtifactStore)
	pool := new(mockEnqueuer)

	payload := []byte("%PDF-1.7 document")

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(ownerCollection(100), nil)
	store.On("PutOriginalDocument", int64(1), "pdf", payload, testMaxUploadSize).Return("1/original.pdf", nil)

	pool.On("Enqueue", mock.MatchedBy(func(job models.Job) bool {
		return job.LinkID == 1 && job.Force &&
			len(job.Formats) == 1 && job.Formats[0] == models.FormatReadable
	})).Return(nil)

	svc := newService(linkRepo, collectionRepo, store, pool)

	// Act
	err := svc.UploadDocument(context.Background(), 100, 1, "pdf", payload)

	// Assert
	require.NoError(t, err)
	store.AssertExpectations(t)
	pool.AssertExpectations(t)
}

func TestUploadDocument_URLLinkDoesNotEnqueue(t *testing.T) {
	t.Parallel()

	// Arrange: превью для обычной ссылки, пересоздание не требуется.
	link := archivedLink()

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)
	store := new(mockArtifactStore)
	pool := new(mockEnqueuer)

	payload := []byte("png-data")

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(ownerCollection(100), nil)
	store.On("PutOriginalDocument", int64(1), "png", payload, testMaxUploadSize).Return("1/original.png", nil)

	svc := newService(linkRepo, collectionRepo, store, pool)

	// Act
	err := svc.UploadDocument(context.Background(), 100, 1, "png", payload)

	// Assert
	require.NoError(t, err)
	pool.AssertNotCalled(t, "Enqueue", mock.Anything)
}

func TestUploadDocument_ReadOnlyMemberDenied(t *testing.T) {
	t.Parallel()

	// Arrange
	link := archivedLink()

	collection := ownerCollection(100)
	collection.Members = []models.Member{{UserID: 200, CanCreate: true}}

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)
	store := new(mockArtifactStore)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(collection, nil)

	svc := newService(linkRepo, collectionRepo, store, new(mockEnqueuer))

	// Act
	err := svc.UploadDocument(context.Background(), 200, 1, "pdf", []byte("%PDF-1.7"))

	// Assert
	assert.ErrorIs(t, err, &customerrors.ErrAccessDenied{})
	store.AssertNotCalled(t, "PutOriginalDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadDocument_OversizedRejected(t *testing.T) {
	t.Parallel()

	// Arrange
	link := archivedLink()
	payload := []byte("too-large")

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)
	store := new(mockArtifactStore)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(ownerCollection(100), nil)
	store.On("PutOriginalDocument", int64(1), "png", payload, testMaxUploadSize).
		Return("", &customerrors.ErrPayloadTooLarge{Size: int64(len(payload)), MaxSize: testMaxUploadSize})

	svc := newService(linkRepo, collectionRepo, store, new(mockEnqueuer))

	// Act
	err := svc.UploadDocument(context.Background(), 100, 1, "png", payload)

	// Assert
	assert.ErrorIs(t, err, &customerrors.ErrPayloadTooLarge{})
}

func TestUploadDocument_BusyQueueTolerated(t *testing.T) {
	t.Parallel()

	// Arrange: документ сохранён, пересоздание подхватит фоновая зачистка.
	link := archivedLink()
	link.Type = models.LinkTypePDF

	payload := []byte("%PDF-1.7 document")

	linkRepo := new(mockLinkRepository)
	collectionRepo := new(mockCollectionRepository)
	store := new(mockArtifactStore)
	pool := new(mockEnqueuer)

	linkRepo.On("FindByID", mock.Anything, int64(1)).Return(link, nil)
	collectionRepo.On("FindByID", mock.Anything, int64(10)).Return(ownerCollection(100), nil)
	store.On("PutOriginalDocument", int64(1), "pdf", payload, testMaxUploadSize).Return("1/original.pdf", nil)
	pool.On("Enqueue", mock.Anything).Return(&customerrors.ErrQueueFull{})

	svc := newService(linkRepo, collectionRepo, store, pool)

	// Act
	err := svc.UploadDocument(context.Background(), 100, 1, "pdf", payload)

	// Assert
	assert.NoError(t, err)
}
