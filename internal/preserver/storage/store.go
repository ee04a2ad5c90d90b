// Package storage хранит артефакты архивации на файловой системе.
// Ключ детерминирован: archives/<linkID>/<format>.<ext>, поэтому путь
// можно построить без обращения к базе.
package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

const dirPermissions = 0o755

type FileStore struct {
	rootDir string
	maxSize int64
	logger  *slog.Logger
}

func NewFileStore(rootDir string, maxSize int64, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(rootDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("ошибка при создании корневого каталога хранилища: %w", err)
	}

	return &FileStore{
		rootDir: rootDir,
		maxSize: maxSize,
		logger:  logger,
	}, nil
}

// Key возвращает относительный путь артефакта. Расширение изображения
// зависит от фактической кодировки (png или jpeg), поэтому передаётся
// явно.
func (s *FileStore) Key(linkID int64, format models.Format, ext string) string {
	return filepath.Join(fmt.Sprintf("%d", linkID), string(format)+"."+ext)
}

// Put записывает артефакт атомарно: временный файл рядом с целевым,
// затем rename. Читатель видит либо прежний артефакт, либо новый
// целиком.
func (s *FileStore) Put(linkID int64, format models.Format, ext string, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", &customerrors.ErrEmptyPayload{Format: string(format)}
	}

	if s.maxSize > 0 && int64(len(payload)) > s.maxSize {
		return "", &customerrors.ErrPayloadTooLarge{Size: int64(len(payload)), MaxSize: s.maxSize}
	}

	key := s.Key(linkID, format, ext)
	fullPath := filepath.Join(s.rootDir, key)

	if err := os.MkdirAll(filepath.Dir(fullPath), dirPermissions); err != nil {
		return "", fmt.Errorf("ошибка при создании каталога артефактов: %w", err)
	}

	tmpPath := fullPath + ".tmp." + uuid.New().String()

	if err := os.WriteFile(tmpPath, payload, 0o644); err != nil {
		return "", fmt.Errorf("ошибка при записи временного файла артефакта: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка при переименовании артефакта: %w", err)
	}

	// Прежний артефакт того же формата мог иметь другое расширение.
	s.removeStaleVariants(linkID, format, ext)

	s.logger.Debug("Артефакт сохранён",
		"linkID", linkID,
		"format", format,
		"path", key,
		"size", len(payload),
	)

	return key, nil
}

func (s *FileStore) removeStaleVariants(linkID int64, format models.Format, keepExt string) {
	pattern := filepath.Join(s.rootDir, fmt.Sprintf("%d", linkID), string(format)+".*")

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}

	keep := filepath.Join(s.rootDir, s.Key(linkID, format, keepExt))

	for _, match := range matches {
		if match != keep {
			_ = os.Remove(match)
		}
	}
}

// Get возвращает содержимое артефакта по ключу.
func (s *FileStore) Get(linkID int64, format models.Format, ext string) ([]byte, error) {
	fullPath := filepath.Join(s.rootDir, s.Key(linkID, format, ext))

	payload, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &customerrors.ErrArtifactNotFound{LinkID: linkID, Format: string(format)}
		}

		return nil, fmt.Errorf("ошибка при чтении артефакта: %w", err)
	}

	return payload, nil
}

// GetByPath возвращает артефакт по относительному пути из архивного поля
// ссылки.
func (s *FileStore) GetByPath(path string) ([]byte, error) {
	cleaned := filepath.Clean(path)
	if filepath.IsAbs(cleaned) || cleaned == ".." || len(cleaned) >= 3 && cleaned[:3] == ".."+string(filepath.Separator) {
		return nil, &customerrors.ErrInvalidArgument{Message: "путь артефакта выходит за пределы хранилища: " + path}
	}

	payload, err := os.ReadFile(filepath.Join(s.rootDir, cleaned))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &customerrors.ErrArtifactNotFound{Format: path}
		}

		return nil, fmt.Errorf("ошибка при чтении артефакта: %w", err)
	}

	return payload, nil
}

const originalDocumentName = "original"

// PutOriginalDocument сохраняет загруженный пользователем документ.
// Порог размера у пользовательских загрузок свой, меньше артефактного.
func (s *FileStore) PutOriginalDocument(linkID int64, ext string, payload []byte, maxUploadSize int64) (string, error) {
	if maxUploadSize > 0 && int64(len(payload)) > maxUploadSize {
		return "", &customerrors.ErrPayloadTooLarge{Size: int64(len(payload)), MaxSize: maxUploadSize}
	}

	key := filepath.Join(fmt.Sprintf("%d", linkID), originalDocumentName+"."+ext)
	fullPath := filepath.Join(s.rootDir, key)

	if err := os.MkdirAll(filepath.Dir(fullPath), dirPermissions); err != nil {
		return "", fmt.Errorf("ошибка при создании каталога документов: %w", err)
	}

	tmpPath := fullPath + ".tmp." + uuid.New().String()

	if err := os.WriteFile(tmpPath, payload, 0o644); err != nil {
		return "", fmt.Errorf("ошибка при записи документа: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("ошибка при переименовании документа: %w", err)
	}

	return key, nil
}

// ReadOriginalDocument возвращает исходный документ ссылки независимо от
// расширения.
func (s *FileStore) ReadOriginalDocument(linkID int64) ([]byte, error) {
	pattern := filepath.Join(s.rootDir, fmt.Sprintf("%d", linkID), originalDocumentName+".*")

	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return nil, &customerrors.ErrArtifactNotFound{LinkID: linkID, Format: originalDocumentName}
	}

	payload, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении исходного документа: %w", err)
	}

	return payload, nil
}

// Delete удаляет все варианты артефакта формата независимо от расширения.
func (s *FileStore) Delete(linkID int64, format models.Format) error {
	pattern := filepath.Join(s.rootDir, fmt.Sprintf("%d", linkID), string(format)+".*")

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("ошибка при поиске артефактов формата %s: %w", format, err)
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("ошибка при удалении артефакта %s: %w", match, err)
		}
	}

	return nil
}

// DeleteArtifacts удаляет все архивные артефакты ссылки, не трогая
// исходный загруженный документ.
func (s *FileStore) DeleteArtifacts(linkID int64) error {
	formats := []models.Format{
		models.FormatScreenshot,
		models.FormatMonolith,
		models.FormatPDF,
		models.FormatReadable,
		models.FormatPreview,
	}

	for _, format := range formats {
		if err := s.Delete(linkID, format); err != nil {
			return err
		}
	}

	return nil
}

// DeleteAll удаляет каталог ссылки целиком, включая исходный документ.
// Используется, когда удалена сама ссылка.
func (s *FileStore) DeleteAll(linkID int64) error {
	dir := filepath.Join(s.rootDir, fmt.Sprintf("%d", linkID))

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("ошибка при удалении артефактов ссылки %d: %w", linkID, err)
	}

	return nil
}
