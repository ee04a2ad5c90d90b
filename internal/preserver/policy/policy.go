// Package policy определяет, какие форматы архива требуются ссылке, и
// вычисляет её готовность.
package policy

import (
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
)

// Таблица "формат -> предикат над настройками владельца".
var formatPredicates = map[models.Format]func(p *models.ArchivePreference) bool{
	models.FormatScreenshot: func(p *models.ArchivePreference) bool { return p.ArchiveAsScreenshot },
	models.FormatMonolith:   func(p *models.ArchivePreference) bool { return p.ArchiveAsMonolith },
	models.FormatPDF:        func(p *models.ArchivePreference) bool { return p.ArchiveAsPDF },
	models.FormatReadable:   func(p *models.ArchivePreference) bool { return p.ArchiveAsReadable },
	models.FormatWayback:    func(p *models.ArchivePreference) bool { return p.ArchiveAsWaybackMachine },
}

// orderedFormats фиксирует порядок обхода: map в Go не упорядочен.
var orderedFormats = []models.Format{
	models.FormatScreenshot,
	models.FormatMonolith,
	models.FormatPDF,
	models.FormatReadable,
	models.FormatWayback,
}

// RequiredFormats возвращает форматы, которые должны существовать, чтобы
// ссылка считалась готовой. У ссылки без URL требований нет, кроме
// readable для загруженных PDF-документов.
func RequiredFormats(link *models.Link, prefs *models.ArchivePreference) []models.Format {
	if prefs == nil {
		return nil
	}

	if !link.HasURL() {
		if link.Type == models.LinkTypePDF && prefs.ArchiveAsReadable {
			return []models.Format{models.FormatReadable}
		}

		return nil
	}

	var required []models.Format

	for _, format := range orderedFormats {
		if formatPredicates[format](prefs) {
			required = append(required, format)
		}
	}

	return required
}

// IsReady проверяет, что все требуемые форматы, кроме wayback,
// присутствуют на ссылке. Wayback не хранится локально и в готовность
// не входит. Сентинел "unavailable" готовности не даёт.
func IsReady(link *models.Link, prefs *models.ArchivePreference) bool {
	for _, format := range RequiredFormats(link, prefs) {
		if format == models.FormatWayback {
			continue
		}

		if !link.Available(format) {
			return false
		}
	}

	return true
}

// MissingFormats возвращает требуемые локальные форматы, которых ещё нет.
func MissingFormats(link *models.Link, prefs *models.ArchivePreference) []models.Format {
	var missing []models.Format

	for _, format := range RequiredFormats(link, prefs) {
		if format == models.FormatWayback {
			continue
		}

		if !link.Available(format) {
			missing = append(missing, format)
		}
	}

	return missing
}

// AllMissingSettled сообщает, что все недостающие форматы уже помечены
// как недоступные.
func AllMissingSettled(link *models.Link, prefs *models.ArchivePreference) bool {
	missing := MissingFormats(link, prefs)
	if len(missing) == 0 {
		return true
	}

	for _, format := range missing {
		if !link.Settled(format) {
			return false
		}
	}

	return true
}

// AvailableFormats возвращает форматы, артефакты которых существуют.
func AvailableFormats(link *models.Link) []models.Format {
	all := []models.Format{
		models.FormatScreenshot,
		models.FormatMonolith,
		models.FormatPDF,
		models.FormatReadable,
		models.FormatPreview,
	}

	var available []models.Format

	for _, format := range all {
		if link.Available(format) {
			available = append(available, format)
		}
	}

	return available
}
