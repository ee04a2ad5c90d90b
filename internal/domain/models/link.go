package models

import (
	"strings"
	"time"
)

type LinkType string

const (
	LinkTypeURL   LinkType = "url"
	LinkTypePDF   LinkType = "pdf"
	LinkTypeImage LinkType = "image"
)

// StatusUnavailable записывается в архивное поле, когда формат пытались
// создать и все попытки исчерпаны. Отличается от NULL ("ещё не пытались").
const StatusUnavailable = "unavailable"

type Format string

const (
	FormatScreenshot Format = "screenshot"
	FormatMonolith   Format = "monolith"
	FormatPDF        Format = "pdf"
	FormatReadable   Format = "readable"
	FormatWayback    Format = "wayback"
	FormatPreview    Format = "preview"
)

// Link может не иметь URL: у заметок и загруженных документов его нет.
type Link struct {
	ID           int64
	URL          *string
	Name         string
	Description  string
	Type         LinkType
	CollectionID int64
	Tags         []string

	Image    *string
	Monolith *string
	PDF      *string
	Readable *string
	Preview  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ArchiveField возвращает указатель на архивное поле для формата.
// Для wayback поля нет: артефакт не хранится локально.
func (l *Link) ArchiveField(format Format) **string {
	switch format {
	case FormatScreenshot:
		return &l.Image
	case FormatMonolith:
		return &l.Monolith
	case FormatPDF:
		return &l.PDF
	case FormatReadable:
		return &l.Readable
	case FormatPreview:
		return &l.Preview
	default:
		return nil
	}
}

// Available сообщает, что артефакт формата существует.
func (l *Link) Available(format Format) bool {
	field := l.ArchiveField(format)
	if field == nil || *field == nil {
		return false
	}

	return **field != StatusUnavailable
}

// Settled сообщает, что попытка создания формата завершена: в поле
// либо путь, либо сентинел.
func (l *Link) Settled(format Format) bool {
	field := l.ArchiveField(format)
	if field == nil || *field == nil {
		return false
	}

	return true
}

func (l *Link) HasURL() bool {
	return l.URL != nil && strings.TrimSpace(*l.URL) != ""
}

// ArchiveFields содержит снимок всех архивных полей для атомарного обновления.
type ArchiveFields struct {
	Image    *string
	Monolith *string
	PDF      *string
	Readable *string
	Preview  *string
}

func (l *Link) SnapshotArchiveFields() ArchiveFields {
	return ArchiveFields{
		Image:    l.Image,
		Monolith: l.Monolith,
		PDF:      l.PDF,
		Readable: l.Readable,
		Preview:  l.Preview,
	}
}

func (f *ArchiveFields) Field(format Format) **string {
	switch format {
	case FormatScreenshot:
		return &f.Image
	case FormatMonolith:
		return &f.Monolith
	case FormatPDF:
		return &f.PDF
	case FormatReadable:
		return &f.Readable
	case FormatPreview:
		return &f.Preview
	default:
		return nil
	}
}

func StringPtr(s string) *string {
	return &s
}
