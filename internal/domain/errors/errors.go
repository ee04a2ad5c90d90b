package errors

import (
	"fmt"
)

type ErrLinkNotFound struct {
	LinkID int64
}

func (e *ErrLinkNotFound) Error() string {
	return fmt.Sprintf("ссылка не найдена: %d", e.LinkID)
}

func (e *ErrLinkNotFound) Is(target error) bool {
	_, ok := target.(*ErrLinkNotFound)
	return ok
}

type ErrCollectionNotFound struct {
	CollectionID int64
}

func (e *ErrCollectionNotFound) Error() string {
	return fmt.Sprintf("коллекция не найдена: %d", e.CollectionID)
}

func (e *ErrCollectionNotFound) Is(target error) bool {
	_, ok := target.(*ErrCollectionNotFound)
	return ok
}

type ErrPreferencesNotFound struct {
	UserID int64
}

func (e *ErrPreferencesNotFound) Error() string {
	return fmt.Sprintf("настройки архивации пользователя не найдены: %d", e.UserID)
}

type ErrArtifactNotFound struct {
	LinkID int64
	Format string
}

func (e *ErrArtifactNotFound) Error() string {
	return fmt.Sprintf("артефакт формата %s для ссылки %d не найден", e.Format, e.LinkID)
}

func (e *ErrArtifactNotFound) Is(target error) bool {
	_, ok := target.(*ErrArtifactNotFound)
	return ok
}

// ErrArtifactUnavailable возникает, когда попытки создать формат исчерпаны.
type ErrArtifactUnavailable struct {
	LinkID int64
	Format string
}

func (e *ErrArtifactUnavailable) Error() string {
	return fmt.Sprintf("артефакт формата %s для ссылки %d помечен как недоступный", e.Format, e.LinkID)
}

func (e *ErrArtifactUnavailable) Is(target error) bool {
	_, ok := target.(*ErrArtifactUnavailable)
	return ok
}

// ErrLinkBusy возникает, когда для ссылки уже выполняется задание сохранения.
type ErrLinkBusy struct {
	LinkID int64
}

func (e *ErrLinkBusy) Error() string {
	return fmt.Sprintf("сохранение ссылки %d уже выполняется", e.LinkID)
}

func (e *ErrLinkBusy) Is(target error) bool {
	_, ok := target.(*ErrLinkBusy)
	return ok
}

type ErrQueueFull struct{}

func (e *ErrQueueFull) Error() string {
	return "очередь заданий сохранения переполнена"
}

func (e *ErrQueueFull) Is(target error) bool {
	_, ok := target.(*ErrQueueFull)
	return ok
}

type ErrQueueClosed struct{}

func (e *ErrQueueClosed) Error() string {
	return "очередь заданий сохранения остановлена"
}

func (e *ErrQueueClosed) Is(target error) bool {
	_, ok := target.(*ErrQueueClosed)
	return ok
}

type ErrAccessDenied struct {
	UserID int64
	LinkID int64
}

func (e *ErrAccessDenied) Error() string {
	return fmt.Sprintf("у пользователя %d нет доступа к ссылке %d", e.UserID, e.LinkID)
}

func (e *ErrAccessDenied) Is(target error) bool {
	_, ok := target.(*ErrAccessDenied)
	return ok
}

type ErrLinkHasNoURL struct {
	LinkID int64
}

func (e *ErrLinkHasNoURL) Error() string {
	return fmt.Sprintf("у ссылки %d нет URL для сохранения", e.LinkID)
}

func (e *ErrLinkHasNoURL) Is(target error) bool {
	_, ok := target.(*ErrLinkHasNoURL)
	return ok
}

type ErrPayloadTooLarge struct {
	Size    int64
	MaxSize int64
}

func (e *ErrPayloadTooLarge) Error() string {
	return fmt.Sprintf("размер данных %d превышает допустимый максимум %d", e.Size, e.MaxSize)
}

func (e *ErrPayloadTooLarge) Is(target error) bool {
	_, ok := target.(*ErrPayloadTooLarge)
	return ok
}

type ErrEmptyPayload struct {
	Format string
}

func (e *ErrEmptyPayload) Error() string {
	return "получен пустой артефакт формата " + e.Format
}

func (e *ErrEmptyPayload) Is(target error) bool {
	_, ok := target.(*ErrEmptyPayload)
	return ok
}

type ErrUnsupportedFormat struct {
	Format string
}

func (e *ErrUnsupportedFormat) Error() string {
	return "неподдерживаемый формат архива: " + e.Format
}

func (e *ErrUnsupportedFormat) Is(target error) bool {
	_, ok := target.(*ErrUnsupportedFormat)
	return ok
}

type ErrInvalidArgument struct {
	Message string
}

func (e *ErrInvalidArgument) Error() string {
	return fmt.Sprintf("некорректный аргумент: %s", e.Message)
}

type ErrInternalServer struct {
	Message string
}

func (e *ErrInternalServer) Error() string {
	return "внутренняя ошибка сервера: " + e.Message
}

type ErrUnknownDBAccessType struct {
	AccessType string
}

func (e *ErrUnknownDBAccessType) Error() string {
	return fmt.Sprintf("неизвестный тип доступа к базе данных: %s", e.AccessType)
}

type ErrUnknownNotifierTransport struct {
	Transport string
}

func (e *ErrUnknownNotifierTransport) Error() string {
	return fmt.Sprintf("неизвестный транспорт уведомлений: %s", e.Transport)
}

type ErrBuildSQLQuery struct {
	Operation string
	Cause     error
}

func (e *ErrBuildSQLQuery) Error() string {
	return fmt.Sprintf("ошибка при построении SQL запроса для %s: %v", e.Operation, e.Cause)
}

func (e *ErrBuildSQLQuery) Unwrap() error {
	return e.Cause
}

type ErrSQLExecution struct {
	Operation string
	Cause     error
}

func (e *ErrSQLExecution) Error() string {
	return fmt.Sprintf("ошибка при выполнении SQL запроса для %s: %v", e.Operation, e.Cause)
}

func (e *ErrSQLExecution) Unwrap() error {
	return e.Cause
}

type ErrSQLScan struct {
	Entity string
	Cause  error
}

func (e *ErrSQLScan) Error() string {
	return fmt.Sprintf("ошибка при сканировании %s: %v", e.Entity, e.Cause)
}

func (e *ErrSQLScan) Unwrap() error {
	return e.Cause
}

type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.StatusCode)
}
