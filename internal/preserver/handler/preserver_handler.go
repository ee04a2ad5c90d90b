package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	customerrors "github.com/central-university-dev/go-link-preserver/internal/domain/errors"
	"github.com/central-university-dev/go-link-preserver/internal/domain/models"
	"github.com/central-university-dev/go-link-preserver/internal/preserver/service"
)

type PreserverUsecase interface {
	GetLinkStatus(ctx context.Context, userID, linkID int64) (*service.LinkStatus, error)
	GetArtifact(ctx context.Context, userID, linkID int64, format models.Format) (*service.Artifact, error)
	RefreshArchives(ctx context.Context, userID, linkID int64, formats []models.Format) error
	UploadDocument(ctx context.Context, userID, linkID int64, ext string, payload []byte) error
}

type MaintenanceUsecase interface {
	RegenerateAll(ctx context.Context) (*models.MaintenanceSummary, error)
	DeleteAll(ctx context.Context) (*models.MaintenanceSummary, error)
	DeleteAndRegenerateAll(ctx context.Context) (*models.MaintenanceSummary, error)
}

type PreserverHandler struct {
	preserver   PreserverUsecase
	maintenance MaintenanceUsecase
	adminIDs    map[int64]struct{}
	logger      *slog.Logger
}

func NewPreserverHandler(preserver PreserverUsecase, maintenance MaintenanceUsecase, adminUserIDs []int64, logger *slog.Logger) *PreserverHandler {
	adminIDs := make(map[int64]struct{}, len(adminUserIDs))
	for _, id := range adminUserIDs {
		adminIDs[id] = struct{}{}
	}

	return &PreserverHandler{
		preserver:   preserver,
		maintenance: maintenance,
		adminIDs:    adminIDs,
		logger:      logger,
	}
}

type LinkStatusResponse struct {
	ID        int64    `json:"id"`
	URL       *string  `json:"url,omitempty"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Ready     bool     `json:"ready"`
	Available []string `json:"available"`
	Missing   []string `json:"missing"`
	UpdatedAt string   `json:"updatedAt"`
}

type RefreshRequest struct {
	Formats []string `json:"formats"`
}

type MaintenanceResponse struct {
	Operation string `json:"operation"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// GetLink возвращает ссылку с вычисленной готовностью архива.
func (h *PreserverHandler) GetLink(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}

	linkID, ok := pathID(c, "id")
	if !ok {
		return
	}

	status, err := h.preserver.GetLinkStatus(c.Request.Context(), userID, linkID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toLinkStatusResponse(status))
}

func (h *PreserverHandler) GetArchive(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}

	linkID, ok := pathID(c, "linkId")
	if !ok {
		return
	}

	format := models.Format(c.Param("format"))

	artifact, err := h.preserver.GetArtifact(c.Request.Context(), userID, linkID, format)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Data(http.StatusOK, artifact.ContentType, artifact.Payload)
}

// RefreshArchive ставит форсированное пересоздание архивов в очередь.
func (h *PreserverHandler) RefreshArchive(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}

	linkID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var request RefreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"description": "Некорректное тело запроса",
				"code":        "400",
			})

			return
		}
	}

	formats := make([]models.Format, 0, len(request.Formats))
	for _, format := range request.Formats {
		formats = append(formats, models.Format(format))
	}

	if err := h.preserver.RefreshArchives(c.Request.Context(), userID, linkID, formats); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *PreserverHandler) UploadDocument(c *gin.Context) {
	userID, ok := userIDFrom(c)
	if !ok {
		return
	}

	linkID, ok := pathID(c, "id")
	if !ok {
		return
	}

	ext, ok := documentExtensions[c.ContentType()]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"description": "неподдерживаемый тип документа",
			"code":        "400",
		})

		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"description": "не удалось прочитать тело запроса",
			"code":        "400",
		})

		return
	}

	if err := h.preserver.UploadDocument(c.Request.Context(), userID, linkID, ext, payload); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "stored"})
}

var documentExtensions = map[string]string{
	"application/pdf": "pdf",
	"image/png":       "png",
	"image/jpeg":      "jpg",
}

// Regenerate добирает недостающие архивы по всем ссылкам.
func (h *PreserverHandler) Regenerate(c *gin.Context) {
	h.runMaintenance(c, h.maintenance.RegenerateAll)
}

// DeleteArchives удаляет сгенерированные архивы по всем ссылкам.
func (h *PreserverHandler) DeleteArchives(c *gin.Context) {
	h.runMaintenance(c, h.maintenance.DeleteAll)
}

// DeleteAndRegenerate удаляет архивы и ставит полное пересоздание.
func (h *PreserverHandler) DeleteAndRegenerate(c *gin.Context) {
	h.runMaintenance(c, h.maintenance.DeleteAndRegenerateAll)
}

// RequireAdmin пускает к массовым операциям только пользователей из списка администраторов.
func (h *PreserverHandler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFrom(c)
		if !ok {
			c.Abort()
			return
		}

		if _, ok := h.adminIDs[userID]; !ok {
			h.logger.Warn("Отказ в доступе к массовой операции",
				"userID", userID,
				"path", c.Request.URL.Path,
			)

			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"description": "массовые операции доступны только администраторам",
				"code":        "403",
			})

			return
		}

		c.Next()
	}
}

func (h *PreserverHandler) runMaintenance(c *gin.Context, operation func(ctx context.Context) (*models.MaintenanceSummary, error)) {
	started := time.Now()

	summary, err := operation(c.Request.Context())
	if err != nil {
		h.logger.Error("Массовая операция прервана",
			"error", err,
		)
		h.respondError(c, err)

		return
	}

	h.logger.Info("Массовая операция выполнена",
		"operation", summary.Operation,
		"took", time.Since(started).String(),
	)

	c.JSON(http.StatusOK, MaintenanceResponse{
		Operation: summary.Operation,
		Processed: summary.Processed,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
	})
}

//nolint:cyclop // Полная таблица соответствия доменных ошибок статусам.
func (h *PreserverHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, &customerrors.ErrLinkNotFound{}),
		errors.Is(err, &customerrors.ErrCollectionNotFound{}),
		errors.Is(err, &customerrors.ErrArtifactNotFound{}):
		c.JSON(http.StatusNotFound, gin.H{
			"description": err.Error(),
			"code":        "404",
		})
	case errors.Is(err, &customerrors.ErrAccessDenied{}):
		c.JSON(http.StatusForbidden, gin.H{
			"description": err.Error(),
			"code":        "403",
		})
	case errors.Is(err, &customerrors.ErrArtifactUnavailable{}):
		c.JSON(http.StatusGone, gin.H{
			"description": err.Error(),
			"code":        "410",
		})
	case errors.Is(err, &customerrors.ErrLinkBusy{}):
		c.JSON(http.StatusConflict, gin.H{
			"description": err.Error(),
			"code":        "409",
		})
	case errors.Is(err, &customerrors.ErrQueueFull{}), errors.Is(err, &customerrors.ErrQueueClosed{}):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"description": err.Error(),
			"code":        "503",
		})
	case errors.Is(err, &customerrors.ErrPayloadTooLarge{}):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"description": err.Error(),
			"code":        "413",
		})
	case errors.Is(err, &customerrors.ErrUnsupportedFormat{}),
		errors.Is(err, &customerrors.ErrLinkHasNoURL{}):
		c.JSON(http.StatusBadRequest, gin.H{
			"description": err.Error(),
			"code":        "400",
		})
	default:
		h.logger.Error("Внутренняя ошибка при обработке запроса",
			"error", err,
		)

		c.JSON(http.StatusInternalServerError, gin.H{
			"description": "внутренняя ошибка сервера",
			"code":        "500",
		})
	}
}

func userIDFrom(c *gin.Context) (int64, bool) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"description": "отсутствует заголовок X-User-ID",
			"code":        "401",
		})

		return 0, false
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"description": "некорректный заголовок X-User-ID",
			"code":        "401",
		})

		return 0, false
	}

	return userID, true
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"description": "некорректный идентификатор ссылки",
			"code":        "400",
		})

		return 0, false
	}

	return id, true
}

func toLinkStatusResponse(status *service.LinkStatus) LinkStatusResponse {
	response := LinkStatusResponse{
		ID:        status.Link.ID,
		URL:       status.Link.URL,
		Name:      status.Link.Name,
		Type:      string(status.Link.Type),
		Ready:     status.Ready,
		Available: make([]string, 0, len(status.Available)),
		Missing:   make([]string, 0, len(status.Missing)),
		UpdatedAt: status.Link.UpdatedAt.Format(time.RFC3339),
	}

	for _, format := range status.Available {
		response.Available = append(response.Available, string(format))
	}

	for _, format := range status.Missing {
		response.Missing = append(response.Missing, string(format))
	}

	return response
}
