package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/central-university-dev/go-link-preserver/internal/common/middleware"
)

func NewRouter(
	preserverHandler *PreserverHandler,
	rateLimiter *middleware.RateLimiterMiddleware,
	metricsMiddleware *middleware.MetricsMiddleware,
) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(metricsMiddleware.Middleware())
	router.Use(rateLimiter.Middleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	v1.GET("/links/:id", preserverHandler.GetLink)
	v1.PUT("/links/:id/archive", preserverHandler.RefreshArchive)
	v1.POST("/links/:id/document", preserverHandler.UploadDocument)
	v1.GET("/archives/:linkId/:format", preserverHandler.GetArchive)

	maintenance := v1.Group("/admin/maintenance")
	maintenance.Use(preserverHandler.RequireAdmin())
	maintenance.POST("/regenerate", preserverHandler.Regenerate)
	maintenance.POST("/delete", preserverHandler.DeleteArchives)
	maintenance.POST("/delete-regenerate", preserverHandler.DeleteAndRegenerate)

	return router
}
