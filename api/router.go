package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/ytfetch/api/handlers"
	"github.com/yourusername/ytfetch/api/middleware"
	"github.com/yourusername/ytfetch/internal/app"
	"github.com/yourusername/ytfetch/internal/domain"
	"go.uber.org/zap"
)

// RouterDeps is everything the HTTP surface needs
type RouterDeps struct {
	DownloadMgr *app.DownloadManager
	Events      *app.EventBus
	Clipboard   handlers.URLReader
	Tools       handlers.YTDLPChecker
	Config      *domain.Config
	Logger      *zap.Logger
	Version     string
}

// SetupRouter sets up the HTTP router
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger, "/health", "/ready"))
	router.Use(middleware.Recovery(deps.Logger))

	healthHandler := handlers.NewHealthHandler(deps.DownloadMgr, deps.Tools, deps.Version)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		downloadHandler := handlers.NewDownloadHandler(deps.DownloadMgr, deps.Config.Cookies.Enabled, deps.Logger)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.CreateDownload)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.GET("/:id", downloadHandler.GetDownload)
			downloads.POST("/:id/cancel", downloadHandler.CancelDownload)
			downloads.POST("/:id/retry", downloadHandler.RetryDownload)
			downloads.DELETE("/:id", downloadHandler.DeleteDownload)
		}

		sessionHandler := handlers.NewSessionHandler(deps.DownloadMgr)
		v1.GET("/session", sessionHandler.GetSession)
		v1.POST("/session/cancel", sessionHandler.CancelSession)

		if deps.Events != nil {
			eventHandler := handlers.NewEventWebSocketHandler(deps.Events, deps.DownloadMgr, deps.Logger)
			v1.GET("/events", eventHandler.HandleWebSocket)
		}

		if deps.Clipboard != nil {
			clipboardHandler := handlers.NewClipboardHandler(deps.Clipboard)
			v1.GET("/clipboard", clipboardHandler.GetClipboard)
		}

		logHandler := handlers.NewLogHandler(deps.Config.Download.LogsDir)
		v1.GET("/logs", logHandler.GetLogs)
		v1.GET("/logs/export", logHandler.ExportLogs)
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "hint": "the API lives under /api/v1"})
	})

	return router
}
