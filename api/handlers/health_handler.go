package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ytfetch/internal/app"
)

// YTDLPChecker verifies yt-dlp is installed
type YTDLPChecker interface {
	CheckYTDLP() error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	downloadMgr *app.DownloadManager
	tools       YTDLPChecker
	version     string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(downloadMgr *app.DownloadManager, tools YTDLPChecker, version string) *HealthHandler {
	return &HealthHandler{
		downloadMgr: downloadMgr,
		tools:       tools,
		version:     version,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Download struct {
		Active bool   `json:"active"`
		ID     string `json:"id,omitempty"`
	} `json:"download"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: h.version,
	}
	if sess := h.downloadMgr.Current(); sess != nil {
		response.Download.Active = true
		response.Download.ID = sess.ID()
	}

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.tools != nil {
		if err := h.tools.CheckYTDLP(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
