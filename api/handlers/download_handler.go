package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ytfetch/internal/app"
	"github.com/yourusername/ytfetch/internal/domain"
	"go.uber.org/zap"
)

const maxListLimit = 500

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	downloadMgr    *app.DownloadManager
	cookiesDefault bool
	logger         *zap.Logger
}

// NewDownloadHandler creates a new download handler. cookiesDefault is
// used when a request does not say whether to use browser cookies.
func NewDownloadHandler(downloadMgr *app.DownloadManager, cookiesDefault bool, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		downloadMgr:    downloadMgr,
		cookiesDefault: cookiesDefault,
		logger:         logger,
	}
}

// CreateDownloadRequest is the body of POST /api/v1/downloads
type CreateDownloadRequest struct {
	URL           string `json:"url" binding:"required"`
	Quality       string `json:"quality,omitempty"`
	AudioOnly     bool   `json:"audio_only,omitempty"`
	AllowPlaylist bool   `json:"allow_playlist,omitempty"`
	UseCookies    *bool  `json:"use_cookies,omitempty"`
	CookieBrowser string `json:"cookie_browser,omitempty"`
	OutputDir     string `json:"output_dir,omitempty"`
}

func (r CreateDownloadRequest) toDomain(cookiesDefault bool) domain.DownloadRequest {
	useCookies := cookiesDefault
	if r.UseCookies != nil {
		useCookies = *r.UseCookies
	}
	return domain.DownloadRequest{
		RawURL:        r.URL,
		Quality:       domain.Quality(r.Quality),
		AudioOnly:     r.AudioOnly,
		AllowPlaylist: r.AllowPlaylist,
		UseCookies:    useCookies,
		CookieBrowser: r.CookieBrowser,
		OutputDir:     r.OutputDir,
	}
}

// CreateDownload handles POST /api/v1/downloads
func (h *DownloadHandler) CreateDownload(c *gin.Context) {
	var req CreateDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The session outlives this request; it ends on cancel or shutdown.
	sess, err := h.downloadMgr.Start(context.WithoutCancel(c.Request.Context()), req.toDomain(h.cookiesDefault))
	if err != nil {
		h.logger.Warn("Failed to start download", zap.String("url", req.URL), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, sess.Snapshot())
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	download, err := h.downloadMgr.GetDownload(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, download)
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	filter := domain.DownloadFilter{
		Status:  domain.DownloadStatus(c.Query("status")),
		VideoID: c.Query("video_id"),
		Limit:   100,
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = min(limit, maxListLimit)
	}

	downloads, err := h.downloadMgr.ListDownloads(filter)
	if err != nil {
		h.logger.Error("Failed to list downloads", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     len(downloads),
		"downloads": downloads,
	})
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.downloadMgr.Stats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CancelDownload handles POST /api/v1/downloads/:id/cancel
func (h *DownloadHandler) CancelDownload(c *gin.Context) {
	id := c.Param("id")

	if err := h.downloadMgr.CancelDownload(id); err != nil {
		h.logger.Warn("Failed to cancel download", zap.String("id", id), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "cancellation requested"})
}

// RetryDownload handles POST /api/v1/downloads/:id/retry
func (h *DownloadHandler) RetryDownload(c *gin.Context) {
	id := c.Param("id")

	sess, err := h.downloadMgr.RetryDownload(context.WithoutCancel(c.Request.Context()), id)
	if err != nil {
		h.logger.Warn("Failed to retry download", zap.String("id", id), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, sess.Snapshot())
}

// DeleteDownload handles DELETE /api/v1/downloads/:id
func (h *DownloadHandler) DeleteDownload(c *gin.Context) {
	id := c.Param("id")

	if err := h.downloadMgr.DeleteDownload(id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "download deleted"})
}
