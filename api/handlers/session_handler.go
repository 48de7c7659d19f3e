package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ytfetch/internal/app"
)

// SessionHandler exposes the running download session
type SessionHandler struct {
	downloadMgr *app.DownloadManager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(downloadMgr *app.DownloadManager) *SessionHandler {
	return &SessionHandler{downloadMgr: downloadMgr}
}

// GetSession handles GET /api/v1/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess := h.downloadMgr.Current()
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no download is running"})
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

// CancelSession handles POST /api/v1/session/cancel
func (h *SessionHandler) CancelSession(c *gin.Context) {
	if err := h.downloadMgr.Cancel(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "cancellation requested"})
}
