package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// URLReader reads a URL from somewhere outside the request
type URLReader interface {
	ReadURL() (string, bool)
}

// ClipboardHandler lets a client prefill its URL field
type ClipboardHandler struct {
	reader URLReader
}

// NewClipboardHandler creates a new clipboard handler
func NewClipboardHandler(reader URLReader) *ClipboardHandler {
	return &ClipboardHandler{reader: reader}
}

// GetClipboard handles GET /api/v1/clipboard
func (h *ClipboardHandler) GetClipboard(c *gin.Context) {
	url, ok := h.reader.ReadURL()
	c.JSON(http.StatusOK, gin.H{"url": url, "found": ok})
}
