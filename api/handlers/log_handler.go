package handlers

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ytfetch/pkg/logger"
)

const (
	defaultLogLimit = 200
	maxLogLimit     = 5000
)

// LogHandler serves the yt-dlp transcript files
type LogHandler struct {
	reader *logger.TranscriptReader
}

// NewLogHandler creates a new log handler
func NewLogHandler(logsDir string) *LogHandler {
	return &LogHandler{reader: logger.NewTranscriptReader(logsDir)}
}

// GetLogs handles GET /api/v1/logs. With q set only matching lines are
// returned.
func (h *LogHandler) GetLogs(c *gin.Context) {
	date, ok := parseDate(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLogLimit)))
	if err != nil || limit < 0 {
		limit = defaultLogLimit
	}
	limit = min(limit, maxLogLimit)

	var lines []string
	if query := c.Query("q"); query != "" {
		lines, err = h.reader.Search(date, query, limit)
	} else {
		lines, err = h.reader.Tail(date, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":  date.Format("2006-01-02"),
		"size":  h.reader.Size(date),
		"count": len(lines),
		"lines": lines,
	})
}

// ExportLogs handles GET /api/v1/logs/export
func (h *LogHandler) ExportLogs(c *gin.Context) {
	date, ok := parseDate(c)
	if !ok {
		return
	}

	path := h.reader.Path(date)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no log for " + date.Format("2006-01-02")})
		return
	}

	c.FileAttachment(path, "download-"+date.Format("20060102")+".log")
}

func parseDate(c *gin.Context) (time.Time, bool) {
	dateStr := c.Query("date")
	if dateStr == "" {
		return time.Now(), true
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format, use YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}
