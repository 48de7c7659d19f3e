package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ytfetch/internal/domain"
)

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case domain.IsUserError(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDownloadInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrToolMissing):
		return http.StatusFailedDependency
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
