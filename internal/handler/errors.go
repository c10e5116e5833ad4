package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spamguard/internal/apperrors"
)

// respondError maps domain errors to HTTP responses. Caller faults are
// surfaced with detail; server-side conditions are logged with full context
// and surfaced as a generic error so internals never leak.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	if retryAfter, ok := apperrors.IsRateLimited(err); ok {
		seconds := int(retryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "Rate limit exceeded",
			"retry_after": seconds,
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrJobConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "A retraining job is already in progress for this model"})
	case errors.Is(err, apperrors.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
	case errors.Is(err, apperrors.ErrDatasetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Dataset not found"})
	case errors.Is(err, apperrors.ErrModelNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Model not found"})
	default:
		logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
