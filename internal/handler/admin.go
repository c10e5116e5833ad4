package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spamguard/internal/repository"
	"spamguard/internal/service"
)

// AdminHandler serves the admin-only model lifecycle API.
type AdminHandler struct {
	training *service.TrainingService
	stats    repository.StatsRepository
	logger   *zap.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(training *service.TrainingService, stats repository.StatsRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{training: training, stats: stats, logger: logger}
}

// Retrain queues a retraining job and returns its id immediately.
// POST /api/admin/models/retrain
func (h *AdminHandler) Retrain(c *gin.Context) {
	var req struct {
		ModelName string `json:"model_name" binding:"required"`
		DatasetID string `json:"dataset_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.training.StartRetrain(c.Request.Context(), req.ModelName, req.DatasetID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// GetJob returns one retraining job.
// GET /api/admin/jobs/:id
func (h *AdminHandler) GetJob(c *gin.Context) {
	job, err := h.training.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobs returns recent retraining jobs.
// GET /api/admin/jobs?limit=
func (h *AdminHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	jobs, err := h.training.ListJobs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// CancelJob marks a live job for cancellation.
// POST /api/admin/jobs/:id/cancel
func (h *AdminHandler) CancelJob(c *gin.Context) {
	if err := h.training.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cancellation requested"})
}

// GetStats returns system-wide aggregates.
// GET /api/admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.SystemStats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
