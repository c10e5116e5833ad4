package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spamguard/internal/middleware"
	"spamguard/internal/models"
	"spamguard/internal/service"
)

// PredictionHandler serves the prediction-facing API.
type PredictionHandler struct {
	predictions *service.PredictionService
	logger      *zap.Logger
}

// NewPredictionHandler creates a new prediction handler.
func NewPredictionHandler(predictions *service.PredictionService, logger *zap.Logger) *PredictionHandler {
	return &PredictionHandler{predictions: predictions, logger: logger}
}

// Predict classifies a text.
// POST /api/predictions
func (h *PredictionHandler) Predict(c *gin.Context) {
	var req struct {
		Text         string `json:"text" binding:"required"`
		ModelVersion string `json:"model_version"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := middleware.Identity(c)
	result, err := h.predictions.Predict(c.Request.Context(), &models.PredictionRequest{
		Text:         req.Text,
		ModelVersion: req.ModelVersion,
		AccountID:    identity.AccountID,
		Tier:         identity.Tier,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"label":         result.Label,
		"confidence":    result.Confidence,
		"explanation":   result.Explanation,
		"model_version": result.ModelVersion,
	})
}

// History returns the caller's persisted predictions.
// GET /api/predictions/history?limit=&offset=
func (h *PredictionHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	identity := middleware.Identity(c)
	history, err := h.predictions.History(c.Request.Context(), identity.AccountID, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"count":   len(history),
	})
}

// ListModels returns registered model versions, filtered by ?name= when given.
// GET /api/models?name=
func (h *PredictionHandler) ListModels(c *gin.Context) {
	versions, err := h.predictions.ListModels(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"models": versions,
		"count":  len(versions),
	})
}
