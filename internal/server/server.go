package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spamguard/internal/handler"
	"spamguard/internal/middleware"
)

type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

// NewServer builds the HTTP surface around the already-wired handlers.
func NewServer(
	jwtSecret []byte,
	predictionHandler *handler.PredictionHandler,
	adminHandler *handler.AdminHandler,
	logger *zap.Logger,
) *Server {
	router := gin.Default()

	s := &Server{
		router: router,
		logger: logger,
	}

	// Ping route for health check
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Authenticated routes
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(jwtSecret, logger))
	{
		api.POST("/predictions", predictionHandler.Predict)
		api.GET("/predictions/history", predictionHandler.History)
		api.GET("/models", predictionHandler.ListModels)
	}

	// Admin-only routes
	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/models/retrain", adminHandler.Retrain)
		admin.GET("/jobs", adminHandler.ListJobs)
		admin.GET("/jobs/:id", adminHandler.GetJob)
		admin.POST("/jobs/:id/cancel", adminHandler.CancelJob)
		admin.GET("/stats", adminHandler.GetStats)
	}

	return s
}

func (s *Server) Run(addr string) {
	s.logger.Info("Server starting", zap.String("addr", addr))
	if err := s.router.Run(addr); err != nil {
		s.logger.Fatal("Server failed to start", zap.Error(err))
	}
}
