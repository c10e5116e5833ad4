package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"spamguard/internal/config"
	"spamguard/internal/handler"
	"spamguard/internal/notifier"
	"spamguard/internal/quota"
	"spamguard/internal/repository"
	"spamguard/internal/server"
	"spamguard/internal/service"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Load configuration
	cfgPath := "configs/config.yml"
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Initialize repositories
	registry := repository.NewModelRegistry(db, logger)
	predictionRepo := repository.NewPredictionRepository(db, logger)
	datasetRepo := repository.NewDatasetRepository(db)
	jobRepo := repository.NewJobRepository(db, logger)
	statsRepo := repository.NewStatsRepository(db)

	// Quota ledger: shared Redis counters when configured, process-local otherwise
	limits := quota.Limits(cfg.Quota.TierLimits)
	var ledger quota.Ledger
	if cfg.Redis.Enabled {
		redisLedger, err := quota.NewRedisLedger(cfg.Redis.Addr, limits, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisLedger.Close()
		ledger = redisLedger
		logger.Info("Quota ledger backed by Redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		ledger = quota.NewMemoryLedger(limits)
		logger.Warn("Quota ledger running in-process; limits are per instance")
	}

	// Webhook notifier for prediction.created events
	var events notifier.Notifier = notifier.NopNotifier{}
	if cfg.Webhook.Enabled {
		events = notifier.NewWebhookNotifier(cfg.Webhook.URL, logger)
		logger.Info("Webhook notifier enabled", zap.String("url", cfg.Webhook.URL))
	}

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Core services
	predictionService := service.NewPredictionService(
		ledger, registry, predictionRepo, events,
		cfg.Prediction.DefaultModel, cfg.PredictionTimeout(), logger)
	trainingService := service.NewTrainingService(
		ctx, jobRepo, datasetRepo, registry,
		cfg.Training.ArtifactsDir, cfg.Training.F1Tolerance,
		time.Duration(cfg.Training.HeartbeatSeconds)*time.Second, logger)

	// Sweep jobs orphaned by a previous crash, then keep sweeping
	if _, err := jobRepo.MarkStaleRunning(ctx, time.Now().Add(-cfg.StaleJobTimeout())); err != nil {
		logger.Error("Failed to sweep stale jobs on startup", zap.Error(err))
	}
	go trainingService.RunJanitor(ctx, time.Minute, cfg.StaleJobTimeout())

	// Initialize and run the server
	predictionHandler := handler.NewPredictionHandler(predictionService, logger)
	adminHandler := handler.NewAdminHandler(trainingService, statsRepo, logger)
	srv := server.NewServer([]byte(cfg.Auth.JWTSecret), predictionHandler, adminHandler, logger)
	srv.Run(cfg.Server.Port)

	<-ctx.Done()
	trainingService.Wait()
	logger.Info("Application stopped.")
}
