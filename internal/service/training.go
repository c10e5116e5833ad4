package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"spamguard/internal/classifier"
	"spamguard/internal/models"
	"spamguard/internal/repository"
)

// TrainingService drives the retraining job state machine:
// queued -> running -> evaluating -> {promoted | rejected | failed}.
// Training runs out of band; the caller only ever waits for the job row.
type TrainingService struct {
	jobs         repository.JobRepository
	datasets     repository.DatasetRepository
	registry     repository.ModelRegistry
	artifactsDir string
	f1Tolerance  float64
	heartbeat    time.Duration
	logger       *zap.Logger

	runCtx context.Context
	wg     sync.WaitGroup
}

// NewTrainingService wires the retraining controller. runCtx bounds the
// lifetime of background training goroutines (process shutdown cancels them).
func NewTrainingService(
	runCtx context.Context,
	jobs repository.JobRepository,
	datasets repository.DatasetRepository,
	registry repository.ModelRegistry,
	artifactsDir string,
	f1Tolerance float64,
	heartbeat time.Duration,
	logger *zap.Logger,
) *TrainingService {
	return &TrainingService{
		jobs:         jobs,
		datasets:     datasets,
		registry:     registry,
		artifactsDir: artifactsDir,
		f1Tolerance:  f1Tolerance,
		heartbeat:    heartbeat,
		logger:       logger,
		runCtx:       runCtx,
	}
}

// StartRetrain accepts a retraining request and returns the queued job
// immediately. At most one live job per target model name: a second request
// fails with ErrJobConflict. A dataset that exists but is not processed
// produces a job that fails before ever reaching running.
func (s *TrainingService) StartRetrain(ctx context.Context, targetModelName, datasetID string) (*models.RetrainingJob, error) {
	dataset, err := s.datasets.GetByID(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	job := &models.RetrainingJob{
		DatasetID:       dataset.ID,
		TargetModelName: targetModelName,
		Config:          fmt.Sprintf(`{"f1_tolerance":%g}`, s.f1Tolerance),
	}
	if err := s.jobs.Acquire(ctx, job); err != nil {
		return nil, err
	}

	if dataset.Status != models.DatasetProcessed {
		reason := fmt.Sprintf("dataset %s is %s, not processed", dataset.ID, dataset.Status)
		s.failJob(ctx, job.ID, reason)
		job.Status = models.JobFailed
		job.Logs = reason
		return job, nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJob(job.ID, dataset)
	}()

	s.logger.Info("Retraining job queued",
		zap.String("job_id", job.ID),
		zap.String("model", targetModelName),
		zap.String("dataset_id", datasetID))
	return job, nil
}

// Cancel marks a live job for cancellation; the runner observes the flag at
// its next checkpoint and finishes failed. Terminal jobs cannot be cancelled.
func (s *TrainingService) Cancel(ctx context.Context, jobID string) error {
	return s.jobs.RequestCancel(ctx, jobID)
}

// GetJob returns the persisted job state.
func (s *TrainingService) GetJob(ctx context.Context, jobID string) (*models.RetrainingJob, error) {
	return s.jobs.GetByID(ctx, jobID)
}

// ListJobs returns recent jobs, newest first.
func (s *TrainingService) ListJobs(ctx context.Context, limit int) ([]*models.RetrainingJob, error) {
	return s.jobs.List(ctx, limit)
}

// Wait blocks until all background training goroutines have finished.
func (s *TrainingService) Wait() {
	s.wg.Wait()
}

// RunJanitor periodically fails running jobs whose heartbeat went stale, so a
// crashed worker never leaves a job stuck in running.
func (s *TrainingService) RunJanitor(ctx context.Context, interval, staleAfter time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Training janitor stopped.")
			return
		case <-ticker.C:
			if _, err := s.jobs.MarkStaleRunning(ctx, time.Now().Add(-staleAfter)); err != nil {
				s.logger.Error("Failed to sweep stale jobs", zap.Error(err))
			}
		}
	}
}

func (s *TrainingService) runJob(jobID string, dataset *models.Dataset) {
	ctx := s.runCtx
	log := s.logger.With(zap.String("job_id", jobID), zap.String("dataset_id", dataset.ID))

	if err := s.jobs.UpdateStatus(ctx, jobID, models.JobRunning); err != nil {
		log.Error("Failed to mark job running", zap.Error(err))
		return
	}
	_ = s.jobs.Heartbeat(ctx, jobID)

	stopHeartbeat := s.startHeartbeat(ctx, jobID)
	defer stopHeartbeat()

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		log.Error("Failed to reload job", zap.Error(err))
		return
	}

	samples, err := loadSamples(dataset.FilePath)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("failed to load dataset: %v", err))
		return
	}
	_ = s.jobs.UpdateProgress(ctx, jobID, 10)
	_ = s.jobs.AppendLog(ctx, jobID, fmt.Sprintf("loaded %d samples from dataset %s", len(samples), dataset.ID))

	if s.cancelled(ctx, jobID) {
		s.failJob(ctx, jobID, "job cancelled before training")
		return
	}

	artifact, metrics, err := classifier.Train(samples, classifier.TrainConfig{MaxVocabulary: 5000})
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("training failed: %v", err))
		return
	}
	_ = s.jobs.UpdateProgress(ctx, jobID, 60)
	_ = s.jobs.AppendLog(ctx, jobID, fmt.Sprintf(
		"trained: accuracy=%.4f precision=%.4f recall=%.4f f1=%.4f",
		metrics.Accuracy, metrics.Precision, metrics.Recall, metrics.F1))

	if s.cancelled(ctx, jobID) {
		s.failJob(ctx, jobID, "job cancelled after training")
		return
	}

	artifactPath := filepath.Join(s.artifactsDir,
		fmt.Sprintf("%s_%s.json", job.TargetModelName, jobID))
	if err := os.MkdirAll(s.artifactsDir, 0o755); err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("failed to create artifacts dir: %v", err))
		return
	}
	if err := classifier.SaveArtifact(artifactPath, artifact); err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("failed to save artifact: %v", err))
		return
	}
	_ = s.jobs.UpdateProgress(ctx, jobID, 75)

	if err := s.jobs.UpdateStatus(ctx, jobID, models.JobEvaluating); err != nil {
		log.Error("Failed to mark job evaluating", zap.Error(err))
	}

	active, err := s.registry.ActiveVersion(ctx, job.TargetModelName)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("failed to read active version: %v", err))
		return
	}

	candidate := &models.ModelVersion{
		Name:                job.TargetModelName,
		Algorithm:           artifact.Algorithm,
		ArtifactRef:         artifactPath,
		Accuracy:            metrics.Accuracy,
		Precision:           metrics.Precision,
		Recall:              metrics.Recall,
		F1:                  metrics.F1,
		TrainingSampleCount: len(samples),
	}
	// Rejected candidates are registered too, for audit lineage; they just
	// never get promoted.
	candidate, err = s.registry.Register(ctx, candidate)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("failed to register candidate: %v", err))
		return
	}
	_ = s.jobs.SetModelVersion(ctx, jobID, candidate.ID)

	if active != nil && metrics.F1 < active.F1-s.f1Tolerance {
		reason := fmt.Sprintf("rejected: candidate f1 %.4f regresses below active f1 %.4f by more than %.4f",
			metrics.F1, active.F1, s.f1Tolerance)
		_ = s.jobs.AppendLog(ctx, jobID, reason)
		_ = s.jobs.UpdateProgress(ctx, jobID, 100)
		_ = s.jobs.UpdateStatus(ctx, jobID, models.JobRejected)
		log.Info("Retraining job rejected", zap.Float64("candidate_f1", metrics.F1), zap.Float64("active_f1", active.F1))
		return
	}

	if s.cancelled(ctx, jobID) {
		s.discardCandidate(ctx, jobID, candidate.ID)
		s.failJob(ctx, jobID, "job cancelled before promotion")
		return
	}

	if err := s.registry.Promote(ctx, candidate.ID); err != nil {
		s.discardCandidate(ctx, jobID, candidate.ID)
		s.failJob(ctx, jobID, fmt.Sprintf("promotion failed: %v", err))
		return
	}
	_ = s.jobs.AppendLog(ctx, jobID, fmt.Sprintf("promoted version v%d", candidate.Version))
	_ = s.jobs.UpdateProgress(ctx, jobID, 100)
	if err := s.jobs.UpdateStatus(ctx, jobID, models.JobPromoted); err != nil {
		log.Error("Failed to mark job promoted", zap.Error(err))
		return
	}
	log.Info("Retraining job promoted", zap.Int("version", candidate.Version), zap.Float64("f1", metrics.F1))
}

// cancelled checks the persisted cancel flag and the process context.
func (s *TrainingService) cancelled(ctx context.Context, jobID string) bool {
	if ctx.Err() != nil {
		return true
	}
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		s.logger.Warn("Failed to check cancellation", zap.Error(err), zap.String("job_id", jobID))
		return false
	}
	return job.CancelRequested
}

// discardCandidate flags the version a failing job registered so that version
// resolution never serves it. Rejected candidates stay resolvable by pinned
// version; discarded ones do not.
func (s *TrainingService) discardCandidate(ctx context.Context, jobID, versionID string) {
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := s.registry.Discard(ctx, versionID); err != nil {
		s.logger.Error("Failed to discard candidate version", zap.Error(err),
			zap.String("job_id", jobID), zap.String("version_id", versionID))
	}
}

func (s *TrainingService) failJob(ctx context.Context, jobID, reason string) {
	// Shutdown may have cancelled the run context; the failure still has to
	// be recorded, or the janitor would have to clean it up later.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	_ = s.jobs.AppendLog(ctx, jobID, reason)
	if err := s.jobs.UpdateStatus(ctx, jobID, models.JobFailed); err != nil {
		s.logger.Error("Failed to mark job failed", zap.Error(err), zap.String("job_id", jobID))
	}
	s.logger.Warn("Retraining job failed", zap.String("job_id", jobID), zap.String("reason", reason))
}

func (s *TrainingService) startHeartbeat(ctx context.Context, jobID string) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.jobs.Heartbeat(ctx, jobID); err != nil {
					s.logger.Warn("Heartbeat update failed", zap.Error(err), zap.String("job_id", jobID))
				}
			}
		}
	}()
	return func() { close(stop) }
}

// loadSamples reads a processed dataset file: a JSON array of
// {"text": ..., "label": ...} objects.
func loadSamples(path string) ([]models.TrainingSample, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}
	var samples []models.TrainingSample
	if err := json.Unmarshal(raw, &samples); err != nil {
		return nil, fmt.Errorf("failed to parse dataset file: %w", err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("dataset file contains no samples")
	}
	return samples, nil
}
