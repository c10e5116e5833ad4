package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"spamguard/internal/apperrors"
	"spamguard/internal/models"
)

// JobRepository persists retraining job state. The job row is the single
// source of truth for status; a partial unique index enforces at most one
// live job per target model name.
type JobRepository interface {
	// Acquire inserts a queued job, failing with ErrJobConflict when another
	// job for the same target model is still live.
	Acquire(ctx context.Context, job *models.RetrainingJob) error
	GetByID(ctx context.Context, id string) (*models.RetrainingJob, error)
	List(ctx context.Context, limit int) ([]*models.RetrainingJob, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateProgress(ctx context.Context, id string, progress int) error
	AppendLog(ctx context.Context, id, line string) error
	SetModelVersion(ctx context.Context, id, modelVersionID string) error
	Heartbeat(ctx context.Context, id string) error
	RequestCancel(ctx context.Context, id string) error
	// MarkStaleRunning fails running jobs whose heartbeat is older than cutoff
	// and returns how many were flipped. Used for crash recovery.
	MarkStaleRunning(ctx context.Context, cutoff time.Time) (int64, error)
}

type jobRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewJobRepository creates a Postgres-backed job store.
func NewJobRepository(db *sqlx.DB, logger *zap.Logger) JobRepository {
	return &jobRepository{db: db, logger: logger}
}

const jobColumns = `id, dataset_id, target_model_name, status, config, model_version_id,
	progress, logs, cancel_requested, heartbeat, started_at, completed_at, created_at`

func (r *jobRepository) Acquire(ctx context.Context, job *models.RetrainingJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = models.JobQueued
	job.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO retraining_jobs (id, dataset_id, target_model_name, status, config, progress, logs, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, '', $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.DatasetID, job.TargetModelName, job.Status, job.Config, job.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", apperrors.ErrJobConflict, job.TargetModelName)
	}
	if err != nil {
		return fmt.Errorf("failed to create retraining job: %w", err)
	}
	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id string) (*models.RetrainingJob, error) {
	job := &models.RetrainingJob{}
	query := fmt.Sprintf(`SELECT %s FROM retraining_jobs WHERE id = $1`, jobColumns)
	err := r.db.GetContext(ctx, job, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get retraining job: %w", err)
	}
	return job, nil
}

func (r *jobRepository) List(ctx context.Context, limit int) ([]*models.RetrainingJob, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var jobs []*models.RetrainingJob
	query := fmt.Sprintf(`SELECT %s FROM retraining_jobs ORDER BY created_at DESC LIMIT $1`, jobColumns)
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list retraining jobs: %w", err)
	}
	return jobs, nil
}

func (r *jobRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE retraining_jobs
		SET status = $1,
		    started_at = CASE WHEN $1 = 'running' AND started_at IS NULL THEN NOW() ELSE started_at END,
		    completed_at = CASE WHEN $1 IN ('promoted', 'rejected', 'failed') THEN NOW() ELSE completed_at END
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

func (r *jobRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE retraining_jobs SET progress = $1 WHERE id = $2`, progress, id)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

func (r *jobRepository) AppendLog(ctx context.Context, id, line string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE retraining_jobs SET logs = logs || $1 || E'\n' WHERE id = $2`, line, id)
	if err != nil {
		return fmt.Errorf("failed to append job log: %w", err)
	}
	return nil
}

func (r *jobRepository) SetModelVersion(ctx context.Context, id, modelVersionID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE retraining_jobs SET model_version_id = $1 WHERE id = $2`, modelVersionID, id)
	if err != nil {
		return fmt.Errorf("failed to set job model version: %w", err)
	}
	return nil
}

func (r *jobRepository) Heartbeat(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE retraining_jobs SET heartbeat = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to record job heartbeat: %w", err)
	}
	return nil
}

func (r *jobRepository) RequestCancel(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE retraining_jobs SET cancel_requested = TRUE WHERE id = $1 AND status IN ('queued', 'running', 'evaluating')`, id)
	if err != nil {
		return fmt.Errorf("failed to request job cancellation: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrJobNotFound, id)
	}
	return nil
}

func (r *jobRepository) MarkStaleRunning(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE retraining_jobs
		SET status = 'failed',
		    logs = logs || 'job marked failed: stale heartbeat' || E'\n',
		    completed_at = NOW()
		WHERE status = 'running' AND (heartbeat IS NULL OR heartbeat < $1)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale jobs: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected > 0 {
		r.logger.Warn("Marked stale running jobs as failed", zap.Int64("count", affected))
	}
	return affected, nil
}
