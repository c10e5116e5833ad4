package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"spamguard/internal/apperrors"
	"spamguard/internal/models"
)

// ModelRegistry tracks model versions and the single active version per name.
type ModelRegistry interface {
	// Resolve returns the version matching versionOrLatest for the model name.
	// "latest" resolves to the active version, or the highest version number
	// when none is active.
	Resolve(ctx context.Context, name, versionOrLatest string) (*models.ModelVersion, error)
	// Register inserts a new inactive version with the next version number.
	Register(ctx context.Context, candidate *models.ModelVersion) (*models.ModelVersion, error)
	// Promote atomically demotes the current active version (if any) and
	// activates versionID. Never leaves zero or two active versions.
	Promote(ctx context.Context, versionID string) error
	// ActiveVersion returns the active version for name, or nil when none is.
	ActiveVersion(ctx context.Context, name string) (*models.ModelVersion, error)
	// List returns all versions for name, newest first.
	List(ctx context.Context, name string) ([]*models.ModelVersion, error)
	// ListAll returns every registered version across model names.
	ListAll(ctx context.Context) ([]*models.ModelVersion, error)
	// Discard marks a version left behind by a failed training run as
	// unusable. The row is kept for job lineage but Resolve never serves it.
	Discard(ctx context.Context, versionID string) error
}

type modelRegistry struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewModelRegistry creates a Postgres-backed model registry.
func NewModelRegistry(db *sqlx.DB, logger *zap.Logger) ModelRegistry {
	return &modelRegistry{db: db, logger: logger}
}

const modelColumns = `id, name, version, algorithm, artifact_ref,
	accuracy, precision_score, recall, f1, training_sample_count, is_active, discarded, created_at`

func (r *modelRegistry) Resolve(ctx context.Context, name, versionOrLatest string) (*models.ModelVersion, error) {
	if versionOrLatest == "" || versionOrLatest == models.VersionLatest {
		mv, err := r.ActiveVersion(ctx, name)
		if err != nil {
			return nil, err
		}
		if mv != nil {
			return mv, nil
		}
		// No active version: fall back to the highest usable version number.
		mv = &models.ModelVersion{}
		query := fmt.Sprintf(`SELECT %s FROM model_versions WHERE name = $1 AND NOT discarded ORDER BY version DESC LIMIT 1`, modelColumns)
		err = r.db.GetContext(ctx, mv, query, name)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrModelNotFound, name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve latest model: %w", err)
		}
		return mv, nil
	}

	version, err := parseVersion(versionOrLatest)
	if err != nil {
		return nil, fmt.Errorf("%w: %s@%s", apperrors.ErrModelNotFound, name, versionOrLatest)
	}
	mv := &models.ModelVersion{}
	query := fmt.Sprintf(`SELECT %s FROM model_versions WHERE name = $1 AND version = $2 AND NOT discarded`, modelColumns)
	err = r.db.GetContext(ctx, mv, query, name, version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s@%s", apperrors.ErrModelNotFound, name, versionOrLatest)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve model version: %w", err)
	}
	return mv, nil
}

func (r *modelRegistry) ActiveVersion(ctx context.Context, name string) (*models.ModelVersion, error) {
	mv := &models.ModelVersion{}
	query := fmt.Sprintf(`SELECT %s FROM model_versions WHERE name = $1 AND is_active = TRUE`, modelColumns)
	err := r.db.GetContext(ctx, mv, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active model version: %w", err)
	}
	return mv, nil
}

func (r *modelRegistry) Register(ctx context.Context, candidate *models.ModelVersion) (*models.ModelVersion, error) {
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	candidate.IsActive = false
	candidate.CreatedAt = time.Now().UTC()

	// The version number is assigned inside the insert so concurrent registers
	// for the same name cannot collide.
	query := `
		INSERT INTO model_versions (
			id, name, version, algorithm, artifact_ref,
			accuracy, precision_score, recall, f1, training_sample_count, is_active, discarded, created_at
		)
		SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3, $4, $5, $6, $7, $8, $9, FALSE, FALSE, $10
		FROM model_versions WHERE name = $2
		RETURNING version
	`
	err := r.db.QueryRowContext(ctx, query,
		candidate.ID, candidate.Name, candidate.Algorithm, candidate.ArtifactRef,
		candidate.Accuracy, candidate.Precision, candidate.Recall, candidate.F1,
		candidate.TrainingSampleCount, candidate.CreatedAt,
	).Scan(&candidate.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to register model version: %w", err)
	}

	r.logger.Info("Registered model version",
		zap.String("model", candidate.Name),
		zap.Int("version", candidate.Version),
		zap.String("algorithm", candidate.Algorithm))
	return candidate, nil
}

func (r *modelRegistry) Promote(ctx context.Context, versionID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin promote transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var name string
	err = tx.GetContext(ctx, &name, `SELECT name FROM model_versions WHERE id = $1 FOR UPDATE`, versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: version %s", apperrors.ErrModelNotFound, versionID)
	}
	if err != nil {
		return fmt.Errorf("failed to look up version for promotion: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE model_versions SET is_active = FALSE WHERE name = $1 AND is_active = TRUE`, name); err != nil {
		return fmt.Errorf("failed to demote active version: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE model_versions SET is_active = TRUE WHERE id = $1`, versionID); err != nil {
		return fmt.Errorf("failed to activate version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit promotion: %w", err)
	}

	r.logger.Info("Promoted model version", zap.String("model", name), zap.String("version_id", versionID))
	return nil
}

func (r *modelRegistry) List(ctx context.Context, name string) ([]*models.ModelVersion, error) {
	var versions []*models.ModelVersion
	query := fmt.Sprintf(`SELECT %s FROM model_versions WHERE name = $1 ORDER BY version DESC`, modelColumns)
	if err := r.db.SelectContext(ctx, &versions, query, name); err != nil {
		return nil, fmt.Errorf("failed to list model versions: %w", err)
	}
	return versions, nil
}

func (r *modelRegistry) ListAll(ctx context.Context) ([]*models.ModelVersion, error) {
	var versions []*models.ModelVersion
	query := fmt.Sprintf(`SELECT %s FROM model_versions ORDER BY name, version DESC`, modelColumns)
	if err := r.db.SelectContext(ctx, &versions, query); err != nil {
		return nil, fmt.Errorf("failed to list model versions: %w", err)
	}
	return versions, nil
}

func (r *modelRegistry) Discard(ctx context.Context, versionID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE model_versions SET discarded = TRUE, is_active = FALSE WHERE id = $1`, versionID)
	if err != nil {
		return fmt.Errorf("failed to discard version: %w", err)
	}
	r.logger.Info("Discarded model version", zap.String("version_id", versionID))
	return nil
}

// parseVersion accepts "3" or "v3".
func parseVersion(s string) (int, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	return strconv.Atoi(s)
}
