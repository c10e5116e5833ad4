package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"spamguard/internal/apperrors"
	"spamguard/internal/models"
)

// DatasetRepository stores references to uploaded training datasets.
type DatasetRepository interface {
	Create(ctx context.Context, dataset *models.Dataset) error
	GetByID(ctx context.Context, id string) (*models.Dataset, error)
	UpdateStatus(ctx context.Context, id, status string) error
	List(ctx context.Context, accountID string) ([]*models.Dataset, error)
}

type datasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository creates a Postgres-backed dataset store.
func NewDatasetRepository(db *sqlx.DB) DatasetRepository {
	return &datasetRepository{db: db}
}

func (r *datasetRepository) Create(ctx context.Context, dataset *models.Dataset) error {
	if dataset.ID == "" {
		dataset.ID = uuid.NewString()
	}
	if dataset.UploadedAt.IsZero() {
		dataset.UploadedAt = time.Now().UTC()
	}
	if dataset.Status == "" {
		dataset.Status = models.DatasetUploaded
	}

	query := `
		INSERT INTO datasets (id, account_id, name, description, file_path, record_count, status, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		dataset.ID, dataset.AccountID, dataset.Name, dataset.Description,
		dataset.FilePath, dataset.RecordCount, dataset.Status, dataset.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	return nil
}

func (r *datasetRepository) GetByID(ctx context.Context, id string) (*models.Dataset, error) {
	dataset := &models.Dataset{}
	query := `
		SELECT id, account_id, name, description, file_path, record_count, status, uploaded_at, processed_at
		FROM datasets WHERE id = $1
	`
	err := r.db.GetContext(ctx, dataset, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDatasetNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return dataset, nil
}

func (r *datasetRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE datasets SET status = $1, processed_at = CASE WHEN $1 = 'processed' THEN NOW() ELSE processed_at END WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update dataset status: %w", err)
	}
	return nil
}

func (r *datasetRepository) List(ctx context.Context, accountID string) ([]*models.Dataset, error) {
	var datasets []*models.Dataset
	query := `
		SELECT id, account_id, name, description, file_path, record_count, status, uploaded_at, processed_at
		FROM datasets WHERE account_id = $1 ORDER BY uploaded_at DESC
	`
	if err := r.db.SelectContext(ctx, &datasets, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, nil
}
