package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"spamguard/internal/models"
)

// PredictionRepository is the append-only store for prediction results.
type PredictionRepository interface {
	Save(ctx context.Context, result *models.PredictionResult) error
	History(ctx context.Context, accountID string, limit, offset int) ([]*models.PredictionResult, error)
}

type predictionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPredictionRepository creates a Postgres-backed prediction store.
func NewPredictionRepository(db *sqlx.DB, logger *zap.Logger) PredictionRepository {
	return &predictionRepository{db: db, logger: logger}
}

// predictionRow carries the explanation as a JSON column.
type predictionRow struct {
	models.PredictionResult
	ExplanationJSON []byte `db:"explanation"`
}

func (r *predictionRepository) Save(ctx context.Context, result *models.PredictionResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	explanation, err := json.Marshal(result.Explanation)
	if err != nil {
		return fmt.Errorf("failed to encode explanation: %w", err)
	}

	query := `
		INSERT INTO predictions (
			id, account_id, model_id, input_text, label, confidence,
			explanation, model_version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		result.ID, result.AccountID, result.ModelID, result.InputText,
		result.Label, result.Confidence, explanation, result.ModelVersion, result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

func (r *predictionRepository) History(ctx context.Context, accountID string, limit, offset int) ([]*models.PredictionResult, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []predictionRow
	query := `
		SELECT id, account_id, model_id, input_text, label, confidence,
		       explanation, model_version, created_at
		FROM predictions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &rows, query, accountID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to query prediction history: %w", err)
	}

	results := make([]*models.PredictionResult, 0, len(rows))
	for i := range rows {
		result := rows[i].PredictionResult
		if len(rows[i].ExplanationJSON) > 0 {
			if err := json.Unmarshal(rows[i].ExplanationJSON, &result.Explanation); err != nil {
				r.logger.Warn("Failed to decode stored explanation", zap.Error(err), zap.String("prediction_id", result.ID))
			}
		}
		results = append(results, &result)
	}
	return results, nil
}
