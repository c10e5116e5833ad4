package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SystemStats is the aggregate view served to admins.
type SystemStats struct {
	TotalPredictions     int            `json:"total_predictions"`
	RecentPredictions24h int            `json:"recent_predictions_24h"`
	TotalModels          int            `json:"total_models"`
	TotalDatasets        int            `json:"total_datasets"`
	TotalJobs            int            `json:"total_jobs"`
	JobsByStatus         map[string]int `json:"jobs_by_status"`
	PredictionsByLabel   map[string]int `json:"predictions_by_label"`
	Timestamp            time.Time      `json:"timestamp"`
}

// StatsRepository aggregates counters for the admin dashboard.
type StatsRepository interface {
	SystemStats(ctx context.Context) (*SystemStats, error)
}

type statsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a Postgres-backed stats aggregator.
func NewStatsRepository(db *sqlx.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) SystemStats(ctx context.Context) (*SystemStats, error) {
	stats := &SystemStats{
		JobsByStatus:       map[string]int{},
		PredictionsByLabel: map[string]int{},
		Timestamp:          time.Now().UTC(),
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM predictions`, &stats.TotalPredictions},
		{`SELECT COUNT(*) FROM predictions WHERE created_at >= NOW() - INTERVAL '24 hours'`, &stats.RecentPredictions24h},
		{`SELECT COUNT(*) FROM model_versions`, &stats.TotalModels},
		{`SELECT COUNT(*) FROM datasets`, &stats.TotalDatasets},
		{`SELECT COUNT(*) FROM retraining_jobs`, &stats.TotalJobs},
	}
	for _, c := range counts {
		if err := r.db.GetContext(ctx, c.dest, c.query); err != nil {
			return nil, fmt.Errorf("failed to aggregate stats: %w", err)
		}
	}

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM retraining_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate job stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.JobsByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	labelRows, err := r.db.QueryContext(ctx, `SELECT label, COUNT(*) FROM predictions GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate label stats: %w", err)
	}
	defer labelRows.Close()
	for labelRows.Next() {
		var label string
		var count int
		if err := labelRows.Scan(&label, &count); err != nil {
			return nil, err
		}
		stats.PredictionsByLabel[label] = count
	}
	return stats, labelRows.Err()
}
