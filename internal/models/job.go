package models

import "time"

// Retraining job states.
const (
	JobQueued     = "queued"
	JobRunning    = "running"
	JobEvaluating = "evaluating"
	JobPromoted   = "promoted"
	JobRejected   = "rejected"
	JobFailed     = "failed"
)

// RetrainingJob tracks one out-of-band training run. The persisted row is the
// single source of truth for job status; only the training controller writes it.
type RetrainingJob struct {
	ID              string     `db:"id" json:"id"`
	DatasetID       string     `db:"dataset_id" json:"dataset_id"`
	TargetModelName string     `db:"target_model_name" json:"target_model_name"`
	Status          string     `db:"status" json:"status"`
	Config          string     `db:"config" json:"config"` // JSON blob
	ModelVersionID  *string    `db:"model_version_id" json:"model_version_id,omitempty"`
	Progress        int        `db:"progress" json:"progress"` // 0-100
	Logs            string     `db:"logs" json:"logs"`
	CancelRequested bool       `db:"cancel_requested" json:"cancel_requested"`
	Heartbeat       *time.Time `db:"heartbeat" json:"-"`
	StartedAt       *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Terminal reports whether the job has reached a final state.
func (j *RetrainingJob) Terminal() bool {
	switch j.Status {
	case JobPromoted, JobRejected, JobFailed:
		return true
	}
	return false
}
