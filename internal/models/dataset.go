package models

import "time"

// Dataset lifecycle states. Only processed datasets are eligible for training.
const (
	DatasetUploaded   = "uploaded"
	DatasetProcessing = "processing"
	DatasetProcessed  = "processed"
	DatasetFailed     = "failed"
)

// Dataset is an uploaded training corpus reference.
type Dataset struct {
	ID          string     `db:"id" json:"id"`
	AccountID   string     `db:"account_id" json:"account_id"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description"`
	FilePath    string     `db:"file_path" json:"file_path"`
	RecordCount int        `db:"record_count" json:"record_count"`
	Status      string     `db:"status" json:"status"`
	UploadedAt  time.Time  `db:"uploaded_at" json:"uploaded_at"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

// TrainingSample is one labeled example read from a dataset file.
type TrainingSample struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}
