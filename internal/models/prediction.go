package models

import "time"

// Prediction labels returned by the classifier.
const (
	LabelSpam  = "spam"
	LabelHam   = "ham"
	LabelFraud = "fraud"
)

// PredictionRequest is the immutable input to the prediction pipeline.
type PredictionRequest struct {
	Text         string `json:"text"`
	ModelVersion string `json:"model_version"` // concrete version or "latest"
	AccountID    string `json:"-"`
	Tier         string `json:"-"`
}

// Explanation justifies a prediction with the vocabulary terms that matched
// and a human-readable reason.
type Explanation struct {
	KeywordsFound []string `json:"keywords_found"`
	Reason        string   `json:"reason"`
}

// PredictionResult is a single classification outcome. Immutable once
// produced; persisted verbatim in the 'predictions' table.
type PredictionResult struct {
	ID           string      `db:"id" json:"id"`
	AccountID    string      `db:"account_id" json:"-"`
	ModelID      string      `db:"model_id" json:"-"`
	InputText    string      `db:"input_text" json:"-"`
	Label        string      `db:"label" json:"label"`
	Confidence   float64     `db:"confidence" json:"confidence"`
	Explanation  Explanation `db:"-" json:"explanation"`
	ModelVersion string      `db:"model_version" json:"model_version"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}
