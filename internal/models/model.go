package models

import (
	"strconv"
	"time"
)

// Model algorithm families the serving layer can load.
const (
	AlgorithmLinear   = "linear"
	AlgorithmCentroid = "centroid"
)

// VersionLatest is the sentinel resolving to the active version of a model.
const VersionLatest = "latest"

// Metrics holds the evaluation scores recorded for a trained model version.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// ModelVersion is one immutable trained model. Only the IsActive and
// Discarded flags are ever mutated after creation, and only by the registry.
type ModelVersion struct {
	ID                  string    `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	Version             int       `db:"version" json:"version"`
	Algorithm           string    `db:"algorithm" json:"algorithm"`
	ArtifactRef         string    `db:"artifact_ref" json:"artifact_ref"`
	Accuracy            float64   `db:"accuracy" json:"accuracy"`
	Precision           float64   `db:"precision_score" json:"precision"`
	Recall              float64   `db:"recall" json:"recall"`
	F1                  float64   `db:"f1" json:"f1"`
	TrainingSampleCount int       `db:"training_sample_count" json:"training_sample_count"`
	IsActive            bool      `db:"is_active" json:"is_active"`
	Discarded           bool      `db:"discarded" json:"discarded"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// VersionString renders the version the way the API reports it, e.g. "v3".
func (m *ModelVersion) VersionString() string {
	if m == nil {
		return ""
	}
	return "v" + strconv.Itoa(m.Version)
}
