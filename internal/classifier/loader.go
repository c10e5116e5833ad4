package classifier

import (
	"encoding/json"
	"fmt"
	"os"

	"spamguard/internal/apperrors"
	"spamguard/internal/models"
)

// LoadAdapter reads a model artifact and returns the adapter implementing its
// algorithm family. A missing or corrupt artifact yields ErrModelLoad: fatal
// for that version, never for the serving process.
func LoadAdapter(artifactPath string) (Adapter, error) {
	raw, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrModelLoad, artifactPath, err)
	}

	var artifact Artifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", apperrors.ErrModelLoad, artifactPath, err)
	}

	var adapter Adapter
	switch artifact.Algorithm {
	case models.AlgorithmLinear:
		adapter, err = newLinearAdapter(&artifact)
	case models.AlgorithmCentroid:
		adapter, err = newCentroidAdapter(&artifact)
	default:
		err = fmt.Errorf("unknown algorithm %q", artifact.Algorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrModelLoad, artifactPath, err)
	}
	return adapter, nil
}

// SaveArtifact writes a trained artifact to disk.
func SaveArtifact(artifactPath string, artifact *Artifact) error {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	if err := os.WriteFile(artifactPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}
