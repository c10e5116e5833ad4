package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spamguard/internal/apperrors"
	"spamguard/internal/models"
)

func spamArtifact() *Artifact {
	return &Artifact{
		Algorithm:  models.AlgorithmLinear,
		Labels:     []string{models.LabelHam, models.LabelSpam},
		Vocabulary: []string{"free", "won", "click"},
		Weights: map[string]map[string]float64{
			models.LabelHam:  {"meeting": 2.0, "tomorrow": 1.5},
			models.LabelSpam: {"free": 2.5, "won": 2.0, "click": 2.0},
		},
		Bias: map[string]float64{
			models.LabelHam:  0.1,
			models.LabelSpam: -0.1,
		},
	}
}

func TestLinearAdapter_ClassifiesSpam(t *testing.T) {
	adapter, err := newLinearAdapter(spamArtifact())
	require.NoError(t, err)

	features, matched := Extract(
		"Congratulations! You have won a free iPhone. Click here to claim your prize!",
		adapter.Vocabulary())
	label, confidence, err := adapter.Infer(features)

	require.NoError(t, err)
	assert.Equal(t, models.LabelSpam, label)
	assert.GreaterOrEqual(t, confidence, 0.0)
	assert.LessOrEqual(t, confidence, 1.0)
	assert.Equal(t, []string{"won", "free", "click"}, matched)
}

func TestLinearAdapter_NoLexicalOverlapStillClassifies(t *testing.T) {
	adapter, err := newLinearAdapter(spamArtifact())
	require.NoError(t, err)

	features, matched := Extract("Meeting moved to 3pm tomorrow", adapter.Vocabulary())
	label, confidence, err := adapter.Infer(features)

	require.NoError(t, err)
	assert.Empty(t, matched)
	assert.Equal(t, models.LabelHam, label)
	assert.Greater(t, confidence, 0.5)
}

func TestLinearAdapter_ConfidenceClamped(t *testing.T) {
	artifact := spamArtifact()
	// Extreme weights must still yield a confidence within [0,1].
	artifact.Weights[models.LabelSpam]["free"] = 1e6
	adapter, err := newLinearAdapter(artifact)
	require.NoError(t, err)

	features, _ := Extract("free free free", adapter.Vocabulary())
	_, confidence, err := adapter.Infer(features)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, confidence, 0.0)
	assert.LessOrEqual(t, confidence, 1.0)
}

func TestCentroidAdapter_NearestCentroidWins(t *testing.T) {
	adapter, err := newCentroidAdapter(&Artifact{
		Algorithm:  models.AlgorithmCentroid,
		Labels:     []string{models.LabelHam, models.LabelFraud},
		Vocabulary: []string{"account", "suspended"},
		Centroids: map[string]map[string]float64{
			models.LabelHam:   {"meeting": 1, "schedule": 1},
			models.LabelFraud: {"account": 1, "suspended": 1, "verify": 1},
		},
	})
	require.NoError(t, err)

	features, _ := Extract("Your account is suspended, verify now", adapter.Vocabulary())
	label, confidence, err := adapter.Infer(features)

	require.NoError(t, err)
	assert.Equal(t, models.LabelFraud, label)
	assert.GreaterOrEqual(t, confidence, 0.0)
	assert.LessOrEqual(t, confidence, 1.0)
}

func TestCentroidAdapter_EmptyFeatures(t *testing.T) {
	adapter, err := newCentroidAdapter(&Artifact{
		Algorithm: models.AlgorithmCentroid,
		Labels:    []string{models.LabelHam, models.LabelSpam},
		Centroids: map[string]map[string]float64{
			models.LabelHam:  {"a": 1},
			models.LabelSpam: {"b": 1},
		},
	})
	require.NoError(t, err)

	_, confidence, err := adapter.Infer(Features{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, confidence, 0.0)
	assert.LessOrEqual(t, confidence, 1.0)
}

func TestLoadAdapter_MissingArtifact(t *testing.T) {
	_, err := LoadAdapter(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, apperrors.ErrModelLoad)
}

func TestLoadAdapter_CorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadAdapter(path)
	assert.ErrorIs(t, err, apperrors.ErrModelLoad)
}

func TestLoadAdapter_UnknownAlgorithm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unknown.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"algorithm":"transformer-9000","labels":["a"]}`), 0o644))

	_, err := LoadAdapter(path)
	assert.ErrorIs(t, err, apperrors.ErrModelLoad)
}

func TestSaveAndLoadArtifactRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, SaveArtifact(path, spamArtifact()))

	adapter, err := LoadAdapter(path)
	require.NoError(t, err)
	assert.Equal(t, models.AlgorithmLinear, adapter.Algorithm())
	assert.Equal(t, []string{"free", "won", "click"}, adapter.Vocabulary())
}

func TestBuildExplanation_WithKeywords(t *testing.T) {
	explanation := BuildExplanation([]string{"won", "free", "click"})
	assert.Equal(t, "Detected 3 relevant keywords", explanation.Reason)
	assert.Equal(t, []string{"won", "free", "click"}, explanation.KeywordsFound)
}

func TestBuildExplanation_NoKeywords(t *testing.T) {
	explanation := BuildExplanation(nil)
	assert.Equal(t, "No known indicators found", explanation.Reason)
	assert.NotNil(t, explanation.KeywordsFound)
	assert.Empty(t, explanation.KeywordsFound)
}
