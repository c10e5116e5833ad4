package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spamguard/internal/models"
)

func trainingCorpus() []models.TrainingSample {
	return []models.TrainingSample{
		{Text: "Meeting at 3pm tomorrow", Label: models.LabelHam},
		{Text: "Thanks for the project update", Label: models.LabelHam},
		{Text: "Lunch schedule for next week", Label: models.LabelHam},
		{Text: "Hello friend, how are you", Label: models.LabelHam},
		{Text: "Win a free lottery prize now", Label: models.LabelSpam},
		{Text: "Buy cheap pills, click here", Label: models.LabelSpam},
		{Text: "Free prize! Click to win now", Label: models.LabelSpam},
		{Text: "Urgent: your account is suspended, verify payment", Label: models.LabelFraud},
		{Text: "Your bank account needs urgent verification", Label: models.LabelFraud},
	}
}

func TestTrain_ProducesWorkingLinearModel(t *testing.T) {
	artifact, metrics, err := Train(trainingCorpus(), TrainConfig{})
	require.NoError(t, err)

	assert.Equal(t, models.AlgorithmLinear, artifact.Algorithm)
	assert.ElementsMatch(t, []string{models.LabelFraud, models.LabelHam, models.LabelSpam}, artifact.Labels)
	assert.Greater(t, metrics.Accuracy, 0.8)
	assert.Greater(t, metrics.F1, 0.0)
	assert.LessOrEqual(t, metrics.F1, 1.0)

	adapter, err := newLinearAdapter(artifact)
	require.NoError(t, err)

	features, _ := Extract("win a free prize, click now", nil)
	label, _, err := adapter.Infer(features)
	require.NoError(t, err)
	assert.Equal(t, models.LabelSpam, label)

	features, _ = Extract("meeting tomorrow about the project", nil)
	label, _, err = adapter.Infer(features)
	require.NoError(t, err)
	assert.Equal(t, models.LabelHam, label)
}

func TestTrain_VocabularySkewsTowardsIndicators(t *testing.T) {
	artifact, _, err := Train(trainingCorpus(), TrainConfig{})
	require.NoError(t, err)

	assert.Contains(t, artifact.Vocabulary, "free")
	assert.Contains(t, artifact.Vocabulary, "urgent")
	assert.NotContains(t, artifact.Vocabulary, "meeting")
}

func TestTrain_VocabularyCap(t *testing.T) {
	artifact, _, err := Train(trainingCorpus(), TrainConfig{MaxVocabulary: 2})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(artifact.Vocabulary), 2)
}

func TestTrain_EmptyDataset(t *testing.T) {
	_, _, err := Train(nil, TrainConfig{})
	assert.Error(t, err)
}

func TestTrain_EmptyLabelRejected(t *testing.T) {
	_, _, err := Train([]models.TrainingSample{{Text: "hello", Label: ""}}, TrainConfig{})
	assert.Error(t, err)
}
