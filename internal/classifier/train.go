package classifier

import (
	"fmt"
	"math"
	"sort"

	"spamguard/internal/models"
)

// TrainConfig controls the linear trainer.
type TrainConfig struct {
	// MaxVocabulary caps the artifact's indicator vocabulary (most frequent
	// terms first). Zero means no cap.
	MaxVocabulary int
}

// Train fits a multinomial naive-Bayes model over term counts, which the
// linear adapter serves as per-label weights plus bias. Returns the artifact
// and metrics computed on the training set.
func Train(samples []models.TrainingSample, cfg TrainConfig) (*Artifact, models.Metrics, error) {
	if len(samples) == 0 {
		return nil, models.Metrics{}, fmt.Errorf("no training samples")
	}

	labelCounts := map[string]int{}
	termCounts := map[string]map[string]int{} // label -> term -> count
	labelTotals := map[string]int{}           // label -> total terms
	globalCounts := map[string]int{}

	for _, s := range samples {
		if s.Label == "" {
			return nil, models.Metrics{}, fmt.Errorf("sample with empty label")
		}
		labelCounts[s.Label]++
		if termCounts[s.Label] == nil {
			termCounts[s.Label] = map[string]int{}
		}
		for _, tok := range Tokenize(s.Text) {
			termCounts[s.Label][tok]++
			labelTotals[s.Label]++
			globalCounts[tok]++
		}
	}

	labels := make([]string, 0, len(labelCounts))
	for label := range labelCounts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	vocabSize := float64(len(globalCounts))
	weights := make(map[string]map[string]float64, len(labels))
	bias := make(map[string]float64, len(labels))
	for _, label := range labels {
		bias[label] = math.Log(float64(labelCounts[label]) / float64(len(samples)))
		w := make(map[string]float64, len(termCounts[label]))
		denom := float64(labelTotals[label]) + vocabSize
		for term := range globalCounts {
			w[term] = math.Log((float64(termCounts[label][term]) + 1) / denom)
		}
		weights[label] = w
	}

	artifact := &Artifact{
		Algorithm:  models.AlgorithmLinear,
		Labels:     labels,
		Vocabulary: indicatorVocabulary(termCounts, globalCounts, labels, cfg.MaxVocabulary),
		Weights:    weights,
		Bias:       bias,
	}

	adapter, err := newLinearAdapter(artifact)
	if err != nil {
		return nil, models.Metrics{}, err
	}
	metrics := evaluate(adapter, samples, labels)
	return artifact, metrics, nil
}

// indicatorVocabulary picks the explanation vocabulary: terms whose usage
// skews towards the non-ham labels, ordered by frequency.
func indicatorVocabulary(termCounts map[string]map[string]int, globalCounts map[string]int, labels []string, limit int) []string {
	type scored struct {
		term  string
		count int
	}
	var terms []scored
	for term, total := range globalCounts {
		indicator := 0
		for _, label := range labels {
			if label == models.LabelHam {
				continue
			}
			indicator += termCounts[label][term]
		}
		// A term indicates spam/fraud when it appears there more often than not.
		if indicator*2 > total {
			terms = append(terms, scored{term, indicator})
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].count != terms[j].count {
			return terms[i].count > terms[j].count
		}
		return terms[i].term < terms[j].term
	})
	if limit > 0 && len(terms) > limit {
		terms = terms[:limit]
	}
	vocab := make([]string, len(terms))
	for i, t := range terms {
		vocab[i] = t.term
	}
	return vocab
}

// evaluate computes accuracy and macro-averaged precision/recall/f1.
func evaluate(adapter Adapter, samples []models.TrainingSample, labels []string) models.Metrics {
	tp := map[string]int{}
	fp := map[string]int{}
	fn := map[string]int{}
	correct := 0

	for _, s := range samples {
		features, _ := Extract(s.Text, nil)
		predicted, _, err := adapter.Infer(features)
		if err != nil {
			continue
		}
		if predicted == s.Label {
			correct++
			tp[s.Label]++
		} else {
			fp[predicted]++
			fn[s.Label]++
		}
	}

	var precision, recall float64
	for _, label := range labels {
		if tp[label]+fp[label] > 0 {
			precision += float64(tp[label]) / float64(tp[label]+fp[label])
		}
		if tp[label]+fn[label] > 0 {
			recall += float64(tp[label]) / float64(tp[label]+fn[label])
		}
	}
	n := float64(len(labels))
	precision /= n
	recall /= n

	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return models.Metrics{
		Accuracy:  float64(correct) / float64(len(samples)),
		Precision: precision,
		Recall:    recall,
		F1:        f1,
	}
}
