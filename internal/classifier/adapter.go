package classifier

import (
	"fmt"
	"math"

	"spamguard/internal/models"
)

// Adapter wraps one trained model artifact. Implementations hold only
// read-only state loaded from the artifact, so a single adapter is safe for
// concurrent inference.
type Adapter interface {
	// Infer classifies a feature bag. Confidence is always within [0,1].
	Infer(features Features) (label string, confidence float64, err error)
	// Vocabulary returns the model's known-indicator terms, used for the
	// explanation keywords.
	Vocabulary() []string
	// Algorithm names the family this adapter implements.
	Algorithm() string
}

// Artifact is the on-disk JSON document describing a trained model.
type Artifact struct {
	Algorithm  string                        `json:"algorithm"`
	Labels     []string                      `json:"labels"`
	Vocabulary []string                      `json:"vocabulary"`
	Weights    map[string]map[string]float64 `json:"weights,omitempty"`   // label -> term -> weight
	Bias       map[string]float64            `json:"bias,omitempty"`      // label -> prior
	Centroids  map[string]map[string]float64 `json:"centroids,omitempty"` // label -> term -> component
}

// clamp keeps raw scores inside the confidence contract.
func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// linearAdapter scores labels as bias plus weighted term counts and squashes
// the margin through a softmax. Covers the classical linear family.
type linearAdapter struct {
	labels     []string
	vocabulary []string
	weights    map[string]map[string]float64
	bias       map[string]float64
}

func newLinearAdapter(a *Artifact) (*linearAdapter, error) {
	if len(a.Labels) == 0 || len(a.Weights) == 0 {
		return nil, fmt.Errorf("linear artifact missing labels or weights")
	}
	return &linearAdapter{
		labels:     a.Labels,
		vocabulary: a.Vocabulary,
		weights:    a.Weights,
		bias:       a.Bias,
	}, nil
}

func (l *linearAdapter) Algorithm() string    { return models.AlgorithmLinear }
func (l *linearAdapter) Vocabulary() []string { return l.vocabulary }

func (l *linearAdapter) Infer(features Features) (string, float64, error) {
	scores := make([]float64, len(l.labels))
	for i, label := range l.labels {
		score := l.bias[label]
		weights := l.weights[label]
		for term, count := range features {
			if w, ok := weights[term]; ok {
				score += w * float64(count)
			}
		}
		scores[i] = score
	}

	best := 0
	maxScore := scores[0]
	for i, s := range scores {
		if s > maxScore {
			maxScore = s
			best = i
		}
	}

	// Softmax over shifted scores for a calibrated-ish confidence.
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - maxScore)
	}
	confidence := clamp(1 / sum)
	return l.labels[best], confidence, nil
}

// centroidAdapter assigns the label of the nearest class centroid by cosine
// similarity over term counts. Covers the embedding-based family.
type centroidAdapter struct {
	labels     []string
	vocabulary []string
	centroids  map[string]map[string]float64
}

func newCentroidAdapter(a *Artifact) (*centroidAdapter, error) {
	if len(a.Labels) == 0 || len(a.Centroids) == 0 {
		return nil, fmt.Errorf("centroid artifact missing labels or centroids")
	}
	return &centroidAdapter{
		labels:     a.Labels,
		vocabulary: a.Vocabulary,
		centroids:  a.Centroids,
	}, nil
}

func (c *centroidAdapter) Algorithm() string    { return models.AlgorithmCentroid }
func (c *centroidAdapter) Vocabulary() []string { return c.vocabulary }

func (c *centroidAdapter) Infer(features Features) (string, float64, error) {
	var norm float64
	for _, count := range features {
		norm += float64(count) * float64(count)
	}
	norm = math.Sqrt(norm)

	best := c.labels[0]
	bestSim := math.Inf(-1)
	var simSum float64
	for _, label := range c.labels {
		centroid := c.centroids[label]
		var dot, cNorm float64
		for term, comp := range centroid {
			cNorm += comp * comp
			if count, ok := features[term]; ok {
				dot += comp * float64(count)
			}
		}
		sim := 0.0
		if norm > 0 && cNorm > 0 {
			sim = dot / (norm * math.Sqrt(cNorm))
		}
		if sim > bestSim {
			bestSim = sim
			best = label
		}
		if sim > 0 {
			simSum += sim
		}
	}

	confidence := 1.0 / float64(len(c.labels))
	if simSum > 0 && bestSim > 0 {
		confidence = bestSim / simSum
	}
	return best, clamp(confidence), nil
}
