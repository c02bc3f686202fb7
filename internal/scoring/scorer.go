package scoring

import (
	"errors"
)

// ErrNoVocabulary marks a sentence with zero in-vocabulary tokens. Such a
// sentence has an undefined score and must be dropped and counted by the
// caller — never scored as zero, which is a valid intuition-leaning value
// and would corrupt binning.
var ErrNoVocabulary = errors.New("sentence has no in-vocabulary tokens")

// Scorer aggregates per-token axis scores into sentence scores using
// corpus-level TF-IDF weights. Both inputs are immutable artifacts of
// earlier stages.
type Scorer struct {
	tfidf      *TFIDF
	axisScores map[string]float64
}

// NewScorer creates a sentence scorer
func NewScorer(tfidf *TFIDF, axisScores map[string]float64) *Scorer {
	return &Scorer{tfidf: tfidf, axisScores: axisScores}
}

// Score computes the TF-IDF weighted average of the sentence tokens' axis
// scores. Out-of-vocabulary tokens contribute nothing: they are excluded
// from both the numerator and the weight normalization denominator.
// The result is order-independent.
func (s *Scorer) Score(tokens []string) (float64, error) {
	weights := s.tfidf.Weights(tokens)

	var weighted, total float64
	for token, weight := range weights {
		axis, ok := s.axisScores[token]
		if !ok {
			continue
		}
		weighted += weight * axis
		total += weight
	}

	if total == 0 {
		return 0, ErrNoVocabulary
	}
	return weighted / total, nil
}
