package validate

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/poliscilab/speechaxis/internal/store"
)

// maxOrdinalScore is the top of the annotators' 0-5 scale
const maxOrdinalScore = 5.0

// Metrics compares one scoring system against the human consensus
type Metrics struct {
	Pearson float64
	MAE     float64
}

// Report is the full validation result. Caveat marks agreement below the
// acceptance threshold; the comparison metrics are still reported.
type Report struct {
	Sentences     int
	Alpha         float64
	Threshold     float64
	Caveat        bool
	SemAxis       Metrics
	Model         Metrics
	SystemPearson float64
	BaselineMAE   float64
}

// SampleForAnnotation draws a stratified annotation sample, perBin sentence
// IDs from each bin. Deterministic given the seed.
func SampleForAnnotation(byBin map[int][]int64, perBin int, seed int64) ([]int64, error) {
	bins := make([]int, 0, len(byBin))
	for bin := range byBin {
		bins = append(bins, bin)
	}
	sort.Ints(bins)

	rng := rand.New(rand.NewSource(seed))
	sample := make([]int64, 0, perBin*len(bins))

	for _, bin := range bins {
		ids := byBin[bin]
		if len(ids) < perBin {
			return nil, fmt.Errorf("bin %d has only %d sentences, need %d for the annotation sample", bin, len(ids), perBin)
		}
		shuffled := make([]int64, len(ids))
		copy(shuffled, ids)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		sample = append(sample, shuffled[:perBin]...)
	}

	return sample, nil
}

// Evaluate scores both systems against the annotators' consensus. Consensus
// is the mean of the three ordinal scores rescaled to [0,1]. The baseline
// predicts the consensus mean for every sentence.
func Evaluate(annotations []store.Annotation, semScores, modelScores map[int64]float64, threshold float64) (*Report, error) {
	if len(annotations) == 0 {
		return nil, fmt.Errorf("no annotations to validate against")
	}

	units := make([][]int, len(annotations))
	consensus := make([]float64, len(annotations))
	sem := make([]float64, len(annotations))
	model := make([]float64, len(annotations))

	for i, ann := range annotations {
		units[i] = ann.Scores[:]
		consensus[i] = ann.Mean() / maxOrdinalScore

		s, ok := semScores[ann.SentenceID]
		if !ok {
			return nil, fmt.Errorf("sentence %d has no axis score", ann.SentenceID)
		}
		m, ok := modelScores[ann.SentenceID]
		if !ok {
			return nil, fmt.Errorf("sentence %d has no model score", ann.SentenceID)
		}
		sem[i] = s
		model[i] = m
	}

	alpha, err := OrdinalAlpha(units)
	if err != nil {
		return nil, fmt.Errorf("failed to compute agreement: %w", err)
	}

	baseline := make([]float64, len(consensus))
	mean := stat.Mean(consensus, nil)
	for i := range baseline {
		baseline[i] = mean
	}

	return &Report{
		Sentences: len(annotations),
		Alpha:     alpha,
		Threshold: threshold,
		Caveat:    alpha < threshold,
		SemAxis: Metrics{
			Pearson: stat.Correlation(sem, consensus, nil),
			MAE:     meanAbsError(sem, consensus),
		},
		Model: Metrics{
			Pearson: stat.Correlation(model, consensus, nil),
			MAE:     meanAbsError(model, consensus),
		},
		SystemPearson: stat.Correlation(sem, model, nil),
		BaselineMAE:   meanAbsError(baseline, consensus),
	}, nil
}

func meanAbsError(predicted, actual []float64) float64 {
	var sum float64
	for i := range predicted {
		sum += math.Abs(predicted[i] - actual[i])
	}
	return sum / float64(len(predicted))
}
