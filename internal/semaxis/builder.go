package semaxis

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/poliscilab/speechaxis/internal/embedding"
)

// Config holds axis construction parameters. The two thresholds are
// independently tunable and the resulting pole sizes are expected to be
// asymmetric.
type Config struct {
	// EvidenceThreshold: vocabulary tokens with cosine similarity to the
	// evidence seed mean above this join the evidence pole.
	EvidenceThreshold float64

	// IntuitionThreshold: vocabulary tokens with cosine similarity to the
	// evidence seed mean below this join the intuition pole.
	IntuitionThreshold float64

	EvidenceSeeds  []string
	IntuitionSeeds []string
}

// TokenScore is one token's signed projection onto the axis, with its pole
// memberships from the expansion step. A token can belong to both expanded
// poles; the sign of its score against the final axis settles which side it
// lands on.
type TokenScore struct {
	Token         string
	Score         float64
	EvidencePole  bool
	IntuitionPole bool
}

// Result is a built semantic axis with per-token scores
type Result struct {
	// Axis = mean(expanded evidence pole) - mean(expanded intuition pole).
	// Evidence-aligned tokens project positive.
	Axis []float32

	// Scores holds exactly one entry per in-vocabulary token, in lexical
	// order.
	Scores []TokenScore

	EvidencePoleSize  int
	IntuitionPoleSize int

	// Seeds found in the embedding vocabulary
	EvidenceSeedsInVocab  int
	IntuitionSeedsInVocab int
}

// Build constructs the evidence/intuition axis from seed words:
//
//  1. Compute each pole's seed mean vector.
//  2. Expand the evidence pole one-shot by the evidence threshold.
//  3. Expand the intuition pole one-shot by the intuition threshold,
//     measured against the evidence seed mean.
//  4. Recompute pole means from the expanded sets; axis = difference.
//  5. Score every in-vocabulary token by cosine against the axis.
//
// Expansion is one-shot, not iterative: re-expanding against expanded means
// drifts the poles away from the seeds.
// Deterministic given fixed embeddings, seeds and thresholds.
func Build(space *embedding.Space, cfg Config, logger *zap.Logger) (*Result, error) {
	if len(cfg.EvidenceSeeds) == 0 {
		cfg.EvidenceSeeds = DefaultEvidenceSeeds
	}
	if len(cfg.IntuitionSeeds) == 0 {
		cfg.IntuitionSeeds = DefaultIntuitionSeeds
	}

	evidenceSeedVecs, evidenceFound := seedVectors(space, cfg.EvidenceSeeds)
	intuitionSeedVecs, intuitionFound := seedVectors(space, cfg.IntuitionSeeds)
	if len(evidenceSeedVecs) == 0 {
		return nil, fmt.Errorf("no evidence seed word is in the embedding vocabulary")
	}
	if len(intuitionSeedVecs) == 0 {
		return nil, fmt.Errorf("no intuition seed word is in the embedding vocabulary")
	}

	dim := space.Dim()
	evidenceSeedMean := embedding.Mean(evidenceSeedVecs, dim)

	// One-shot expansion against the evidence seed mean. Both tests use the
	// same reference vector: similar tokens join the evidence pole,
	// sufficiently dissimilar tokens join the intuition pole.
	evidenceSet := make(map[string]bool, len(cfg.EvidenceSeeds))
	for _, s := range cfg.EvidenceSeeds {
		if space.Has(s) {
			evidenceSet[s] = true
		}
	}
	intuitionSet := make(map[string]bool, len(cfg.IntuitionSeeds))
	for _, s := range cfg.IntuitionSeeds {
		if space.Has(s) {
			intuitionSet[s] = true
		}
	}

	tokens := space.Tokens()
	for _, token := range tokens {
		vec, _ := space.Vector(token)
		sim := embedding.Cosine(vec, evidenceSeedMean)
		if sim > cfg.EvidenceThreshold {
			evidenceSet[token] = true
		}
		if sim < cfg.IntuitionThreshold {
			intuitionSet[token] = true
		}
	}

	evidenceMean := poleMean(space, evidenceSet, dim)
	intuitionMean := poleMean(space, intuitionSet, dim)

	axis := make([]float32, dim)
	for i := range axis {
		axis[i] = evidenceMean[i] - intuitionMean[i]
	}

	scores := make([]TokenScore, 0, len(tokens))
	for _, token := range tokens {
		vec, _ := space.Vector(token)
		scores = append(scores, TokenScore{
			Token:         token,
			Score:         embedding.Cosine(vec, axis),
			EvidencePole:  evidenceSet[token],
			IntuitionPole: intuitionSet[token],
		})
	}

	logger.Info("semantic axis built",
		zap.Int("evidence_pole", len(evidenceSet)),
		zap.Int("intuition_pole", len(intuitionSet)),
		zap.Int("evidence_seeds_in_vocab", evidenceFound),
		zap.Int("intuition_seeds_in_vocab", intuitionFound),
		zap.Int("scored_tokens", len(scores)))

	return &Result{
		Axis:                  axis,
		Scores:                scores,
		EvidencePoleSize:      len(evidenceSet),
		IntuitionPoleSize:     len(intuitionSet),
		EvidenceSeedsInVocab:  evidenceFound,
		IntuitionSeedsInVocab: intuitionFound,
	}, nil
}

func seedVectors(space *embedding.Space, seeds []string) ([][]float32, int) {
	var vecs [][]float32
	for _, seed := range seeds {
		if vec, ok := space.Vector(seed); ok {
			vecs = append(vecs, vec)
		}
	}
	return vecs, len(vecs)
}

func poleMean(space *embedding.Space, pole map[string]bool, dim int) []float32 {
	vecs := make([][]float32, 0, len(pole))
	for token := range pole {
		if vec, ok := space.Vector(token); ok {
			vecs = append(vecs, vec)
		}
	}
	return embedding.Mean(vecs, dim)
}
