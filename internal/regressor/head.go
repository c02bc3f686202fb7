package regressor

import (
	"fmt"
	"math/rand"
)

// Head is the scalar regression head on top of the frozen encoder:
// a single linear unit with output clamped to the score range.
type Head struct {
	Weights []float32
	Bias    float64
}

// NewHead creates a zero-initialized head
func NewHead(dim int) *Head {
	return &Head{Weights: make([]float32, dim)}
}

// Predict returns the head's output for one embedding, clamped to [0,1]
func (h *Head) Predict(embedding []float32) float64 {
	raw := h.raw(embedding)
	if raw < 0 {
		return 0
	}
	if raw > 1 {
		return 1
	}
	return raw
}

// raw returns the unclamped linear output, used during training so the
// subgradient does not vanish outside the score range
func (h *Head) raw(embedding []float32) float64 {
	out := h.Bias
	for i, w := range h.Weights {
		out += float64(w) * float64(embedding[i])
	}
	return out
}

// Clone returns an independent copy, used for best-epoch snapshots
func (h *Head) Clone() *Head {
	weights := make([]float32, len(h.Weights))
	copy(weights, h.Weights)
	return &Head{Weights: weights, Bias: h.Bias}
}

// trainEpoch runs one pass of minibatch subgradient descent on L1 loss.
// The order is reshuffled per epoch with the provided rng.
func (h *Head) trainEpoch(embeddings [][]float32, targets []float64, batchSize int, lr float64, rng *rand.Rand) {
	order := rng.Perm(len(embeddings))

	for start := 0; start < len(order); start += batchSize {
		end := start + batchSize
		if end > len(order) {
			end = len(order)
		}

		gradW := make([]float64, len(h.Weights))
		var gradB float64
		for _, idx := range order[start:end] {
			sign := 0.0
			diff := h.raw(embeddings[idx]) - targets[idx]
			if diff > 0 {
				sign = 1
			} else if diff < 0 {
				sign = -1
			}
			for i, x := range embeddings[idx] {
				gradW[i] += sign * float64(x)
			}
			gradB += sign
		}

		n := float64(end - start)
		for i := range h.Weights {
			h.Weights[i] -= float32(lr * gradW[i] / n)
		}
		h.Bias -= lr * gradB / n
	}
}

// MAE returns the mean absolute error of clamped predictions
func (h *Head) MAE(embeddings [][]float32, targets []float64) (float64, error) {
	if len(embeddings) == 0 {
		return 0, fmt.Errorf("cannot evaluate on an empty set")
	}
	if len(embeddings) != len(targets) {
		return 0, fmt.Errorf("embeddings and targets length mismatch: %d vs %d", len(embeddings), len(targets))
	}

	var sum float64
	for i, emb := range embeddings {
		diff := h.Predict(emb) - targets[i]
		if diff < 0 {
			diff = -diff
		}
		sum += diff
	}
	return sum / float64(len(embeddings)), nil
}
