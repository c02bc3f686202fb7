package embedding

import (
	"fmt"
	"math"
	"sort"
)

// Space is a trained embedding space: one dense vector per vocabulary token.
// It is written once by the trainer and read-only for every later stage.
type Space struct {
	dim     int
	vectors map[string][]float32
	freqs   map[string]int64
}

// NewSpace builds a Space from parallel token/vector/frequency data
func NewSpace(dim int) *Space {
	return &Space{
		dim:     dim,
		vectors: make(map[string][]float32),
		freqs:   make(map[string]int64),
	}
}

// Add registers a token vector. The vector is not copied.
func (s *Space) Add(token string, vector []float32, frequency int64) error {
	if len(vector) != s.dim {
		return fmt.Errorf("vector for %q has dimension %d, want %d", token, len(vector), s.dim)
	}
	s.vectors[token] = vector
	s.freqs[token] = frequency
	return nil
}

// Dim returns the vector dimensionality
func (s *Space) Dim() int {
	return s.dim
}

// Size returns the vocabulary size
func (s *Space) Size() int {
	return len(s.vectors)
}

// Vector returns the embedding for a token, or false for out-of-vocabulary
// tokens. Absence is normal: tokens below the trainer's frequency floor have
// no vector and contribute zero weight downstream.
func (s *Space) Vector(token string) ([]float32, bool) {
	v, ok := s.vectors[token]
	return v, ok
}

// Has reports whether a token is in vocabulary
func (s *Space) Has(token string) bool {
	_, ok := s.vectors[token]
	return ok
}

// Frequency returns the corpus frequency recorded for a token
func (s *Space) Frequency(token string) int64 {
	return s.freqs[token]
}

// Tokens returns the vocabulary in lexical order
func (s *Space) Tokens() []string {
	tokens := make([]string, 0, len(s.vectors))
	for t := range s.vectors {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens
}

// Cosine computes cosine similarity between two vectors.
// Returns 0 when either vector has zero norm.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Mean computes the element-wise mean of a set of vectors
func Mean(vectors [][]float32, dim int) []float32 {
	mean := make([]float32, dim)
	if len(vectors) == 0 {
		return mean
	}
	for _, v := range vectors {
		for i := range v {
			mean[i] += v[i]
		}
	}
	inv := 1 / float32(len(vectors))
	for i := range mean {
		mean[i] *= inv
	}
	return mean
}
