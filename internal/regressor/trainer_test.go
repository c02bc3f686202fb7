package regressor

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"go.uber.org/zap"

	"github.com/poliscilab/speechaxis/internal/store"
)

// stubEncoder serves fixed embeddings keyed by sentence text
type stubEncoder struct {
	vectors map[string][]float32
	dim     int
}

func (s *stubEncoder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := s.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no stub embedding for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEncoder) Dim() int        { return s.dim }
func (s *stubEncoder) ModelID() string { return "stub" }
func (s *stubEncoder) Close() error    { return nil }

// linearFixture builds sentences whose targets are a noiseless linear
// function of their stub embeddings
func linearFixture(n int, seed int64) (*stubEncoder, []*store.Sentence) {
	rng := rand.New(rand.NewSource(seed))
	enc := &stubEncoder{vectors: make(map[string][]float32), dim: 2}
	sentences := make([]*store.Sentence, n)

	for i := 0; i < n; i++ {
		text := fmt.Sprintf("sentence %d", i)
		x := []float32{rng.Float32(), rng.Float32()}
		enc.vectors[text] = x

		target := 0.5*float64(x[0]) + 0.3*float64(x[1]) + 0.1
		sentences[i] = &store.Sentence{
			ID:        int64(i),
			Text:      text,
			NormScore: &target,
		}
	}
	return enc, sentences
}

func TestTrainer_FitsLinearTarget(t *testing.T) {
	enc, sentences := linearFixture(200, 11)
	train, val, test := sentences[:140], sentences[140:170], sentences[170:]

	trainer := NewTrainer(Config{
		Epochs:       300,
		TrainBatch:   16,
		EvalBatch:    32,
		LearningRate: 0.01,
		Seed:         5,
	}, zap.NewNop(), nil)

	result, err := trainer.Train(context.Background(), enc, train, val, test)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if result.Head == nil {
		t.Fatal("Train() returned nil head")
	}
	if result.Dim != 2 {
		t.Errorf("Dim = %d, want 2", result.Dim)
	}
	if result.TestMAE > 0.1 {
		t.Errorf("TestMAE = %g, want under 0.1 on a noiseless linear target", result.TestMAE)
	}
	if result.TestPearson < 0.8 {
		t.Errorf("TestPearson = %g, want above 0.8", result.TestPearson)
	}
	if result.BestEpoch < 1 {
		t.Errorf("BestEpoch = %d, want at least 1 once training improves on the zero head", result.BestEpoch)
	}
}

func TestTrainer_EmptySplit(t *testing.T) {
	enc, sentences := linearFixture(10, 2)
	trainer := NewTrainer(Config{Epochs: 1, TrainBatch: 4, EvalBatch: 4, LearningRate: 0.01, Seed: 1}, zap.NewNop(), nil)

	if _, err := trainer.Train(context.Background(), enc, sentences, nil, sentences); err == nil {
		t.Error("Train() with an empty val split expected error, got nil")
	}
}

func TestTrainer_MissingNormScore(t *testing.T) {
	enc, sentences := linearFixture(10, 2)
	sentences[4].NormScore = nil
	trainer := NewTrainer(Config{Epochs: 1, TrainBatch: 4, EvalBatch: 4, LearningRate: 0.01, Seed: 1}, zap.NewNop(), nil)

	if _, err := trainer.Train(context.Background(), enc, sentences, sentences, sentences); err == nil {
		t.Error("Train() with an unscored sentence expected error, got nil")
	}
}

func TestTrainer_Cancellation(t *testing.T) {
	enc, sentences := linearFixture(30, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trainer := NewTrainer(Config{Epochs: 3, TrainBatch: 4, EvalBatch: 4, LearningRate: 0.01, Seed: 1}, zap.NewNop(), nil)
	if _, err := trainer.Train(ctx, enc, sentences, sentences, sentences); err == nil {
		t.Error("Train() with cancelled context expected error, got nil")
	}
}

func TestPredict_ClampedScores(t *testing.T) {
	enc, sentences := linearFixture(20, 4)
	head := &Head{Weights: []float32{5, 5}, Bias: -10}

	scores, err := Predict(context.Background(), enc, head, sentences, 8, nil)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if len(scores) != len(sentences) {
		t.Fatalf("Predict() returned %d scores for %d sentences", len(scores), len(sentences))
	}
	for i, score := range scores {
		if score < 0 || score > 1 {
			t.Errorf("score[%d] = %g, out of [0,1]", i, score)
		}
	}
}
