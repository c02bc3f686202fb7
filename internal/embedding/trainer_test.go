package embedding

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"go.uber.org/zap"
)

func testConfig() TrainerConfig {
	return TrainerConfig{
		Dimensions:   16,
		Window:       4,
		Epochs:       30,
		MinCount:     1,
		Negative:     5,
		LearningRate: 0.05,
		Subsample:    0,
		Workers:      1,
		Seed:         7,
	}
}

// two disjoint topic clusters; tokens only ever co-occur within a cluster
func clusterCorpus() [][]string {
	evidence := []string{"data", "research", "study", "evidence"}
	intuition := []string{"feel", "believe", "heart", "faith"}

	rng := rand.New(rand.NewSource(3))
	var corpus [][]string
	for i := 0; i < 300; i++ {
		pool := evidence
		if i%2 == 1 {
			pool = intuition
		}
		sentence := make([]string, 6)
		for j := range sentence {
			sentence[j] = pool[rng.Intn(len(pool))]
		}
		corpus = append(corpus, sentence)
	}
	return corpus
}

func TestTrainer_FrequencyFloor(t *testing.T) {
	cfg := testConfig()
	cfg.MinCount = 2
	cfg.Epochs = 1

	corpus := [][]string{
		{"data", "research", "data"},
		{"data", "research", "singleton"},
	}

	space, err := NewTrainer(cfg, zap.NewNop(), nil).Train(context.Background(), corpus)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if !space.Has("data") || !space.Has("research") {
		t.Error("tokens above the floor must receive vectors")
	}
	if space.Has("singleton") {
		t.Error("token below the frequency floor must not receive a vector")
	}
	if space.Frequency("data") != 3 {
		t.Errorf("Frequency(data) = %d, want 3", space.Frequency("data"))
	}
}

func TestTrainer_Deterministic(t *testing.T) {
	cfg := testConfig()
	cfg.Epochs = 3
	corpus := clusterCorpus()

	a, err := NewTrainer(cfg, zap.NewNop(), nil).Train(context.Background(), corpus)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	b, err := NewTrainer(cfg, zap.NewNop(), nil).Train(context.Background(), corpus)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	for _, token := range a.Tokens() {
		va, _ := a.Vector(token)
		vb, ok := b.Vector(token)
		if !ok {
			t.Fatalf("second run is missing token %q", token)
		}
		for i := range va {
			if va[i] != vb[i] {
				t.Fatalf("vectors for %q differ at dim %d: %g vs %g", token, i, va[i], vb[i])
			}
		}
	}
}

func TestTrainer_ClusterStructure(t *testing.T) {
	space, err := NewTrainer(testConfig(), zap.NewNop(), nil).Train(context.Background(), clusterCorpus())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	data, _ := space.Vector("data")
	research, _ := space.Vector("research")
	feel, _ := space.Vector("feel")

	intra := Cosine(data, research)
	inter := Cosine(data, feel)
	if intra <= inter {
		t.Errorf("intra-cluster cosine %g should exceed inter-cluster cosine %g", intra, inter)
	}
}

func TestTrainer_EmptyCorpus(t *testing.T) {
	_, err := NewTrainer(testConfig(), zap.NewNop(), nil).Train(context.Background(), nil)
	if err == nil {
		t.Error("Train() on empty corpus expected error, got nil")
	}
}

func TestTrainer_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTrainer(testConfig(), zap.NewNop(), nil).Train(ctx, clusterCorpus())
	if err == nil {
		t.Error("Train() with cancelled context expected error, got nil")
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposed", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Cosine(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestMean(t *testing.T) {
	got := Mean([][]float32{{1, 3}, {3, 5}}, 2)
	if got[0] != 2 || got[1] != 4 {
		t.Errorf("Mean() = %v, want [2 4]", got)
	}

	zero := Mean(nil, 2)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("Mean(nil) = %v, want [0 0]", zero)
	}
}
