package scoring

import (
	"errors"
	"math"
	"testing"
)

func fittedTFIDF() *TFIDF {
	m := NewTFIDF()
	m.Add([]string{"data", "shows", "growth"})
	m.Add([]string{"data", "data", "matters"})
	m.Add([]string{"feel", "strongly"})
	return m
}

func TestTFIDF_DocFreq(t *testing.T) {
	m := fittedTFIDF()

	// "data" appears in two sentences, counted once per sentence
	if got := m.DocFreq("data"); got != 2 {
		t.Errorf("DocFreq(data) = %d, want 2", got)
	}
	if got := m.DocFreq("feel"); got != 1 {
		t.Errorf("DocFreq(feel) = %d, want 1", got)
	}
	if got := m.Docs(); got != 3 {
		t.Errorf("Docs() = %d, want 3", got)
	}
}

func TestTFIDF_IDF(t *testing.T) {
	m := fittedTFIDF()

	// Rarer tokens weigh more
	if m.IDF("feel") <= m.IDF("data") {
		t.Errorf("IDF(feel) = %g should exceed IDF(data) = %g", m.IDF("feel"), m.IDF("data"))
	}

	// Smoothed idf stays positive even for unseen tokens
	if m.IDF("unseen") <= 0 {
		t.Errorf("IDF(unseen) = %g, want positive", m.IDF("unseen"))
	}
}

func TestTFIDF_Weights(t *testing.T) {
	m := fittedTFIDF()

	weights := m.Weights([]string{"data", "data", "feel"})
	wantData := (2.0 / 3.0) * m.IDF("data")
	if math.Abs(weights["data"]-wantData) > 1e-12 {
		t.Errorf("weight(data) = %g, want %g", weights["data"], wantData)
	}

	if len(m.Weights(nil)) != 0 {
		t.Error("Weights(nil) should be empty")
	}
}

func testScorer() *Scorer {
	axis := map[string]float64{
		"data":   0.8,
		"shows":  0.3,
		"feel":   -0.7,
		"growth": 0.1,
	}
	return NewScorer(fittedTFIDF(), axis)
}

func TestScorer_WeightedAverage(t *testing.T) {
	s := testScorer()

	got, err := s.Score([]string{"data", "feel"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	wData := 0.5 * s.tfidf.IDF("data")
	wFeel := 0.5 * s.tfidf.IDF("feel")
	want := (wData*0.8 + wFeel*-0.7) / (wData + wFeel)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Score() = %g, want %g", got, want)
	}
}

func TestScorer_OrderInvariant(t *testing.T) {
	s := testScorer()

	a, err := s.Score([]string{"data", "shows", "feel"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	b, err := s.Score([]string{"feel", "data", "shows"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if a != b {
		t.Errorf("score depends on token order: %g vs %g", a, b)
	}
}

func TestScorer_ChangesWithAxisScore(t *testing.T) {
	base, err := testScorer().Score([]string{"data", "shows"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	shifted := NewScorer(fittedTFIDF(), map[string]float64{"data": 0.2, "shows": 0.3})
	changed, err := shifted.Score([]string{"data", "shows"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if base == changed {
		t.Error("score must change when a constituent token's axis score changes")
	}
}

func TestScorer_SkipsOutOfVocabulary(t *testing.T) {
	s := testScorer()

	// "strongly" has no axis score; it must not affect the weighted average
	with, err := s.Score([]string{"data", "strongly", "strongly"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	// A sentence of only "data" has the same weighted average: one in-vocab
	// token means the score is exactly its axis score.
	if math.Abs(with-0.8) > 1e-12 {
		t.Errorf("Score() = %g, want 0.8 (OOV tokens excluded from denominator)", with)
	}
}

func TestScorer_AllOutOfVocabulary(t *testing.T) {
	s := testScorer()

	_, err := s.Score([]string{"completely", "unknown"})
	if !errors.Is(err, ErrNoVocabulary) {
		t.Errorf("Score() error = %v, want ErrNoVocabulary", err)
	}

	_, err = s.Score(nil)
	if !errors.Is(err, ErrNoVocabulary) {
		t.Errorf("Score(nil) error = %v, want ErrNoVocabulary", err)
	}
}

func TestMinMax_RoundTrip(t *testing.T) {
	m, err := NewMinMax(-0.42, 0.77)
	if err != nil {
		t.Fatalf("NewMinMax() error = %v", err)
	}

	for _, raw := range []float64{-0.42, -0.1, 0, 0.33, 0.77} {
		norm := m.Normalize(raw)
		if norm < 0 || norm > 1 {
			t.Errorf("Normalize(%g) = %g, out of [0,1]", raw, norm)
		}
		back := m.Denormalize(norm)
		if math.Abs(back-raw) > 1e-12 {
			t.Errorf("round-trip of %g = %g", raw, back)
		}
	}
}

func TestMinMax_Degenerate(t *testing.T) {
	if _, err := NewMinMax(0.5, 0.5); err == nil {
		t.Error("NewMinMax() with equal bounds expected error, got nil")
	}
}

func TestBin(t *testing.T) {
	tests := []struct {
		norm float64
		want int
	}{
		{0, 0},
		{0.19, 0},
		{0.2, 1},
		{0.59, 2},
		{0.8, 4},
		{1.0, 4}, // top boundary lands in the last bin
	}

	for _, tt := range tests {
		if got := Bin(tt.norm, 5); got != tt.want {
			t.Errorf("Bin(%g, 5) = %d, want %d", tt.norm, got, tt.want)
		}
	}
}
