package store

import (
	"math"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testSentence(party, state, district string, congress int, tokens ...string) *Sentence {
	return &Sentence{
		FirstName: "Jane",
		LastName:  "Doe",
		State:     state,
		District:  district,
		Party:     party,
		Congress:  congress,
		Text:      "placeholder text",
		Tokens:    tokens,
	}
}

func TestSentenceStore_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	sentences := NewSentenceStore(db)

	in := testSentence("D", "CA", "12", 117, "data", "research", "hearing")
	if err := sentences.InsertBatch([]*Sentence{in}); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}
	if in.ID == 0 {
		t.Fatal("InsertBatch() did not assign an ID")
	}

	out, err := sentences.GetByIDs([]int64{in.ID})
	if err != nil {
		t.Fatalf("GetByIDs() error = %v", err)
	}
	got := out[0]
	if got.Party != "D" || got.State != "CA" || got.Congress != 117 {
		t.Errorf("round-trip mismatch: got %+v", got)
	}
	if len(got.Tokens) != 3 || got.Tokens[0] != "data" {
		t.Errorf("Tokens = %v, want [data research hearing]", got.Tokens)
	}
	if got.RawScore != nil || got.Bin != nil || got.Split != "" {
		t.Errorf("unscored sentence has score fields set: %+v", got)
	}
}

func TestSentenceStore_ScoresAndBins(t *testing.T) {
	db := openTestDB(t)
	sentences := NewSentenceStore(db)

	batch := []*Sentence{
		testSentence("D", "CA", "12", 117, "a"),
		testSentence("R", "TX", "3", 117, "b"),
		testSentence("D", "NY", "9", 117, "c"),
	}
	if err := sentences.InsertBatch(batch); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}

	ids := []int64{batch[0].ID, batch[1].ID, batch[2].ID}
	raws := []float64{-0.4, 0.1, 0.6}
	if err := sentences.UpdateRawScores(ids, raws); err != nil {
		t.Fatalf("UpdateRawScores() error = %v", err)
	}

	min, max, err := sentences.RawScoreBounds()
	if err != nil {
		t.Fatalf("RawScoreBounds() error = %v", err)
	}
	if min != -0.4 || max != 0.6 {
		t.Errorf("RawScoreBounds() = (%g, %g), want (-0.4, 0.6)", min, max)
	}

	normFn := func(raw float64) float64 { return (raw - min) / (max - min) }
	binFn := func(norm float64) int {
		bin := int(norm * 5)
		if bin > 4 {
			bin = 4
		}
		return bin
	}
	if err := sentences.ApplyNormalization(normFn, binFn); err != nil {
		t.Fatalf("ApplyNormalization() error = %v", err)
	}

	counts, err := sentences.BinCounts()
	if err != nil {
		t.Fatalf("BinCounts() error = %v", err)
	}
	var total int64
	for _, c := range counts {
		total += c
	}
	if total != 3 {
		t.Errorf("binned sentences = %d, want 3", total)
	}
	if counts[4] != 1 {
		t.Errorf("top bin count = %d, want 1 (max score lands in last bin)", counts[4])
	}
}

func TestSentenceStore_Splits(t *testing.T) {
	db := openTestDB(t)
	sentences := NewSentenceStore(db)

	batch := []*Sentence{
		testSentence("D", "CA", "12", 117, "a"),
		testSentence("R", "TX", "3", 117, "b"),
	}
	if err := sentences.InsertBatch(batch); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}

	splits := map[int64]string{
		batch[0].ID: SplitTrain,
		batch[1].ID: SplitTest,
	}
	if err := sentences.AssignSplits(splits); err != nil {
		t.Fatalf("AssignSplits() error = %v", err)
	}

	train, err := sentences.GetBySplit(SplitTrain)
	if err != nil {
		t.Fatalf("GetBySplit() error = %v", err)
	}
	if len(train) != 1 || train[0].ID != batch[0].ID {
		t.Errorf("GetBySplit(train) = %v sentences, want exactly the first", len(train))
	}
}

func TestVectorStore_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	vectors := NewVectorStore(db)

	in := []float32{0.25, -1.5, 3.75}
	err := vectors.InsertBatch([]string{"data"}, [][]float32{in}, []int64{42})
	if err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}

	out, err := vectors.Get("data")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("Get() returned %d dims, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("vector[%d] = %g, want %g", i, out[i], in[i])
		}
	}

	if _, err := vectors.Get("missing"); err == nil {
		t.Error("Get(missing) expected error, got nil")
	}
}

func TestAxisStore_ScoresAndArtifacts(t *testing.T) {
	db := openTestDB(t)
	axis := NewAxisStore(db)

	scores := []TokenScore{
		{Token: "data", Score: 0.8, EvidencePole: true},
		{Token: "feel", Score: -0.6, IntuitionPole: true},
		{Token: "chair", Score: 0.05},
	}
	if err := axis.ReplaceAll(scores); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	all, err := axis.AllScores()
	if err != nil {
		t.Fatalf("AllScores() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("AllScores() returned %d tokens, want 3", len(all))
	}
	if all["data"] != 0.8 {
		t.Errorf("score for data = %g, want 0.8", all["data"])
	}

	ev, in, err := axis.PoleSizes()
	if err != nil {
		t.Fatalf("PoleSizes() error = %v", err)
	}
	if ev != 1 || in != 1 {
		t.Errorf("PoleSizes() = (%d, %d), want (1, 1)", ev, in)
	}

	// Rebuild replaces, never appends
	if err := axis.ReplaceAll(scores[:1]); err != nil {
		t.Fatalf("ReplaceAll() second call error = %v", err)
	}
	all, _ = axis.AllScores()
	if len(all) != 1 {
		t.Errorf("after rebuild AllScores() returned %d tokens, want 1", len(all))
	}

	if err := axis.SaveVectorArtifact(ArtifactAxisVector, []float32{1, 0, -1}); err != nil {
		t.Fatalf("SaveVectorArtifact() error = %v", err)
	}
	vec, err := axis.VectorArtifact(ArtifactAxisVector)
	if err != nil {
		t.Fatalf("VectorArtifact() error = %v", err)
	}
	if len(vec) != 3 || vec[2] != -1 {
		t.Errorf("VectorArtifact() = %v, want [1 0 -1]", vec)
	}

	if err := axis.SaveScalarPair(ArtifactScoreRange, -0.4, 0.6); err != nil {
		t.Fatalf("SaveScalarPair() error = %v", err)
	}
	lo, hi, err := axis.ScalarPair(ArtifactScoreRange)
	if err != nil {
		t.Fatalf("ScalarPair() error = %v", err)
	}
	if lo != -0.4 || hi != 0.6 {
		t.Errorf("ScalarPair() = (%g, %g), want (-0.4, 0.6)", lo, hi)
	}
}

func TestEducationStore_JoinScored(t *testing.T) {
	db := openTestDB(t)
	sentences := NewSentenceStore(db)
	education := NewEducationStore(db)

	matched := testSentence("D", "CA", "12", 117, "a")
	unmatched := testSentence("R", "TX", "3", 117, "b")
	if err := sentences.InsertBatch([]*Sentence{matched, unmatched}); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}
	ids := []int64{matched.ID, unmatched.ID}
	if err := sentences.UpdateRawScores(ids, []float64{0.1, 0.2}); err != nil {
		t.Fatalf("UpdateRawScores() error = %v", err)
	}
	if err := sentences.ApplyNormalization(func(r float64) float64 { return r }, func(float64) int { return 0 }); err != nil {
		t.Fatalf("ApplyNormalization() error = %v", err)
	}

	// Only CA-12 has an education record
	err := education.InsertBatch([]EducationRecord{
		{State: "CA", District: "12", Congress: 117, PctBachelors: 54.2},
	})
	if err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}

	rows, excluded, err := education.JoinScored()
	if err != nil {
		t.Fatalf("JoinScored() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("JoinScored() returned %d rows, want 1", len(rows))
	}
	if excluded != 1 {
		t.Errorf("excluded = %d, want 1 (unmatched sentence must be counted)", excluded)
	}
	if math.Abs(rows[0].PctBachelors-54.2) > 1e-9 {
		t.Errorf("PctBachelors = %g, want 54.2", rows[0].PctBachelors)
	}
}

func TestAnnotationStore_RoundTripAndRange(t *testing.T) {
	db := openTestDB(t)
	annotations := NewAnnotationStore(db)

	in := []Annotation{
		{SentenceID: 1, Scores: [3]int{4, 5, 4}},
		{SentenceID: 2, Scores: [3]int{1, 0, 2}},
	}
	if err := annotations.InsertBatch(in); err != nil {
		t.Fatalf("InsertBatch() error = %v", err)
	}

	out, err := annotations.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("All() returned %d annotations, want 2", len(out))
	}
	if got := out[0].Mean(); math.Abs(got-13.0/3.0) > 1e-9 {
		t.Errorf("Mean() = %g, want %g", got, 13.0/3.0)
	}

	bad := []Annotation{{SentenceID: 3, Scores: [3]int{6, 0, 0}}}
	if err := annotations.InsertBatch(bad); err == nil {
		t.Error("InsertBatch() with out-of-range score expected error, got nil")
	}
}

func TestCheckpointStore_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	checkpoints := NewCheckpointStore(db)

	if _, err := checkpoints.Latest(); err == nil {
		t.Error("Latest() on empty store expected error, got nil")
	}

	testMAE := 0.08
	cp := &Checkpoint{
		EncoderModel: "encoder.onnx",
		Weights:      []float32{0.1, -0.2, 0.3},
		Bias:         0.5,
		Dimension:    3,
		ValMAE:       0.07,
		TestMAE:      &testMAE,
	}
	if _, err := checkpoints.Save(cp); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := checkpoints.Latest()
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got.EncoderModel != "encoder.onnx" || got.Bias != 0.5 || got.Dimension != 3 {
		t.Errorf("Latest() = %+v, round-trip mismatch", got)
	}
	if len(got.Weights) != 3 || got.Weights[1] != -0.2 {
		t.Errorf("Weights = %v, want [0.1 -0.2 0.3]", got.Weights)
	}
	if got.TestMAE == nil || *got.TestMAE != 0.08 {
		t.Errorf("TestMAE = %v, want 0.08", got.TestMAE)
	}
	if got.TestPearson != nil {
		t.Errorf("TestPearson = %v, want nil", got.TestPearson)
	}
}
