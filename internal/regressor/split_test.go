package regressor

import (
	"errors"
	"math"
	"testing"

	"github.com/poliscilab/speechaxis/internal/store"
)

func idRange(start, n int64) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = start + int64(i)
	}
	return ids
}

func TestStratifiedSplit_Proportions(t *testing.T) {
	byBin := map[int][]int64{
		0: idRange(0, 200),
		1: idRange(1000, 400),
		2: idRange(2000, 100),
	}

	splits, err := StratifiedSplit(byBin, 0.70, 0.15, 42)
	if err != nil {
		t.Fatalf("StratifiedSplit() error = %v", err)
	}

	for bin, ids := range byBin {
		counts := map[string]int{}
		for _, id := range ids {
			split, ok := splits[id]
			if !ok {
				t.Fatalf("sentence %d in bin %d has no split", id, bin)
			}
			counts[split]++
		}

		total := float64(len(ids))
		if frac := float64(counts[store.SplitTrain]) / total; math.Abs(frac-0.70) > 0.02 {
			t.Errorf("bin %d train fraction = %g, want 0.70 ± 0.02", bin, frac)
		}
		if frac := float64(counts[store.SplitVal]) / total; math.Abs(frac-0.15) > 0.02 {
			t.Errorf("bin %d val fraction = %g, want 0.15 ± 0.02", bin, frac)
		}
		if frac := float64(counts[store.SplitTest]) / total; math.Abs(frac-0.15) > 0.02 {
			t.Errorf("bin %d test fraction = %g, want 0.15 ± 0.02", bin, frac)
		}
	}
}

func TestStratifiedSplit_Deterministic(t *testing.T) {
	byBin := map[int][]int64{
		0: idRange(0, 50),
		1: idRange(100, 50),
	}

	a, err := StratifiedSplit(byBin, 0.70, 0.15, 7)
	if err != nil {
		t.Fatalf("StratifiedSplit() error = %v", err)
	}
	b, err := StratifiedSplit(byBin, 0.70, 0.15, 7)
	if err != nil {
		t.Fatalf("StratifiedSplit() error = %v", err)
	}

	for id, split := range a {
		if b[id] != split {
			t.Fatalf("sentence %d split differs between runs: %s vs %s", id, split, b[id])
		}
	}
}

func TestStratifiedSplit_SmallBin(t *testing.T) {
	byBin := map[int][]int64{
		0: idRange(0, 100),
		3: {900, 901},
	}

	_, err := StratifiedSplit(byBin, 0.70, 0.15, 1)
	var stratErr *StratificationError
	if !errors.As(err, &stratErr) {
		t.Fatalf("StratifiedSplit() error = %v, want StratificationError", err)
	}
	if stratErr.Bin != 3 || stratErr.Size != 2 {
		t.Errorf("StratificationError = bin %d size %d, want bin 3 size 2", stratErr.Bin, stratErr.Size)
	}
}

func TestStratifiedSplit_TinyBinKeepsAllSplits(t *testing.T) {
	byBin := map[int][]int64{0: idRange(0, 3)}

	splits, err := StratifiedSplit(byBin, 0.70, 0.15, 1)
	if err != nil {
		t.Fatalf("StratifiedSplit() error = %v", err)
	}

	counts := map[string]int{}
	for _, split := range splits {
		counts[split]++
	}
	for _, split := range []string{store.SplitTrain, store.SplitVal, store.SplitTest} {
		if counts[split] != 1 {
			t.Errorf("split %s has %d sentences, want 1", split, counts[split])
		}
	}
}
