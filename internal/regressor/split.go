package regressor

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/poliscilab/speechaxis/internal/store"
)

// StratificationError reports a bin too small to split proportionally.
// The caller decides whether to widen bins or proceed with a caveat;
// fabricating samples is never an option.
type StratificationError struct {
	Bin  int
	Size int
}

func (e *StratificationError) Error() string {
	return fmt.Sprintf("bin %d has only %d sentences, too few for a proportional train/val/test split", e.Bin, e.Size)
}

// StratifiedSplit assigns train/val/test labels per bin so every bin is
// proportionally represented in each split. Deterministic given the seed.
func StratifiedSplit(byBin map[int][]int64, trainFrac, valFrac float64, seed int64) (map[int64]string, error) {
	bins := make([]int, 0, len(byBin))
	for bin := range byBin {
		bins = append(bins, bin)
	}
	sort.Ints(bins)

	rng := rand.New(rand.NewSource(seed))
	splits := make(map[int64]string)

	for _, bin := range bins {
		ids := byBin[bin]
		if len(ids) < 3 {
			return nil, &StratificationError{Bin: bin, Size: len(ids)}
		}

		shuffled := make([]int64, len(ids))
		copy(shuffled, ids)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		nTrain := int(float64(len(shuffled))*trainFrac + 0.5)
		nVal := int(float64(len(shuffled))*valFrac + 0.5)
		if nTrain < 1 {
			nTrain = 1
		}
		if nVal < 1 {
			nVal = 1
		}
		if nTrain+nVal >= len(shuffled) {
			nTrain = len(shuffled) - 2
			nVal = 1
		}

		for i, id := range shuffled {
			switch {
			case i < nTrain:
				splits[id] = store.SplitTrain
			case i < nTrain+nVal:
				splits[id] = store.SplitVal
			default:
				splits[id] = store.SplitTest
			}
		}
	}

	return splits, nil
}
