package scoring

import "fmt"

// MinMax maps raw scores onto [0,1]. The bounds are fit over the full
// corpus and persisted, so normalization is reversible.
type MinMax struct {
	Min float64
	Max float64
}

// NewMinMax validates the bounds
func NewMinMax(min, max float64) (MinMax, error) {
	if max <= min {
		return MinMax{}, fmt.Errorf("degenerate score range [%g, %g]", min, max)
	}
	return MinMax{Min: min, Max: max}, nil
}

// Normalize maps a raw score to [0,1]
func (m MinMax) Normalize(raw float64) float64 {
	return (raw - m.Min) / (m.Max - m.Min)
}

// Denormalize recovers the raw score from a normalized one
func (m MinMax) Denormalize(norm float64) float64 {
	return norm*(m.Max-m.Min) + m.Min
}

// Bin maps a normalized score to one of `bins` equal-width bins over [0,1].
// The top boundary value 1.0 lands in the last bin.
func Bin(norm float64, bins int) int {
	bin := int(norm * float64(bins))
	if bin < 0 {
		bin = 0
	}
	if bin >= bins {
		bin = bins - 1
	}
	return bin
}
