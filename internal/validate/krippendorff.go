package validate

import (
	"fmt"
	"sort"
)

// OrdinalAlpha computes Krippendorff's alpha for ordinal annotations.
// Each unit is the set of scores one sentence received; every unit needs
// at least two scores. Returns 1 under perfect agreement.
func OrdinalAlpha(units [][]int) (float64, error) {
	if len(units) == 0 {
		return 0, fmt.Errorf("no annotation units")
	}

	// Coincidence matrix over observed score values
	values := map[int]bool{}
	for i, unit := range units {
		if len(unit) < 2 {
			return 0, fmt.Errorf("unit %d has %d scores, need at least 2", i, len(unit))
		}
		for _, v := range unit {
			values[v] = true
		}
	}

	domain := make([]int, 0, len(values))
	for v := range values {
		domain = append(domain, v)
	}
	sort.Ints(domain)
	index := make(map[int]int, len(domain))
	for i, v := range domain {
		index[v] = i
	}

	k := len(domain)
	coincidence := make([][]float64, k)
	for i := range coincidence {
		coincidence[i] = make([]float64, k)
	}
	for _, unit := range units {
		m := float64(len(unit))
		for _, a := range unit {
			for _, b := range unit {
				if a == b {
					continue
				}
				coincidence[index[a]][index[b]] += 1 / (m - 1)
			}
		}
		// Equal-value pairs
		counts := map[int]int{}
		for _, v := range unit {
			counts[v]++
		}
		for value, count := range counts {
			if count > 1 {
				coincidence[index[value]][index[value]] += float64(count*(count-1)) / (m - 1)
			}
		}
	}

	marginals := make([]float64, k)
	var total float64
	for i := range coincidence {
		for j := range coincidence[i] {
			marginals[i] += coincidence[i][j]
		}
		total += marginals[i]
	}
	if total <= 1 {
		return 0, fmt.Errorf("too few paired scores to estimate agreement")
	}

	// Ordinal distance: squared difference of cumulative marginal positions
	delta := func(c, d int) float64 {
		if c > d {
			c, d = d, c
		}
		var dist float64
		for g := c; g <= d; g++ {
			dist += marginals[g]
		}
		dist -= (marginals[c] + marginals[d]) / 2
		return dist * dist
	}

	var observed, expected float64
	for c := 0; c < k; c++ {
		for d := c + 1; d < k; d++ {
			observed += coincidence[c][d] * delta(c, d)
			expected += marginals[c] * marginals[d] * delta(c, d)
		}
	}
	expected /= total - 1

	if expected == 0 {
		// Every score identical: no disagreement is possible or observed
		return 1, nil
	}
	return 1 - observed/expected, nil
}
