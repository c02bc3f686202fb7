package hierarch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// SystemFit pairs a fitted model with the scoring system that produced its
// outcome variable ("semaxis" or "model")
type SystemFit struct {
	System string
	Fit    *Fit
}

// WriteCoefficients writes the fixed-effect table as CSV for the plotting
// collaborator
func WriteCoefficients(w io.Writer, fits []SystemFit) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"system", "term", "estimate", "std_err", "z", "p"}); err != nil {
		return fmt.Errorf("failed to write coefficient header: %w", err)
	}

	for _, sf := range fits {
		for _, effect := range []FixedEffect{sf.Fit.Intercept, sf.Fit.Education} {
			row := []string{
				sf.System,
				effect.Name,
				formatFloat(effect.Estimate),
				formatFloat(effect.StdErr),
				formatFloat(effect.Z),
				formatFloat(effect.P),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write coefficient row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteVarianceDecomposition writes the variance-component table as CSV.
// Every level appears for every system regardless of fixed-effect
// significance.
func WriteVarianceDecomposition(w io.Writer, fits []SystemFit) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"system", "level", "variance", "share"}); err != nil {
		return fmt.Errorf("failed to write variance header: %w", err)
	}

	for _, sf := range fits {
		for _, comp := range sf.Fit.Components {
			row := []string{
				sf.System,
				comp.Level,
				formatFloat(comp.Variance),
				formatFloat(comp.Share),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write variance row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}
