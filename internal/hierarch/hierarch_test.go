package hierarch

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"testing"
)

// synthetic builds nested data with known variance components. Education
// varies within representative so the fixed effect is identifiable.
func synthetic(nParties, repsPerParty, obsPerRep int, sdParty, sdRep, sdResid, b0, b1 float64, seed int64) []Observation {
	rng := rand.New(rand.NewSource(seed))
	var observations []Observation

	for p := 0; p < nParties; p++ {
		uParty := rng.NormFloat64() * sdParty
		for r := 0; r < repsPerParty; r++ {
			uRep := rng.NormFloat64() * sdRep
			speaker := fmt.Sprintf("p%d-rep%d", p, r)
			for i := 0; i < obsPerRep; i++ {
				x := rng.Float64()
				observations = append(observations, Observation{
					Score:     b0 + b1*x + uParty + uRep + rng.NormFloat64()*sdResid,
					Education: x,
					Party:     fmt.Sprintf("party%d", p),
					Speaker:   speaker,
				})
			}
		}
	}
	return observations
}

func TestEMEngine_RecoversComponents(t *testing.T) {
	// True shares: party 0.05/0.08, rep 0.02/0.08, residual 0.01/0.08
	observations := synthetic(12, 6, 25, math.Sqrt(0.05), math.Sqrt(0.02), math.Sqrt(0.01), 0.2, 0.5, 31)

	fit, err := NewEMEngine().Fit(context.Background(), observations)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if !fit.Converged {
		t.Errorf("Fit() did not converge in %d iterations", fit.Iterations)
	}
	if fit.Parties != 12 || fit.Representatives != 72 {
		t.Errorf("grouping = %d parties, %d representatives, want 12 and 72", fit.Parties, fit.Representatives)
	}

	if math.Abs(fit.Education.Estimate-0.5) > 0.1 {
		t.Errorf("education estimate = %g, want 0.5 ± 0.1", fit.Education.Estimate)
	}
	if fit.Education.P > 0.01 {
		t.Errorf("education p = %g, want under 0.01 for a strong true effect", fit.Education.P)
	}

	wantShares := map[string]float64{"party": 0.625, "representative": 0.25, "residual": 0.125}
	var totalShare float64
	for _, comp := range fit.Components {
		totalShare += comp.Share
		if comp.Variance <= 0 {
			t.Errorf("component %s variance = %g, want positive", comp.Level, comp.Variance)
		}
		if want := wantShares[comp.Level]; math.Abs(comp.Share-want) > 0.25 {
			t.Errorf("component %s share = %g, want %g ± 0.25", comp.Level, comp.Share, want)
		}
	}
	if math.Abs(totalShare-1) > 1e-9 {
		t.Errorf("variance shares sum to %g, want 1", totalShare)
	}
}

func TestEMEngine_ZeroPartyVariance(t *testing.T) {
	observations := synthetic(4, 10, 30, 0, math.Sqrt(0.02), math.Sqrt(0.01), 0.3, 0.2, 17)

	// Force identical party means so all between-party variance is zero
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, obs := range observations {
		sums[obs.Party] += obs.Score
		counts[obs.Party]++
	}
	for i := range observations {
		party := observations[i].Party
		observations[i].Score -= sums[party] / float64(counts[party])
	}

	fit, err := NewEMEngine().Fit(context.Background(), observations)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	for _, comp := range fit.Components {
		if comp.Level == "party" && comp.Share > 0.05 {
			t.Errorf("party share = %g with identical party means, want near 0", comp.Share)
		}
	}
}

func TestEMEngine_AlwaysReportsDecomposition(t *testing.T) {
	// Education has no effect; the decomposition must still be complete
	observations := synthetic(6, 5, 20, math.Sqrt(0.03), math.Sqrt(0.01), math.Sqrt(0.02), 0.4, 0, 23)

	fit, err := NewEMEngine().Fit(context.Background(), observations)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if len(fit.Components) != 3 {
		t.Fatalf("got %d variance components, want 3", len(fit.Components))
	}
	levels := map[string]bool{}
	for _, comp := range fit.Components {
		levels[comp.Level] = true
	}
	for _, level := range []string{"party", "representative", "residual"} {
		if !levels[level] {
			t.Errorf("missing variance component for level %s", level)
		}
	}
}

func TestEMEngine_Deterministic(t *testing.T) {
	observations := synthetic(3, 4, 10, 0.1, 0.1, 0.1, 0.2, 0.3, 5)

	a, err := NewEMEngine().Fit(context.Background(), observations)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	b, err := NewEMEngine().Fit(context.Background(), observations)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	if a.Education.Estimate != b.Education.Estimate {
		t.Errorf("education estimate differs between runs: %g vs %g", a.Education.Estimate, b.Education.Estimate)
	}
	for i := range a.Components {
		if a.Components[i].Variance != b.Components[i].Variance {
			t.Errorf("component %s variance differs between runs", a.Components[i].Level)
		}
	}
}

func TestEMEngine_Errors(t *testing.T) {
	if _, err := NewEMEngine().Fit(context.Background(), nil); err == nil {
		t.Error("Fit() with no observations expected error, got nil")
	}

	flat := []Observation{
		{Score: 0.1, Education: 0.3, Party: "D", Speaker: "a"},
		{Score: 0.2, Education: 0.3, Party: "D", Speaker: "b"},
		{Score: 0.3, Education: 0.3, Party: "R", Speaker: "c"},
		{Score: 0.4, Education: 0.3, Party: "R", Speaker: "d"},
	}
	if _, err := NewEMEngine().Fit(context.Background(), flat); err == nil {
		t.Error("Fit() with constant education expected error, got nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	observations := synthetic(3, 4, 10, 0.1, 0.1, 0.1, 0.2, 0.3, 5)
	if _, err := NewEMEngine().Fit(ctx, observations); err == nil {
		t.Error("Fit() with cancelled context expected error, got nil")
	}
}

func TestWriteReports(t *testing.T) {
	observations := synthetic(4, 5, 15, 0.1, 0.1, 0.1, 0.2, 0.3, 13)
	fit, err := NewEMEngine().Fit(context.Background(), observations)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	fits := []SystemFit{{System: "semaxis", Fit: fit}, {System: "model", Fit: fit}}

	var coef bytes.Buffer
	if err := WriteCoefficients(&coef, fits); err != nil {
		t.Fatalf("WriteCoefficients() error = %v", err)
	}
	rows, err := csv.NewReader(&coef).ReadAll()
	if err != nil {
		t.Fatalf("coefficient CSV is malformed: %v", err)
	}
	// Header plus intercept and education for each system
	if len(rows) != 5 {
		t.Fatalf("coefficient CSV has %d rows, want 5", len(rows))
	}
	if got := strings.Join(rows[0], ","); got != "system,term,estimate,std_err,z,p" {
		t.Errorf("coefficient header = %q", got)
	}
	if _, err := strconv.ParseFloat(rows[1][2], 64); err != nil {
		t.Errorf("coefficient estimate %q does not parse: %v", rows[1][2], err)
	}

	var vd bytes.Buffer
	if err := WriteVarianceDecomposition(&vd, fits); err != nil {
		t.Fatalf("WriteVarianceDecomposition() error = %v", err)
	}
	rows, err = csv.NewReader(&vd).ReadAll()
	if err != nil {
		t.Fatalf("variance CSV is malformed: %v", err)
	}
	// Header plus three levels for each system
	if len(rows) != 7 {
		t.Fatalf("variance CSV has %d rows, want 7", len(rows))
	}
	var share float64
	for _, row := range rows[1:4] {
		v, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			t.Fatalf("share %q does not parse: %v", row[3], err)
		}
		share += v
	}
	if math.Abs(share-1) > 1e-6 {
		t.Errorf("semaxis shares sum to %g, want 1", share)
	}
}
