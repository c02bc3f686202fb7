package hierarch

import "context"

// Observation is one scored sentence joined to its speaker and district
// education level
type Observation struct {
	Score     float64
	Education float64
	Party     string
	Speaker   string
}

// FixedEffect is one population-level coefficient with its Wald statistics
type FixedEffect struct {
	Name     string
	Estimate float64
	StdErr   float64
	Z        float64
	P        float64
}

// VarianceComponent is one level of the variance decomposition. Share is
// the intraclass correlation: this level's fraction of total variance.
type VarianceComponent struct {
	Level    string
	Variance float64
	Share    float64
}

// Fit is a fitted mixed-effects model: score on education with random
// intercepts for party and representative within party. The variance
// decomposition is a primary output and is always populated, whether or
// not the fixed effect reaches significance.
type Fit struct {
	Intercept       FixedEffect
	Education       FixedEffect
	Components      []VarianceComponent
	LogLik          float64
	Iterations      int
	Converged       bool
	Observations    int
	Parties         int
	Representatives int
}

// Engine fits the mixed-effects model. Implementations are swappable so
// the EM fitter can be replaced without touching the analysis pipeline.
type Engine interface {
	Fit(ctx context.Context, observations []Observation) (*Fit, error)
}
