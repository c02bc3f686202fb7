package hierarch

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// varianceFloor keeps the random-effect precisions finite when a component
// collapses toward zero
const varianceFloor = 1e-10

// EMEngine fits the nested random-intercept model by expectation
// maximization, treating the party and representative intercepts as
// missing data.
type EMEngine struct {
	MaxIter int
	Tol     float64
}

// NewEMEngine returns an engine with default convergence settings
func NewEMEngine() *EMEngine {
	return &EMEngine{MaxIter: 500, Tol: 1e-7}
}

type repGroup struct {
	name string
	obs  []int
	sumX float64
}

type partyGroup struct {
	name string
	reps []*repGroup
	n    int
	sumX float64
}

// Fit estimates y = b0 + b1*education + u_party + u_rep(party) + e.
// Wald statistics for the fixed effects use the GLS covariance at the
// converged variance components.
func (e *EMEngine) Fit(ctx context.Context, observations []Observation) (*Fit, error) {
	if len(observations) < 3 {
		return nil, fmt.Errorf("need at least 3 observations, have %d", len(observations))
	}

	parties, nReps := groupObservations(observations)
	if len(parties) < 1 {
		return nil, fmt.Errorf("no party groups")
	}

	y := make([]float64, len(observations))
	x := make([]float64, len(observations))
	for i, obs := range observations {
		y[i] = obs.Score
		x[i] = obs.Education
	}

	b0, b1, err := ols(y, x)
	if err != nil {
		return nil, err
	}

	var s2 float64
	for i := range y {
		r := y[i] - b0 - b1*x[i]
		s2 += r * r
	}
	s2 /= float64(len(y))
	if s2 < varianceFloor {
		s2 = varianceFloor
	}

	varParty := s2 / 4
	varRep := s2 / 4
	varResid := s2 / 2

	ranef := make([]float64, len(observations))
	residual := make([]float64, len(observations))
	converged := false
	iterations := 0

	for iter := 1; iter <= e.MaxIter; iter++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		iterations = iter

		for i := range residual {
			residual[i] = y[i] - b0 - b1*x[i]
		}

		var sumParty, sumRep, sumErr float64
		for _, party := range parties {
			cov, mu, err := posterior(party, residual, varParty, varRep, varResid)
			if err != nil {
				return nil, err
			}

			sumParty += mu[0]*mu[0] + cov.At(0, 0)
			for k, rep := range party.reps {
				sumRep += mu[k+1]*mu[k+1] + cov.At(k+1, k+1)
				predVar := cov.At(0, 0) + cov.At(k+1, k+1) + 2*cov.At(0, k+1)
				for _, i := range rep.obs {
					ranef[i] = mu[0] + mu[k+1]
					diff := residual[i] - ranef[i]
					sumErr += diff*diff + predVar
				}
			}
		}

		newVarParty := math.Max(sumParty/float64(len(parties)), varianceFloor)
		newVarRep := math.Max(sumRep/float64(nReps), varianceFloor)
		newVarResid := math.Max(sumErr/float64(len(observations)), varianceFloor)

		adjusted := make([]float64, len(y))
		for i := range y {
			adjusted[i] = y[i] - ranef[i]
		}
		newB0, newB1, err := ols(adjusted, x)
		if err != nil {
			return nil, err
		}

		delta := math.Max(math.Abs(newVarParty-varParty),
			math.Max(math.Abs(newVarRep-varRep),
				math.Max(math.Abs(newVarResid-varResid),
					math.Max(math.Abs(newB0-b0), math.Abs(newB1-b1)))))

		varParty, varRep, varResid = newVarParty, newVarRep, newVarResid
		b0, b1 = newB0, newB1

		if delta < e.Tol {
			converged = true
			break
		}
	}

	for i := range residual {
		residual[i] = y[i] - b0 - b1*x[i]
	}

	covBeta, logLik, err := waldCovariance(parties, x, residual, varParty, varRep, varResid)
	if err != nil {
		return nil, err
	}

	total := varParty + varRep + varResid
	normal := distuv.Normal{Mu: 0, Sigma: 1}
	wald := func(name string, estimate, variance float64) FixedEffect {
		se := math.Sqrt(variance)
		z := estimate / se
		return FixedEffect{
			Name:     name,
			Estimate: estimate,
			StdErr:   se,
			Z:        z,
			P:        2 * normal.CDF(-math.Abs(z)),
		}
	}

	return &Fit{
		Intercept: wald("intercept", b0, covBeta.At(0, 0)),
		Education: wald("education", b1, covBeta.At(1, 1)),
		Components: []VarianceComponent{
			{Level: "party", Variance: varParty, Share: varParty / total},
			{Level: "representative", Variance: varRep, Share: varRep / total},
			{Level: "residual", Variance: varResid, Share: varResid / total},
		},
		LogLik:          logLik,
		Iterations:      iterations,
		Converged:       converged,
		Observations:    len(observations),
		Parties:         len(parties),
		Representatives: nReps,
	}, nil
}

// groupObservations builds the nested party/representative grouping in
// deterministic order
func groupObservations(observations []Observation) ([]*partyGroup, int) {
	byParty := map[string]map[string]*repGroup{}
	for i, obs := range observations {
		reps, ok := byParty[obs.Party]
		if !ok {
			reps = map[string]*repGroup{}
			byParty[obs.Party] = reps
		}
		rep, ok := reps[obs.Speaker]
		if !ok {
			rep = &repGroup{name: obs.Speaker}
			reps[obs.Speaker] = rep
		}
		rep.obs = append(rep.obs, i)
		rep.sumX += obs.Education
	}

	names := make([]string, 0, len(byParty))
	for name := range byParty {
		names = append(names, name)
	}
	sort.Strings(names)

	parties := make([]*partyGroup, 0, len(names))
	nReps := 0
	for _, name := range names {
		party := &partyGroup{name: name}
		repNames := make([]string, 0, len(byParty[name]))
		for repName := range byParty[name] {
			repNames = append(repNames, repName)
		}
		sort.Strings(repNames)
		for _, repName := range repNames {
			rep := byParty[name][repName]
			party.reps = append(party.reps, rep)
			party.n += len(rep.obs)
			party.sumX += rep.sumX
		}
		nReps += len(party.reps)
		parties = append(parties, party)
	}
	return parties, nReps
}

// posterior returns the conditional covariance and mean of one party's
// random-effect block (party intercept first, then its representatives)
// given the fixed-effect residuals
func posterior(party *partyGroup, residual []float64, varParty, varRep, varResid float64) (*mat.Dense, []float64, error) {
	dim := len(party.reps) + 1
	precision := mat.NewDense(dim, dim, nil)
	t := make([]float64, dim)

	precision.Set(0, 0, float64(party.n)/varResid+1/varParty)
	for k, rep := range party.reps {
		nk := float64(len(rep.obs))
		precision.Set(0, k+1, nk/varResid)
		precision.Set(k+1, 0, nk/varResid)
		precision.Set(k+1, k+1, nk/varResid+1/varRep)

		var sum float64
		for _, i := range rep.obs {
			sum += residual[i]
		}
		t[k+1] = sum / varResid
		t[0] += sum / varResid
	}

	var cov mat.Dense
	if err := cov.Inverse(precision); err != nil {
		return nil, nil, fmt.Errorf("failed to invert random-effect precision for party %s: %w", party.name, err)
	}

	mu := make([]float64, dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			mu[i] += cov.At(i, j) * t[j]
		}
	}
	return &cov, mu, nil
}

// waldCovariance computes the GLS covariance of the fixed effects and the
// marginal log-likelihood at the converged variance components. The
// per-party Woodbury identity keeps every inversion at the size of one
// party's random-effect block.
func waldCovariance(parties []*partyGroup, x, residual []float64, varParty, varRep, varResid float64) (*mat.Dense, float64, error) {
	xtvx := mat.NewDense(2, 2, nil)
	logLik := 0.0

	for _, party := range parties {
		dim := len(party.reps) + 1
		cov, _, err := posterior(party, residual, varParty, varRep, varResid)
		if err != nil {
			return nil, 0, err
		}

		// X'Z and X'X restricted to this party's observations
		xz := mat.NewDense(2, dim, nil)
		xz.Set(0, 0, float64(party.n))
		xz.Set(1, 0, party.sumX)
		xx := mat.NewDense(2, 2, nil)
		var rr float64
		t := make([]float64, dim)
		for k, rep := range party.reps {
			xz.Set(0, k+1, float64(len(rep.obs)))
			xz.Set(1, k+1, rep.sumX)
			var sum float64
			for _, i := range rep.obs {
				sum += residual[i]
				rr += residual[i] * residual[i]
				xx.Set(0, 0, xx.At(0, 0)+1)
				xx.Set(0, 1, xx.At(0, 1)+x[i])
				xx.Set(1, 0, xx.At(1, 0)+x[i])
				xx.Set(1, 1, xx.At(1, 1)+x[i]*x[i])
			}
			t[k+1] = sum / varResid
			t[0] += sum / varResid
		}

		var zcov, contrib mat.Dense
		zcov.Mul(xz, cov)
		contrib.Mul(&zcov, xz.T())
		contrib.Scale(1/varResid, &contrib)
		contrib.Sub(xx, &contrib)
		contrib.Scale(1/varResid, &contrib)
		xtvx.Add(xtvx, &contrib)

		// Marginal likelihood via the determinant lemma
		precision := mat.NewDense(dim, dim, nil)
		if err := precision.Inverse(cov); err != nil {
			return nil, 0, fmt.Errorf("failed to recover precision for party %s: %w", party.name, err)
		}
		logDetA, sign := mat.LogDet(precision)
		if sign < 0 {
			return nil, 0, fmt.Errorf("random-effect precision for party %s is not positive definite", party.name)
		}
		logDetV := float64(party.n)*math.Log(varResid) +
			math.Log(varParty) + float64(len(party.reps))*math.Log(varRep) +
			logDetA

		var quad float64
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				quad += t[i] * cov.At(i, j) * t[j]
			}
		}
		logLik += -0.5 * (float64(party.n)*math.Log(2*math.Pi) + logDetV + rr/varResid - quad)
	}

	var covBeta mat.Dense
	if err := covBeta.Inverse(xtvx); err != nil {
		return nil, 0, fmt.Errorf("failed to invert fixed-effect information: %w", err)
	}
	return &covBeta, logLik, nil
}

// ols solves the two-parameter least squares y = b0 + b1*x
func ols(y, x []float64) (float64, float64, error) {
	n := float64(len(y))
	var sx, sxx, sy, sxy float64
	for i := range y {
		sx += x[i]
		sxx += x[i] * x[i]
		sy += y[i]
		sxy += x[i] * y[i]
	}

	denom := n*sxx - sx*sx
	if math.Abs(denom) < 1e-12 {
		return 0, 0, fmt.Errorf("education has no variance across observations")
	}
	b1 := (n*sxy - sx*sy) / denom
	b0 := (sy - b1*sx) / n
	return b0, b1, nil
}
