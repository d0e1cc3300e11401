package dca

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// FitResult carries the point-estimate parameters of a converged fit along
// with the covariance approximation consumed by Monte Carlo resampling.
type FitResult struct {
	Model      ModelType
	Params     []float64
	Covariance [][]float64
	SSE        float64
	Iterations int
	Restarts   int
	// LowConfidence marks a fit that ran out of iterations before reaching
	// the relative tolerance but still produced a finite solution.
	LowConfidence bool
}

// Fitter performs bounded nonlinear least squares on raw-space residuals
// using Levenberg-Marquardt with a numerical Jacobian. Candidates are
// clipped to the model's parameter bounds each step; a stalled attempt is
// restarted from a randomly perturbed guess up to MaxRestarts times.
type Fitter struct {
	MaxIterations int
	Tolerance     float64
	MaxRestarts   int
}

// NewFitter returns a fitter with the standard budget: 200 iterations,
// relative SSE tolerance 1e-8, 5 restarts.
func NewFitter() *Fitter {
	return &Fitter{MaxIterations: 200, Tolerance: 1e-8, MaxRestarts: 5}
}

// Fit estimates the model parameters for a normalized series. The restart
// perturbations come from a fixed-seed source, so identical inputs yield
// bit-identical results.
func (f *Fitter) Fit(m Model, s *Series) (*FitResult, error) {
	t := make([]float64, len(s.T))
	for i, v := range s.T {
		t[i] = v + m.TimeOffset()
	}
	q := s.Q

	lower, upper := m.Bounds()
	lower, upper = append([]float64(nil), lower...), append([]float64(nil), upper...)
	maxQ := 0.0
	for _, v := range q {
		if v > maxQ {
			maxQ = v
		}
	}
	// Widen the qi ceiling for high-rate wells.
	if 3*maxQ > upper[0] {
		upper[0] = 3 * maxQ
	}

	guess := clampParams(m.InitialGuess(s.T, s.Q), lower, upper)
	rng := rand.New(rand.NewSource(42))

	var best *FitResult
	for attempt := 0; attempt <= f.MaxRestarts; attempt++ {
		p, sse, iters, converged := f.levmar(m, t, q, guess, lower, upper)
		if p != nil {
			res := &FitResult{
				Model:         m.Type(),
				Params:        p,
				SSE:           sse,
				Iterations:    iters,
				Restarts:      attempt,
				LowConfidence: !converged,
			}
			if converged {
				res.Covariance = covariance(m, t, q, p, sse)
				return res, nil
			}
			if best == nil || sse < best.SSE {
				best = res
			}
		}
		guess = perturb(guess, lower, upper, rng)
	}

	if best != nil {
		best.Covariance = covariance(m, t, q, best.Params, best.SSE)
		return best, nil
	}
	return nil, &NonConvergenceError{Model: m.Type(), Attempts: f.MaxRestarts + 1}
}

// levmar runs one Levenberg-Marquardt descent. It returns a nil parameter
// slice when no finite objective was ever reached.
func (f *Fitter) levmar(m Model, t, q, p0, lower, upper []float64) (p []float64, sse float64, iters int, converged bool) {
	n, k := len(q), len(p0)
	p = append([]float64(nil), p0...)
	sse = sumSquares(m, t, q, p)
	if !isFinite(sse) {
		return nil, 0, 0, false
	}

	lambda := 1e-3
	for iters = 1; iters <= f.MaxIterations; iters++ {
		jac := jacobian(m, t, p)
		r := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			r.SetVec(i, q[i]-m.Rate(t[i], p))
		}

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var jtr mat.VecDense
		jtr.MulVec(jac.T(), r)

		damped := mat.DenseCopyOf(&jtj)
		for i := 0; i < k; i++ {
			damped.Set(i, i, jtj.At(i, i)*(1+lambda)+1e-12)
		}

		var delta mat.VecDense
		if err := delta.SolveVec(damped, &jtr); err != nil {
			lambda *= 10
			if lambda > 1e10 {
				return p, sse, iters, false
			}
			continue
		}

		trial := make([]float64, k)
		for i := 0; i < k; i++ {
			trial[i] = p[i] + delta.AtVec(i)
		}
		trial = clampParams(trial, lower, upper)

		trialSSE := sumSquares(m, t, q, trial)
		if isFinite(trialSSE) && trialSSE <= sse {
			rel := (sse - trialSSE) / math.Max(sse, 1e-300)
			p, sse = trial, trialSSE
			lambda = math.Max(lambda/10, 1e-12)
			if rel < f.Tolerance {
				return p, sse, iters, true
			}
		} else {
			lambda *= 10
			if lambda > 1e10 {
				return p, sse, iters, false
			}
		}
	}
	return p, sse, f.MaxIterations, false
}

// jacobian approximates d rate / d param by forward differences.
func jacobian(m Model, t, p []float64) *mat.Dense {
	n, k := len(t), len(p)
	jac := mat.NewDense(n, k, nil)
	base := make([]float64, n)
	for i := 0; i < n; i++ {
		base[i] = m.Rate(t[i], p)
	}
	bumped := append([]float64(nil), p...)
	for j := 0; j < k; j++ {
		h := 1e-6*math.Abs(p[j]) + 1e-10
		bumped[j] = p[j] + h
		for i := 0; i < n; i++ {
			jac.Set(i, j, (m.Rate(t[i], bumped)-base[i])/h)
		}
		bumped[j] = p[j]
	}
	return jac
}

// covariance approximates the parameter covariance as s2 * (JtJ)^-1 with
// s2 the residual variance. A singular JtJ yields a zero matrix; Monte
// Carlo then falls back to fractional parameter spreads.
func covariance(m Model, t, q, p []float64, sse float64) [][]float64 {
	n, k := len(q), len(p)
	jac := jacobian(m, t, p)
	var jtj mat.Dense
	jtj.Mul(jac.T(), jac)

	cov := make([][]float64, k)
	for i := range cov {
		cov[i] = make([]float64, k)
	}

	var inv mat.Dense
	if err := inv.Inverse(&jtj); err != nil {
		return cov
	}

	s2 := sse
	if n > k {
		s2 = sse / float64(n-k)
	}
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			cov[i][j] = s2 * inv.At(i, j)
		}
	}
	return cov
}

func sumSquares(m Model, t, q, p []float64) float64 {
	var sse float64
	for i := range t {
		r := q[i] - m.Rate(t[i], p)
		sse += r * r
	}
	return sse
}

func clampParams(p, lower, upper []float64) []float64 {
	out := append([]float64(nil), p...)
	for i := range out {
		if out[i] < lower[i] {
			out[i] = lower[i]
		}
		if out[i] > upper[i] {
			out[i] = upper[i]
		}
	}
	return out
}

func perturb(p, lower, upper []float64, rng *rand.Rand) []float64 {
	out := make([]float64, len(p))
	for i := range p {
		out[i] = p[i] * (1 + 0.3*(2*rng.Float64()-1))
	}
	return clampParams(out, lower, upper)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
