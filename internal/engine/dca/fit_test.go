package dca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticSeries evaluates a model on a monthly grid, producing the exact
// series the fitter should recover the parameters from.
func syntheticSeries(m Model, p []float64, n int) *Series {
	s := &Series{}
	for i := 0; i < n; i++ {
		t := float64(i)
		s.T = append(s.T, t)
		s.Q = append(s.Q, m.Rate(t+m.TimeOffset(), p))
		s.LastT = t
	}
	return s
}

func TestFitExponentialRecovery(t *testing.T) {
	m, _ := New(Exponential)
	truth := []float64{500.0, 0.08}
	s := syntheticSeries(m, truth, 24)

	fit, err := NewFitter().Fit(m, s)
	require.NoError(t, err)

	assert.Equal(t, Exponential, fit.Model)
	assert.InEpsilon(t, truth[0], fit.Params[0], 0.01)
	assert.InEpsilon(t, truth[1], fit.Params[1], 0.01)
	assert.False(t, fit.LowConfidence)
	assert.Less(t, fit.SSE, 1e-3)
}

func TestFitHyperbolicRecovery(t *testing.T) {
	m, _ := New(Hyperbolic)
	// A well declining from 1000 to roughly 100 bbl/d over two years.
	truth := []float64{1000.0, 0.216, 0.6}
	s := syntheticSeries(m, truth, 24)

	fit, err := NewFitter().Fit(m, s)
	require.NoError(t, err)

	assert.InEpsilon(t, truth[0], fit.Params[0], 0.05)
	assert.InEpsilon(t, truth[1], fit.Params[1], 0.10)
	assert.InDelta(t, truth[2], fit.Params[2], 0.10)

	metrics := Diagnostics(m, fit.Params, s, len(fit.Params))
	assert.Greater(t, metrics.RSquared, 0.99)
}

func TestFitHarmonicRecovery(t *testing.T) {
	m, _ := New(Harmonic)
	truth := []float64{750.0, 0.12}
	s := syntheticSeries(m, truth, 18)

	fit, err := NewFitter().Fit(m, s)
	require.NoError(t, err)
	assert.InEpsilon(t, truth[0], fit.Params[0], 0.01)
	assert.InEpsilon(t, truth[1], fit.Params[1], 0.02)
}

func TestFitIsDeterministic(t *testing.T) {
	m, _ := New(Hyperbolic)
	s := syntheticSeries(m, []float64{1000.0, 0.216, 0.6}, 24)

	first, err := NewFitter().Fit(m, s)
	require.NoError(t, err)
	second, err := NewFitter().Fit(m, s)
	require.NoError(t, err)

	assert.Equal(t, first.Params, second.Params)
	assert.Equal(t, first.SSE, second.SSE)
	assert.Equal(t, first.Iterations, second.Iterations)
}

func TestFitRespectsBounds(t *testing.T) {
	m, _ := New(Hyperbolic)
	s := syntheticSeries(m, []float64{1000.0, 0.216, 0.6}, 24)

	fit, err := NewFitter().Fit(m, s)
	require.NoError(t, err)

	lower, upper := m.Bounds()
	for i, v := range fit.Params {
		assert.GreaterOrEqual(t, v, lower[i])
		// The qi ceiling is widened to three times the peak rate.
		if i == 0 {
			assert.LessOrEqual(t, v, 3*1000.0)
		} else {
			assert.LessOrEqual(t, v, upper[i])
		}
	}
}

func TestFitCovariance(t *testing.T) {
	m, _ := New(Exponential)
	s := syntheticSeries(m, []float64{500.0, 0.08}, 24)

	fit, err := NewFitter().Fit(m, s)
	require.NoError(t, err)

	require.Len(t, fit.Covariance, 2)
	for i, row := range fit.Covariance {
		require.Len(t, row, 2)
		assert.GreaterOrEqual(t, row[i], 0.0, "variance diagonal")
	}
	// Symmetry of s2*(JtJ)^-1.
	assert.InDelta(t, fit.Covariance[0][1], fit.Covariance[1][0], 1e-12)
}

func TestFitDuongRecovery(t *testing.T) {
	m, _ := New(Duong)
	truth := []float64{2000.0, 1.4, 1.25}
	s := syntheticSeries(m, truth, 30)

	fit, err := NewFitter().Fit(m, s)
	require.NoError(t, err)

	metrics := Diagnostics(m, fit.Params, s, len(fit.Params))
	assert.Greater(t, metrics.RSquared, 0.99)
}
