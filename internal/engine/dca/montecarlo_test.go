package dca

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monteCarloFixture(t *testing.T) (Model, *FitResult, *Series) {
	t.Helper()
	m, _ := New(Exponential)
	s := syntheticSeries(m, []float64{500.0, 0.08}, 24)
	fit, err := NewFitter().Fit(m, s)
	require.NoError(t, err)
	return m, fit, s
}

func TestRunMonteCarlo(t *testing.T) {
	m, fit, s := monteCarloFixture(t)
	cfg := MonteCarloConfig{
		Iterations: 500,
		Workers:    4,
		Seed:       7,
		Forecast:   ForecastConfig{Months: 240, EconomicLimit: 5.0},
	}

	out, err := RunMonteCarlo(context.Background(), m, fit.Params, fit.Covariance, s.CumToDate, s.LastT, cfg)
	require.NoError(t, err)

	assert.Equal(t, 500, out.Iterations)
	assert.LessOrEqual(t, out.P90, out.P50, "P90 is the conservative low estimate")
	assert.LessOrEqual(t, out.P50, out.P10)
	assert.GreaterOrEqual(t, out.Mean, out.P90)
	assert.LessOrEqual(t, out.Mean, out.P10)
	assert.Greater(t, out.StdDev, 0.0)

	// Every sample includes at least the volume already produced.
	assert.GreaterOrEqual(t, out.P90, s.CumToDate)
}

func TestRunMonteCarloDeterministic(t *testing.T) {
	m, fit, s := monteCarloFixture(t)
	cfg := MonteCarloConfig{
		Iterations: 300,
		Workers:    3,
		Seed:       42,
		Forecast:   ForecastConfig{Months: 240, EconomicLimit: 5.0},
	}

	first, err := RunMonteCarlo(context.Background(), m, fit.Params, fit.Covariance, s.CumToDate, s.LastT, cfg)
	require.NoError(t, err)
	second, err := RunMonteCarlo(context.Background(), m, fit.Params, fit.Covariance, s.CumToDate, s.LastT, cfg)
	require.NoError(t, err)

	assert.Equal(t, first.P10, second.P10)
	assert.Equal(t, first.P50, second.P50)
	assert.Equal(t, first.P90, second.P90)
	assert.Equal(t, first.Mean, second.Mean)
}

func TestRunMonteCarloHistogram(t *testing.T) {
	m, fit, s := monteCarloFixture(t)
	cfg := MonteCarloConfig{
		Iterations: 400,
		Seed:       11,
		Forecast:   ForecastConfig{Months: 240, EconomicLimit: 5.0},
	}

	out, err := RunMonteCarlo(context.Background(), m, fit.Params, fit.Covariance, s.CumToDate, s.LastT, cfg)
	require.NoError(t, err)

	require.Len(t, out.BinEdges, histogramBins+1)
	require.Len(t, out.BinCounts, histogramBins)
	total := 0
	for _, c := range out.BinCounts {
		total += c
	}
	assert.Equal(t, 400, total)
}

func TestRunMonteCarloZeroCovariance(t *testing.T) {
	// A singular fit leaves the covariance at zero; sampling falls back to
	// fractional parameter spreads and must still produce a distribution.
	m, fit, s := monteCarloFixture(t)
	zero := [][]float64{{0, 0}, {0, 0}}
	cfg := MonteCarloConfig{
		Iterations: 200,
		Seed:       5,
		Forecast:   ForecastConfig{Months: 240, EconomicLimit: 5.0},
	}

	out, err := RunMonteCarlo(context.Background(), m, fit.Params, zero, s.CumToDate, s.LastT, cfg)
	require.NoError(t, err)
	assert.Greater(t, out.StdDev, 0.0)
	assert.Less(t, out.P90, out.P10)
}

func TestRunMonteCarloValidation(t *testing.T) {
	m, fit, s := monteCarloFixture(t)

	_, err := RunMonteCarlo(context.Background(), m, fit.Params, fit.Covariance, s.CumToDate, s.LastT, MonteCarloConfig{Iterations: 0})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RunMonteCarlo(ctx, m, fit.Params, fit.Covariance, s.CumToDate, s.LastT, MonteCarloConfig{
		Iterations: 10000,
		Seed:       1,
		Forecast:   ForecastConfig{Months: 240, EconomicLimit: 5.0},
	})
	require.ErrorIs(t, err, context.Canceled)
}
