package dca

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MonteCarloConfig controls the stochastic EUR estimation. Iterations must
// be positive; Workers defaults to the number of CPUs; Seed makes the run
// reproducible for a fixed worker count.
type MonteCarloConfig struct {
	Iterations int
	Workers    int
	Seed       uint64
	Forecast   ForecastConfig
}

// MonteCarloOutcome is the reduced EUR distribution. P90 is the value at
// the 10th percentile of the ascending EURs and P10 the value at the 90th:
// P90 means "90% probability of exceeding", the conservative low tail.
type MonteCarloOutcome struct {
	P10        float64
	P50        float64
	P90        float64
	Mean       float64
	StdDev     float64
	Iterations int
	BinEdges   []float64
	BinCounts  []int
}

const histogramBins = 30

// RunMonteCarlo perturbs the fitted parameters with independent truncated
// normal draws, sigma taken from the covariance diagonal, and re-runs the
// forecast and reserves aggregation per draw. Iterations are independent,
// so the loop fans out across workers and only the final reduction is
// ordered. Cancellation is honored between iterations.
func RunMonteCarlo(ctx context.Context, m Model, params []float64, cov [][]float64, cumAtStart, lastObservedT float64, cfg MonteCarloConfig) (*MonteCarloOutcome, error) {
	if cfg.Iterations <= 0 {
		return nil, fmt.Errorf("monte carlo iterations must be positive, got %d", cfg.Iterations)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > cfg.Iterations {
		workers = cfg.Iterations
	}

	sigma := sampleSigmas(params, cov)
	lower, upper := m.Bounds()

	eurs := make([]float64, cfg.Iterations)
	chunk := (cfg.Iterations + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > cfg.Iterations {
			end = cfg.Iterations
		}
		if start >= end {
			break
		}
		src := rand.NewSource(cfg.Seed + uint64(w)*0x9e3779b9)
		g.Go(func() error {
			draw := make([]float64, len(params))
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				for j := range params {
					draw[j] = truncatedNormal(params[j], sigma[j], lower[j], upper[j], src)
				}
				eurs[i] = sampleEUR(m, draw, cumAtStart, lastObservedT, cfg.Forecast)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Float64s(eurs)
	out := &MonteCarloOutcome{
		P90:        stat.Quantile(0.10, stat.Empirical, eurs, nil),
		P50:        stat.Quantile(0.50, stat.Empirical, eurs, nil),
		P10:        stat.Quantile(0.90, stat.Empirical, eurs, nil),
		Mean:       stat.Mean(eurs, nil),
		StdDev:     stat.StdDev(eurs, nil),
		Iterations: cfg.Iterations,
	}
	out.BinEdges, out.BinCounts = histogram(eurs)
	return out, nil
}

// sampleEUR runs one forecast for a perturbed parameter set. A degenerate
// draw that breaks the forecast contributes only the produced-to-date
// volume rather than poisoning the whole distribution.
func sampleEUR(m Model, p []float64, cumAtStart, lastObservedT float64, fc ForecastConfig) float64 {
	forecast, err := GenerateForecast(m, p, lastObservedT, fc)
	if err != nil {
		return cumAtStart
	}
	res, err := AggregateReserves(cumAtStart, forecast.CumulativeVolume)
	if err != nil {
		return cumAtStart
	}
	return res.EUR
}

// sampleSigmas reads the covariance diagonal, substituting a 5% fractional
// spread for entries a singular fit left at zero.
func sampleSigmas(params []float64, cov [][]float64) []float64 {
	sigma := make([]float64, len(params))
	for j := range params {
		var v float64
		if j < len(cov) && j < len(cov[j]) {
			v = cov[j][j]
		}
		if isFinite(v) && v > 0 {
			sigma[j] = math.Sqrt(v)
		} else {
			sigma[j] = 0.05 * math.Abs(params[j])
		}
	}
	return sigma
}

// truncatedNormal draws from N(mu, sigma) restricted to [lo, hi] by
// rejection, clamping after 32 misses.
func truncatedNormal(mu, sigma, lo, hi float64, src rand.Source) float64 {
	if sigma <= 0 {
		return math.Min(math.Max(mu, lo), hi)
	}
	dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: src}
	for i := 0; i < 32; i++ {
		v := dist.Rand()
		if v >= lo && v <= hi {
			return v
		}
	}
	return math.Min(math.Max(mu, lo), hi)
}

func histogram(sorted []float64) ([]float64, []int) {
	if len(sorted) == 0 {
		return nil, nil
	}
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if hi <= lo {
		return nil, nil
	}
	width := (hi - lo) / histogramBins
	edges := make([]float64, histogramBins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	counts := make([]int, histogramBins)
	for _, v := range sorted {
		idx := int((v - lo) / width)
		if idx >= histogramBins {
			idx = histogramBins - 1
		}
		counts[idx]++
	}
	return edges, counts
}
