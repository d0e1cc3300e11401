package dca

import "math"

// Metrics are informational goodness-of-fit figures used to compare model
// variants on the same well. They are not pass/fail gates. Residuals are
// raw-space, matching the least-squares objective.
type Metrics struct {
	RSquared    float64
	AdjRSquared float64
	RMSE        float64
	NRMSE       float64
	MAE         float64
	MAPE        float64
	AIC         float64
	BIC         float64
	// DurbinWatson near 2 indicates uncorrelated residuals; well below 2
	// suggests a systematic misfit.
	DurbinWatson float64
	NPoints      int
	NParams      int
}

// Diagnostics evaluates a fitted model against the observed series.
// AIC and BIC use the Gaussian-residual likelihood with an effective
// parameter count of nParams+1, the extra one for the noise variance.
func Diagnostics(m Model, p []float64, s *Series, nParams int) Metrics {
	n := len(s.Q)
	predicted := make([]float64, n)
	for i := range s.T {
		predicted[i] = m.Rate(s.T[i]+m.TimeOffset(), p)
	}
	return diagnostics(s.Q, predicted, nParams)
}

func diagnostics(observed, predicted []float64, nParams int) Metrics {
	n := len(observed)
	residuals := make([]float64, n)
	var ssRes, mean float64
	for i := range observed {
		residuals[i] = observed[i] - predicted[i]
		ssRes += residuals[i] * residuals[i]
		mean += observed[i]
	}
	mean /= float64(n)

	var ssTot float64
	minQ, maxQ := observed[0], observed[0]
	for _, v := range observed {
		d := v - mean
		ssTot += d * d
		if v < minQ {
			minQ = v
		}
		if v > maxQ {
			maxQ = v
		}
	}

	met := Metrics{NPoints: n, NParams: nParams}

	if ssTot > 0 {
		met.RSquared = 1.0 - ssRes/ssTot
	}
	if n > nParams+1 {
		met.AdjRSquared = 1.0 - (1.0-met.RSquared)*float64(n-1)/float64(n-nParams-1)
	} else {
		met.AdjRSquared = met.RSquared
	}

	met.RMSE = math.Sqrt(ssRes / float64(n))
	if span := maxQ - minQ; span > 0 {
		met.NRMSE = met.RMSE / span
	} else {
		met.NRMSE = math.Inf(1)
	}

	var absSum, pctSum float64
	pctN := 0
	for i, r := range residuals {
		absSum += math.Abs(r)
		if observed[i] != 0 {
			pctSum += math.Abs(r / observed[i])
			pctN++
		}
	}
	met.MAE = absSum / float64(n)
	if pctN > 0 {
		met.MAPE = pctSum / float64(pctN) * 100
	} else {
		met.MAPE = math.Inf(1)
	}

	kEff := float64(nParams + 1)
	if ssRes > 0 {
		logL := -float64(n) / 2 * (math.Log(2*math.Pi) + math.Log(ssRes/float64(n)) + 1)
		met.AIC = -2*logL + 2*kEff
		met.BIC = -2*logL + kEff*math.Log(float64(n))
	} else {
		met.AIC = math.Inf(-1)
		met.BIC = math.Inf(-1)
	}

	if ssRes > 0 && n > 1 {
		var num float64
		for i := 1; i < n; i++ {
			d := residuals[i] - residuals[i-1]
			num += d * d
		}
		met.DurbinWatson = num / ssRes
	} else {
		met.DurbinWatson = 2.0
	}

	return met
}
