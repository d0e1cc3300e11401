package dca

// Reserves combines the history with the forecast: EUR is the cumulative
// already produced plus the forecast-period volume.
type Reserves struct {
	EUR                float64
	RemainingReserves  float64
	CumAtForecastStart float64
}

// AggregateReserves is a pure function of its two inputs; its only failure
// mode is propagating a non-finite value.
func AggregateReserves(cumAtStart, forecastVolume float64) (Reserves, error) {
	if !isFinite(cumAtStart) {
		return Reserves{}, &ComputationError{Stage: "reserves cumulative", Value: cumAtStart}
	}
	if !isFinite(forecastVolume) {
		return Reserves{}, &ComputationError{Stage: "reserves forecast volume", Value: forecastVolume}
	}
	return Reserves{
		EUR:                cumAtStart + forecastVolume,
		RemainingReserves:  forecastVolume,
		CumAtForecastStart: cumAtStart,
	}, nil
}
