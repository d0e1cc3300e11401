package dca

// ForecastConfig bounds a forecast run. EconomicLimit at or below zero
// disables rate-based termination, leaving only the horizon.
type ForecastConfig struct {
	Months        int
	EconomicLimit float64
}

// Point is one monthly forecast step. TimeMonths counts from the first
// production record; Volume is the incremental volume of the step and
// Cumulative the running forecast-period total.
type Point struct {
	Month      int
	TimeMonths float64
	Rate       float64
	Volume     float64
	Cumulative float64
}

// Forecast extends a fitted model beyond the observed history in discrete
// monthly steps until the economic limit or the horizon is hit.
type Forecast struct {
	Points            []Point
	CumulativeVolume  float64
	TerminatedByLimit bool
}

// GenerateForecast steps the model forward from the month after the last
// observation. Step volumes come from the model's closed-form cumulative,
// converted from rate-months to volume. A forecast of zero length is a
// valid outcome when the rate is already uneconomic.
func GenerateForecast(m Model, p []float64, lastObservedT float64, cfg ForecastConfig) (*Forecast, error) {
	t0 := lastObservedT + m.TimeOffset()
	prevCum := m.Cumulative(t0, p)
	if !isFinite(prevCum) {
		return nil, &ComputationError{Stage: "forecast cumulative", Value: prevCum}
	}

	fc := &Forecast{}
	var running float64
	for step := 1; step <= cfg.Months; step++ {
		t := t0 + float64(step)
		rate := m.Rate(t, p)
		if !isFinite(rate) {
			return nil, &ComputationError{Stage: "forecast rate", Value: rate}
		}
		if cfg.EconomicLimit > 0 && rate <= cfg.EconomicLimit {
			fc.TerminatedByLimit = true
			break
		}

		cum := m.Cumulative(t, p)
		if !isFinite(cum) {
			return nil, &ComputationError{Stage: "forecast cumulative", Value: cum}
		}
		vol := (cum - prevCum) * daysPerMonth
		if vol < 0 {
			// Floating-point noise in the closed forms; the analytic
			// cumulative is monotone.
			vol = 0
		}
		prevCum = cum
		running += vol

		fc.Points = append(fc.Points, Point{
			Month:      step,
			TimeMonths: lastObservedT + float64(step),
			Rate:       rate,
			Volume:     vol,
			Cumulative: running,
		})
	}

	fc.CumulativeVolume = running
	return fc, nil
}
