package models

import "time"

// Analysis status values. A rerun never mutates an existing analysis; it
// inserts a new document and marks the old one superseded.
const (
	AnalysisStatusCompleted  = "completed"
	AnalysisStatusSuperseded = "superseded"
)

// DCAAnalysis is the persisted outcome of one decline-curve fit and
// forecast for a single well and fluid stream.
type DCAAnalysis struct {
	ID        string    `bson:"_id" json:"id"`
	WellID    string    `bson:"well_id" json:"well_id"`
	WellName  string    `bson:"well_name,omitempty" json:"well_name,omitempty"`
	ModelType string    `bson:"model_type" json:"model_type"`
	FluidType string    `bson:"fluid_type" json:"fluid_type"`

	Parameters map[string]float64 `bson:"parameters" json:"parameters"`
	// Covariance of the fitted parameters, row-major in ParamNames order.
	// Consumed by Monte Carlo reruns on the stored analysis.
	Covariance [][]float64 `bson:"covariance,omitempty" json:"covariance,omitempty"`

	RSquared float64 `bson:"r_squared" json:"r_squared"`
	RMSE     float64 `bson:"rmse" json:"rmse"`
	AIC      float64 `bson:"aic" json:"aic"`
	BIC      float64 `bson:"bic" json:"bic"`

	ForecastMonths int     `bson:"forecast_months" json:"forecast_months"`
	EconomicLimit  float64 `bson:"economic_limit" json:"economic_limit"`

	EUR                float64 `bson:"eur" json:"eur"`
	RemainingReserves  float64 `bson:"remaining_reserves" json:"remaining_reserves"`
	CumAtForecastStart float64 `bson:"cum_at_forecast_start" json:"cum_at_forecast_start"`

	LowConfidence bool   `bson:"low_confidence" json:"low_confidence"`
	Status        string `bson:"status" json:"status"`

	MonteCarlo     *MonteCarloResult `bson:"monte_carlo,omitempty" json:"monte_carlo,omitempty"`
	ForecastPoints []ForecastPoint   `bson:"forecast_points" json:"forecast_points"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ForecastPoint is one monthly row of the forecast table.
type ForecastPoint struct {
	Month      int     `bson:"month" json:"month"`
	TimeMonths float64 `bson:"time_months" json:"time_months"`
	Rate       float64 `bson:"rate" json:"rate"`
	Volume     float64 `bson:"volume" json:"volume"`
	Cumulative float64 `bson:"cumulative" json:"cumulative"`
}

// MonteCarloResult summarizes the EUR distribution from stochastic
// resampling of the fit parameters. By SPE convention P90 is the
// conservative low bound and P10 the optimistic high bound.
type MonteCarloResult struct {
	P10        float64   `bson:"p10" json:"p10"`
	P50        float64   `bson:"p50" json:"p50"`
	P90        float64   `bson:"p90" json:"p90"`
	Mean       float64   `bson:"mean" json:"mean"`
	StdDev     float64   `bson:"std_dev" json:"std_dev"`
	Iterations int       `bson:"iterations" json:"iterations"`
	BinEdges   []float64 `bson:"bin_edges,omitempty" json:"bin_edges,omitempty"`
	BinCounts  []int     `bson:"bin_counts,omitempty" json:"bin_counts,omitempty"`
}
