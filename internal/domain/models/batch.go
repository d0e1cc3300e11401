package models

// BatchRequest applies one analysis configuration uniformly to every well
// in a project.
type BatchRequest struct {
	ModelType            string  `json:"model_type" binding:"required"`
	FluidType            string  `json:"fluid_type" binding:"required"`
	ForecastMonths       int     `json:"forecast_months" binding:"required,gt=0"`
	EconomicLimit        float64 `json:"economic_limit" binding:"gte=0"`
	MonteCarloIterations int     `json:"monte_carlo_iterations" binding:"gte=0"`
}

// BatchWellError records a single well's failure without aborting the batch.
type BatchWellError struct {
	WellID   string `json:"well_id"`
	WellName string `json:"well_name"`
	Error    string `json:"error"`
}

// BatchResult is the outcome of a project-wide batch run. Partial failure
// is a normal outcome: successes and errors are both always populated.
type BatchResult struct {
	TotalWells int              `json:"total_wells"`
	Succeeded  int              `json:"succeeded"`
	Failed     int              `json:"failed"`
	Analyses   []DCAAnalysis    `json:"analyses"`
	Errors     []BatchWellError `json:"errors"`
}
