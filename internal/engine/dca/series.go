package dca

import (
	"fmt"
	"sort"

	"github.com/petroflow/petroflow/internal/domain/models"
)

// FluidType selects which stream of a production record is analyzed.
type FluidType string

const (
	FluidOil   FluidType = "oil"
	FluidGas   FluidType = "gas"
	FluidWater FluidType = "water"
)

// ParseFluid validates a fluid type string.
func ParseFluid(s string) (FluidType, error) {
	switch FluidType(s) {
	case FluidOil, FluidGas, FluidWater:
		return FluidType(s), nil
	}
	return "", fmt.Errorf("unknown fluid type %q", s)
}

// Series is a normalized production history for one well and fluid: time in
// months since the first record paired with positive observed rates, plus
// the cumulative volume already produced.
type Series struct {
	T []float64
	Q []float64
	// CumToDate is the cumulative production on file at the end of the
	// history, i.e. the volume already recovered before forecasting starts.
	CumToDate float64
	// LastT is the time in months of the final record, including records
	// whose rate was excluded from the fit. Forecasting resumes after it.
	LastT float64
}

// Normalize orders raw monthly records, extracts the rate stream for the
// requested fluid and checks that enough positive observations remain to
// constrain the given model. Zero and negative rates are excluded from the
// fit arrays (a zero gas or water month is legitimate data, but it carries
// no decline information) while still counting toward cumulative tracking.
func Normalize(records []models.ProductionRecord, fluid FluidType, m Model) (*Series, error) {
	if len(records) == 0 {
		return nil, &DataError{Reason: "no production records"}
	}

	sorted := make([]models.ProductionRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	for i := 1; i < len(sorted); i++ {
		if sorted[i].Date.Equal(sorted[i-1].Date) {
			return nil, &DataError{
				Reason: fmt.Sprintf("duplicate production date %s", sorted[i].Date.Format("2006-01")),
			}
		}
	}

	base := sorted[0].Date
	s := &Series{}
	anyPositive := false
	for _, rec := range sorted {
		t := rec.Date.Sub(base).Hours() / 24.0 / daysPerMonth
		rate := fluidRate(rec, fluid)
		if rate > 0 {
			s.T = append(s.T, t)
			s.Q = append(s.Q, rate)
			anyPositive = true
		}
		s.LastT = t
	}

	if !anyPositive {
		return nil, &DataError{Reason: fmt.Sprintf("all %s rates are zero", fluid)}
	}
	if len(s.Q) < m.MinPoints() {
		return nil, &DataError{
			Reason: fmt.Sprintf("%d usable points, %s model needs at least %d", len(s.Q), m.Type(), m.MinPoints()),
		}
	}

	s.CumToDate = cumToDate(sorted, fluid)
	return s, nil
}

// fluidRate returns the daily rate of the requested stream.
func fluidRate(rec models.ProductionRecord, fluid FluidType) float64 {
	switch fluid {
	case FluidGas:
		return rec.GasRate
	case FluidWater:
		return rec.WaterRate
	default:
		return rec.OilRate
	}
}

// cumToDate prefers the latest on-file cumulative figure; when none was
// imported it integrates the recorded rates month by month.
func cumToDate(sorted []models.ProductionRecord, fluid FluidType) float64 {
	for i := len(sorted) - 1; i >= 0; i-- {
		var v *float64
		switch fluid {
		case FluidGas:
			v = sorted[i].CumGas
		case FluidWater:
			v = sorted[i].CumWater
		default:
			v = sorted[i].CumOil
		}
		if v != nil {
			return *v
		}
	}

	var total float64
	for _, rec := range sorted {
		if rate := fluidRate(rec, fluid); rate > 0 {
			total += rate * daysPerMonth
		}
	}
	return total
}
