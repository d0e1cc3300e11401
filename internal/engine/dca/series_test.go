package dca

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petroflow/petroflow/internal/domain/models"
)

func monthlyRecords(wellID string, start time.Time, oilRates []float64) []models.ProductionRecord {
	records := make([]models.ProductionRecord, len(oilRates))
	for i, rate := range oilRates {
		records[i] = models.ProductionRecord{
			WellID:  wellID,
			Date:    start.AddDate(0, i, 0),
			OilRate: rate,
		}
	}
	return records
}

func TestParseFluid(t *testing.T) {
	for _, s := range []string{"oil", "gas", "water"} {
		fluid, err := ParseFluid(s)
		require.NoError(t, err)
		assert.Equal(t, FluidType(s), fluid)
	}

	_, err := ParseFluid("condensate")
	require.Error(t, err)
}

func TestNormalize(t *testing.T) {
	model, _ := New(Exponential)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("monthly records map to months on the time axis", func(t *testing.T) {
		records := monthlyRecords("w1", start, []float64{900, 850, 800, 760, 720, 680, 650, 620})
		s, err := Normalize(records, FluidOil, model)
		require.NoError(t, err)
		require.Len(t, s.T, 8)
		assert.Equal(t, 0.0, s.T[0])
		for i := 1; i < len(s.T); i++ {
			assert.InDelta(t, float64(i), s.T[i], 0.1, "index %d", i)
		}
		assert.Equal(t, s.T[len(s.T)-1], s.LastT)
	})

	t.Run("input order does not matter", func(t *testing.T) {
		records := monthlyRecords("w1", start, []float64{900, 850, 800, 760, 720, 680, 650, 620})
		shuffled := []models.ProductionRecord{records[5], records[0], records[7], records[2], records[1], records[6], records[3], records[4]}
		s, err := Normalize(shuffled, FluidOil, model)
		require.NoError(t, err)
		assert.Equal(t, []float64{900, 850, 800, 760, 720, 680, 650, 620}, s.Q)
	})

	t.Run("zero rates are excluded from the fit but extend LastT", func(t *testing.T) {
		rates := []float64{900, 850, 0, 800, 760, 720, 680, 650, 0}
		s, err := Normalize(monthlyRecords("w1", start, rates), FluidOil, model)
		require.NoError(t, err)
		assert.Len(t, s.Q, 7)
		assert.InDelta(t, 8.0, s.LastT, 0.1)
	})

	t.Run("empty history", func(t *testing.T) {
		_, err := Normalize(nil, FluidOil, model)
		var de *DataError
		require.ErrorAs(t, err, &de)
	})

	t.Run("duplicate dates", func(t *testing.T) {
		records := monthlyRecords("w1", start, []float64{900, 850, 800, 760, 720, 680})
		records = append(records, models.ProductionRecord{WellID: "w1", Date: records[2].Date, OilRate: 810})
		_, err := Normalize(records, FluidOil, model)
		var de *DataError
		require.ErrorAs(t, err, &de)
		assert.Contains(t, de.Reason, "duplicate")
	})

	t.Run("all rates zero for the requested fluid", func(t *testing.T) {
		records := monthlyRecords("w1", start, []float64{900, 850, 800, 760, 720, 680})
		_, err := Normalize(records, FluidGas, model)
		var de *DataError
		require.ErrorAs(t, err, &de)
	})

	t.Run("too few points for the model", func(t *testing.T) {
		records := monthlyRecords("w1", start, []float64{900, 850, 800})
		_, err := Normalize(records, FluidOil, model)
		var de *DataError
		require.ErrorAs(t, err, &de)
		assert.Contains(t, de.Reason, "at least")
	})

	t.Run("fluid selection", func(t *testing.T) {
		records := monthlyRecords("w1", start, []float64{900, 850, 800, 760, 720, 680})
		for i := range records {
			records[i].GasRate = 2 * records[i].OilRate
		}
		s, err := Normalize(records, FluidGas, model)
		require.NoError(t, err)
		assert.Equal(t, 1800.0, s.Q[0])
	})
}

func TestNormalizeCumToDate(t *testing.T) {
	model, _ := New(Exponential)
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	records := monthlyRecords("w1", start, []float64{500, 470, 440, 410, 380, 350})

	t.Run("integrates rates when no cumulative is on file", func(t *testing.T) {
		s, err := Normalize(records, FluidOil, model)
		require.NoError(t, err)
		assert.InDelta(t, 2550.0*daysPerMonth, s.CumToDate, 1e-6)
	})

	t.Run("prefers the latest on-file cumulative", func(t *testing.T) {
		withCum := make([]models.ProductionRecord, len(records))
		copy(withCum, records)
		early := 30000.0
		late := 81234.5
		withCum[1].CumOil = &early
		withCum[4].CumOil = &late
		s, err := Normalize(withCum, FluidOil, model)
		require.NoError(t, err)
		assert.Equal(t, late, s.CumToDate)
	})
}
