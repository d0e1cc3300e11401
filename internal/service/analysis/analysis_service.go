package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petroflow/petroflow/internal/config"
	"github.com/petroflow/petroflow/internal/domain/models"
	"github.com/petroflow/petroflow/internal/engine/dca"
	"github.com/petroflow/petroflow/internal/repository/mongodb"
)

// Request describes one single-well analysis. ForecastMonths and
// MonteCarloIterations fall back to configured defaults when zero.
type Request struct {
	WellID               string
	ModelType            string
	FluidType            string
	ForecastMonths       int
	EconomicLimit        float64
	MonteCarloIterations int
}

// Service runs the decline-curve pipeline for a single well: normalize the
// history, fit the model, score the fit, forecast to the economic limit and
// aggregate reserves, optionally followed by Monte Carlo resampling.
type Service struct {
	repo     mongodb.Repository
	fitter   *dca.Fitter
	defaults config.EngineConfig
	logger   *zap.Logger
}

// NewService wires a new analysis service instance.
func NewService(repo mongodb.Repository, defaults config.EngineConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, fitter: dca.NewFitter(), defaults: defaults, logger: logger}
}

// Analyze executes the full pipeline and persists the resulting analysis.
// The new document supersedes earlier completed analyses of the same well,
// fluid and model.
func (s *Service) Analyze(ctx context.Context, req Request) (*models.DCAAnalysis, error) {
	model, err := dca.New(dca.ModelType(req.ModelType))
	if err != nil {
		return nil, err
	}
	fluid, err := dca.ParseFluid(req.FluidType)
	if err != nil {
		return nil, err
	}

	well, err := s.repo.GetWell(ctx, req.WellID)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListProduction(ctx, req.WellID)
	if err != nil {
		return nil, err
	}

	analysis, err := s.run(ctx, well, records, model, fluid, req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveAnalysis(ctx, analysis); err != nil {
		return nil, err
	}

	s.logger.Info("analysis completed",
		zap.String("well_id", well.ID),
		zap.String("model", req.ModelType),
		zap.String("fluid", req.FluidType),
		zap.Float64("eur", analysis.EUR),
		zap.Float64("r_squared", analysis.RSquared),
		zap.Bool("low_confidence", analysis.LowConfidence))
	return analysis, nil
}

// run performs the computation without touching storage.
func (s *Service) run(ctx context.Context, well *models.Well, records []models.ProductionRecord, model dca.Model, fluid dca.FluidType, req Request) (*models.DCAAnalysis, error) {
	series, err := dca.Normalize(records, fluid, model)
	if err != nil {
		return nil, err
	}

	fit, err := s.fitter.Fit(model, series)
	if err != nil {
		return nil, err
	}

	metrics := dca.Diagnostics(model, fit.Params, series, len(fit.Params))

	months := req.ForecastMonths
	if months <= 0 {
		months = s.defaults.ForecastMonths
	}
	fcCfg := dca.ForecastConfig{Months: months, EconomicLimit: req.EconomicLimit}

	forecast, err := dca.GenerateForecast(model, fit.Params, series.LastT, fcCfg)
	if err != nil {
		return nil, err
	}
	reserves, err := dca.AggregateReserves(series.CumToDate, forecast.CumulativeVolume)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	analysis := &models.DCAAnalysis{
		ID:                 uuid.NewString(),
		WellID:             well.ID,
		WellName:           well.Name,
		ModelType:          string(model.Type()),
		FluidType:          string(fluid),
		Parameters:         dca.ParamsToMap(model, fit.Params),
		Covariance:         fit.Covariance,
		RSquared:           metrics.RSquared,
		RMSE:               metrics.RMSE,
		AIC:                metrics.AIC,
		BIC:                metrics.BIC,
		ForecastMonths:     months,
		EconomicLimit:      req.EconomicLimit,
		EUR:                reserves.EUR,
		RemainingReserves:  reserves.RemainingReserves,
		CumAtForecastStart: reserves.CumAtForecastStart,
		LowConfidence:      fit.LowConfidence,
		Status:             models.AnalysisStatusCompleted,
		ForecastPoints:     forecastPoints(forecast),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if req.MonteCarloIterations > 0 {
		outcome, err := dca.RunMonteCarlo(ctx, model, fit.Params, fit.Covariance, series.CumToDate, series.LastT, dca.MonteCarloConfig{
			Iterations: req.MonteCarloIterations,
			Workers:    s.defaults.BatchWorkers,
			Seed:       uint64(now.UnixNano()),
			Forecast:   fcCfg,
		})
		if err != nil {
			return nil, fmt.Errorf("monte carlo failed: %w", err)
		}
		analysis.MonteCarlo = monteCarloResult(outcome)
	}

	return analysis, nil
}

// AutoFit fits every model family to the same series and returns the
// successes ranked by AIC, best first. Nothing is persisted; the caller
// picks a winner and requests a real analysis for it.
func (s *Service) AutoFit(ctx context.Context, wellID, fluidType string) ([]models.DCAAnalysis, error) {
	fluid, err := dca.ParseFluid(fluidType)
	if err != nil {
		return nil, err
	}
	well, err := s.repo.GetWell(ctx, wellID)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListProduction(ctx, wellID)
	if err != nil {
		return nil, err
	}

	var ranked []models.DCAAnalysis
	for _, mt := range dca.AllTypes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		model, _ := dca.New(mt)
		req := Request{
			WellID:         wellID,
			ModelType:      string(mt),
			FluidType:      fluidType,
			ForecastMonths: s.defaults.ForecastMonths,
			EconomicLimit:  s.defaults.EconomicLimit,
		}
		candidate, err := s.run(ctx, well, records, model, fluid, req)
		if err != nil {
			s.logger.Debug("auto-fit candidate rejected",
				zap.String("well_id", wellID),
				zap.String("model", string(mt)),
				zap.Error(err))
			continue
		}
		ranked = append(ranked, *candidate)
	}

	if len(ranked) == 0 {
		return nil, fmt.Errorf("no model could be fit to well %s", wellID)
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].AIC < ranked[j].AIC })
	return ranked, nil
}

// RunMonteCarlo recomputes the uncertainty block of a stored analysis from
// its persisted parameters and covariance.
func (s *Service) RunMonteCarlo(ctx context.Context, analysisID string, iterations int) (*models.MonteCarloResult, error) {
	if iterations <= 0 {
		iterations = s.defaults.MonteCarloIterations
	}

	analysis, err := s.repo.GetAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	model, err := dca.New(dca.ModelType(analysis.ModelType))
	if err != nil {
		return nil, err
	}
	fluid, err := dca.ParseFluid(analysis.FluidType)
	if err != nil {
		return nil, err
	}
	params, err := dca.ParamsFromMap(model, analysis.Parameters)
	if err != nil {
		return nil, err
	}

	// The forecast origin is not stored on the analysis; rebuild it from
	// the production history.
	records, err := s.repo.ListProduction(ctx, analysis.WellID)
	if err != nil {
		return nil, err
	}
	series, err := dca.Normalize(records, fluid, model)
	if err != nil {
		return nil, err
	}

	outcome, err := dca.RunMonteCarlo(ctx, model, params, analysis.Covariance, analysis.CumAtForecastStart, series.LastT, dca.MonteCarloConfig{
		Iterations: iterations,
		Workers:    s.defaults.BatchWorkers,
		Seed:       uint64(time.Now().UnixNano()),
		Forecast:   dca.ForecastConfig{Months: analysis.ForecastMonths, EconomicLimit: analysis.EconomicLimit},
	})
	if err != nil {
		return nil, err
	}

	result := monteCarloResult(outcome)
	if err := s.repo.UpdateMonteCarlo(ctx, analysisID, result); err != nil {
		return nil, err
	}

	s.logger.Info("monte carlo completed",
		zap.String("analysis_id", analysisID),
		zap.Int("iterations", iterations),
		zap.Float64("p50", result.P50))
	return result, nil
}

// ListAnalyses returns the stored analyses of a well, newest first.
func (s *Service) ListAnalyses(ctx context.Context, wellID string) ([]models.DCAAnalysis, error) {
	return s.repo.ListAnalyses(ctx, wellID)
}

// GetAnalysis fetches one stored analysis.
func (s *Service) GetAnalysis(ctx context.Context, analysisID string) (*models.DCAAnalysis, error) {
	return s.repo.GetAnalysis(ctx, analysisID)
}

func forecastPoints(fc *dca.Forecast) []models.ForecastPoint {
	points := make([]models.ForecastPoint, len(fc.Points))
	for i, p := range fc.Points {
		points[i] = models.ForecastPoint{
			Month:      p.Month,
			TimeMonths: p.TimeMonths,
			Rate:       p.Rate,
			Volume:     p.Volume,
			Cumulative: p.Cumulative,
		}
	}
	return points
}

func monteCarloResult(out *dca.MonteCarloOutcome) *models.MonteCarloResult {
	return &models.MonteCarloResult{
		P10:        out.P10,
		P50:        out.P50,
		P90:        out.P90,
		Mean:       out.Mean,
		StdDev:     out.StdDev,
		Iterations: out.Iterations,
		BinEdges:   out.BinEdges,
		BinCounts:  out.BinCounts,
	}
}
