package batch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/petroflow/petroflow/internal/domain/models"
	"github.com/petroflow/petroflow/internal/repository/mongodb"
	"github.com/petroflow/petroflow/internal/service/analysis"
	"github.com/petroflow/petroflow/pkg/clients/webhook"
)

// Service fans the analysis pipeline out across every well in a project.
// Each well runs independently on its own copy of the input; one well's
// failure is recorded and never aborts the rest of the batch.
type Service struct {
	repo        mongodb.Repository
	analyzer    *analysis.Service
	notifier    webhook.Client
	workers     int
	wellTimeout time.Duration
	logger      *zap.Logger
}

// NewService wires a batch service. The notifier may be nil when
// batch-completion webhooks are not configured.
func NewService(repo mongodb.Repository, analyzer *analysis.Service, notifier webhook.Client, workers int, wellTimeout time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		repo:        repo,
		analyzer:    analyzer,
		notifier:    notifier,
		workers:     workers,
		wellTimeout: wellTimeout,
		logger:      logger,
	}
}

// Run applies one shared configuration to all wells of a project. The
// returned result always carries both successes and per-well errors; Run
// itself only fails on cancellation or when the well list cannot be read.
func (s *Service) Run(ctx context.Context, projectID string, req models.BatchRequest) (*models.BatchResult, error) {
	wells, err := s.repo.ListWells(ctx, projectID)
	if err != nil {
		return nil, err
	}

	result := &models.BatchResult{
		TotalWells: len(wells),
		Analyses:   []models.DCAAnalysis{},
		Errors:     []models.BatchWellError{},
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, well := range wells {
		well := well
		g.Go(func() error {
			// Cancellation is checked between wells, never mid-fit.
			if err := gctx.Err(); err != nil {
				return err
			}

			wellCtx := gctx
			var cancel context.CancelFunc
			if s.wellTimeout > 0 {
				wellCtx, cancel = context.WithTimeout(gctx, s.wellTimeout)
				defer cancel()
			}

			a, err := s.analyzer.Analyze(wellCtx, analysis.Request{
				WellID:               well.ID,
				ModelType:            req.ModelType,
				FluidType:            req.FluidType,
				ForecastMonths:       req.ForecastMonths,
				EconomicLimit:        req.EconomicLimit,
				MonteCarloIterations: req.MonteCarloIterations,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Warn("well analysis failed",
					zap.String("project_id", projectID),
					zap.String("well_id", well.ID),
					zap.Error(err))
				result.Errors = append(result.Errors, models.BatchWellError{
					WellID:   well.ID,
					WellName: well.Name,
					Error:    err.Error(),
				})
				return nil
			}
			result.Analyses = append(result.Analyses, *a)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Succeeded = len(result.Analyses)
	result.Failed = len(result.Errors)

	s.logger.Info("batch completed",
		zap.String("project_id", projectID),
		zap.Int("total", result.TotalWells),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))

	s.notify(ctx, projectID, req, result)
	return result, nil
}

// notify posts the completion webhook best-effort.
func (s *Service) notify(ctx context.Context, projectID string, req models.BatchRequest, result *models.BatchResult) {
	if s.notifier == nil {
		return
	}
	event := webhook.BatchCompletedEvent{
		ProjectID:   projectID,
		ModelType:   req.ModelType,
		FluidType:   req.FluidType,
		TotalWells:  result.TotalWells,
		Succeeded:   result.Succeeded,
		Failed:      result.Failed,
		CompletedAt: time.Now().UTC(),
	}
	if err := s.notifier.NotifyBatchCompleted(ctx, event); err != nil {
		s.logger.Warn("batch webhook delivery failed", zap.Error(err))
	}
}
