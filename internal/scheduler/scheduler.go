package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/petroflow/petroflow/internal/config"
	"github.com/petroflow/petroflow/internal/domain/models"
	"github.com/petroflow/petroflow/internal/repository/mongodb"
	"github.com/petroflow/petroflow/internal/service/batch"
)

// Scheduler re-runs project-wide forecasts on a cron schedule so stored
// analyses track newly imported production.
type Scheduler struct {
	cron     *cron.Cron
	repo     mongodb.Repository
	batchSvc *batch.Service
	cfg      config.Config
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.Config, repo mongodb.Repository, batchSvc *batch.Service, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(),
		repo:     repo,
		batchSvc: batchSvc,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start registers the refresh job and starts the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("cron", s.cfg.Scheduler.CronSchedule))

	_, err := s.cron.AddFunc(s.cfg.Scheduler.CronSchedule, s.refreshAll)
	if err != nil {
		s.logger.Error("failed to schedule forecast refresh", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) refreshAll() {
	s.logger.Info("refreshing project forecasts")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	projects, err := s.repo.ListProjectIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list projects for refresh", zap.Error(err))
		return
	}

	req := models.BatchRequest{
		ModelType:      s.cfg.Scheduler.ModelType,
		FluidType:      s.cfg.Scheduler.FluidType,
		ForecastMonths: s.cfg.Engine.ForecastMonths,
		EconomicLimit:  s.cfg.Engine.EconomicLimit,
	}

	for _, projectID := range projects {
		result, err := s.batchSvc.Run(ctx, projectID, req)
		if err != nil {
			s.logger.Error("scheduled refresh aborted",
				zap.String("project_id", projectID),
				zap.Error(err))
			return
		}
		s.logger.Info("project refreshed",
			zap.String("project_id", projectID),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed))
	}
}
