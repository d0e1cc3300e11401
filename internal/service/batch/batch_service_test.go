package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/petroflow/petroflow/internal/config"
	"github.com/petroflow/petroflow/internal/domain/models"
	"github.com/petroflow/petroflow/internal/service/analysis"
	"github.com/petroflow/petroflow/pkg/clients/webhook"
)

// fakeRepo is an in-memory Repository backing the service tests.
type fakeRepo struct {
	mu         sync.Mutex
	wells      map[string][]models.Well
	production map[string][]models.ProductionRecord
	analyses   []models.DCAAnalysis
	listErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		wells:      map[string][]models.Well{},
		production: map[string][]models.ProductionRecord{},
	}
}

func (f *fakeRepo) ListProjectIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.wells))
	for id := range f.wells {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRepo) ListWells(ctx context.Context, projectID string) ([]models.Well, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.wells[projectID], nil
}

func (f *fakeRepo) GetWell(ctx context.Context, wellID string) (*models.Well, error) {
	for _, wells := range f.wells {
		for _, w := range wells {
			if w.ID == wellID {
				return &w, nil
			}
		}
	}
	return nil, fmt.Errorf("well %s not found", wellID)
}

func (f *fakeRepo) ListProduction(ctx context.Context, wellID string) ([]models.ProductionRecord, error) {
	return f.production[wellID], nil
}

func (f *fakeRepo) SaveAnalysis(ctx context.Context, a *models.DCAAnalysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses = append(f.analyses, *a)
	return nil
}

func (f *fakeRepo) ListAnalyses(ctx context.Context, wellID string) ([]models.DCAAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DCAAnalysis
	for _, a := range f.analyses {
		if a.WellID == wellID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetAnalysis(ctx context.Context, analysisID string) (*models.DCAAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.analyses {
		if a.ID == analysisID {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("analysis %s not found", analysisID)
}

func (f *fakeRepo) UpdateMonteCarlo(ctx context.Context, analysisID string, result *models.MonteCarloResult) error {
	return nil
}

// fakeNotifier records batch-completion events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []webhook.BatchCompletedEvent
}

func (f *fakeNotifier) NotifyBatchCompleted(ctx context.Context, event webhook.BatchCompletedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func seedProject(repo *fakeRepo, projectID string, goodWells, shortWells int) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	addWell := func(id string, months int) {
		w := models.Well{ID: id, ProjectID: projectID, Name: "Well " + id}
		repo.wells[projectID] = append(repo.wells[projectID], w)
		var records []models.ProductionRecord
		for i := 0; i < months; i++ {
			records = append(records, models.ProductionRecord{
				WellID:  id,
				Date:    start.AddDate(0, i, 0),
				OilRate: 800.0 * declineFactor(i),
			})
		}
		repo.production[id] = records
	}

	for i := 0; i < goodWells; i++ {
		addWell(fmt.Sprintf("%s-good-%d", projectID, i), 24)
	}
	for i := 0; i < shortWells; i++ {
		addWell(fmt.Sprintf("%s-short-%d", projectID, i), 3)
	}
}

func declineFactor(month int) float64 {
	f := 1.0
	for i := 0; i < month; i++ {
		f *= 0.93
	}
	return f
}

func defaults() config.EngineConfig {
	return config.EngineConfig{
		ForecastMonths:       240,
		EconomicLimit:        5.0,
		MonteCarloIterations: 1000,
		BatchWorkers:         4,
	}
}

func TestBatchRun(t *testing.T) {
	repo := newFakeRepo()
	seedProject(repo, "p1", 8, 2)

	analyzer := analysis.NewService(repo, defaults(), zap.NewNop())
	svc := NewService(repo, analyzer, nil, 4, time.Minute, zap.NewNop())

	req := models.BatchRequest{
		ModelType:      "exponential",
		FluidType:      "oil",
		ForecastMonths: 240,
		EconomicLimit:  5.0,
	}
	result, err := svc.Run(context.Background(), "p1", req)
	require.NoError(t, err)

	assert.Equal(t, 10, result.TotalWells)
	assert.Equal(t, 8, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.Len(t, result.Analyses, 8)
	require.Len(t, result.Errors, 2)
	for _, we := range result.Errors {
		assert.Contains(t, we.WellID, "short")
		assert.NotEmpty(t, we.Error)
	}
	for _, a := range result.Analyses {
		assert.Equal(t, "exponential", a.ModelType)
		assert.Greater(t, a.EUR, a.CumAtForecastStart)
		assert.Equal(t, models.AnalysisStatusCompleted, a.Status)
	}

	// Successes were persisted, failures were not.
	assert.Len(t, repo.analyses, 8)
}

func TestBatchRunEmptyProject(t *testing.T) {
	repo := newFakeRepo()
	analyzer := analysis.NewService(repo, defaults(), zap.NewNop())
	svc := NewService(repo, analyzer, nil, 4, time.Minute, zap.NewNop())

	result, err := svc.Run(context.Background(), "ghost", models.BatchRequest{
		ModelType: "exponential", FluidType: "oil", ForecastMonths: 120,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalWells)
	assert.Empty(t, result.Analyses)
	assert.Empty(t, result.Errors)
}

func TestBatchRunListFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = fmt.Errorf("connection reset")
	analyzer := analysis.NewService(repo, defaults(), zap.NewNop())
	svc := NewService(repo, analyzer, nil, 4, time.Minute, zap.NewNop())

	_, err := svc.Run(context.Background(), "p1", models.BatchRequest{
		ModelType: "exponential", FluidType: "oil", ForecastMonths: 120,
	})
	require.Error(t, err)
}

func TestBatchRunNotifies(t *testing.T) {
	repo := newFakeRepo()
	seedProject(repo, "p1", 3, 1)

	notifier := &fakeNotifier{}
	analyzer := analysis.NewService(repo, defaults(), zap.NewNop())
	svc := NewService(repo, analyzer, notifier, 2, time.Minute, zap.NewNop())

	_, err := svc.Run(context.Background(), "p1", models.BatchRequest{
		ModelType: "exponential", FluidType: "oil", ForecastMonths: 240, EconomicLimit: 5.0,
	})
	require.NoError(t, err)

	require.Len(t, notifier.events, 1)
	event := notifier.events[0]
	assert.Equal(t, "p1", event.ProjectID)
	assert.Equal(t, 4, event.TotalWells)
	assert.Equal(t, 3, event.Succeeded)
	assert.Equal(t, 1, event.Failed)
	assert.False(t, event.CompletedAt.IsZero())
}

func TestBatchRunCancelled(t *testing.T) {
	repo := newFakeRepo()
	seedProject(repo, "p1", 5, 0)

	analyzer := analysis.NewService(repo, defaults(), zap.NewNop())
	svc := NewService(repo, analyzer, nil, 1, time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Run(ctx, "p1", models.BatchRequest{
		ModelType: "exponential", FluidType: "oil", ForecastMonths: 240,
	})
	require.ErrorIs(t, err, context.Canceled)
}
