package forecast

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rollout/backend/internal/domain/forecast"
	"github.com/rollout/backend/internal/domain/rollout"
)

// trainingWindowDays bounds how far back closed steps feed the stage
// statistics. Old history drifts away from the current process.
const trainingWindowDays = 365

// statsMaxAge forces a rebuild of stale statistics on the next prediction.
const statsMaxAge = time.Hour

// PredictorService computes per-project completion predictions over cached
// stage-duration statistics. The cache rebuilds lazily when older than
// statsMaxAge and on explicit RefreshStats calls (the sync trigger).
type PredictorService struct {
	projects   rollout.ProjectRepository
	steps      rollout.StepRepository
	stageOrder []string
	minSamples int
	logger     *zap.Logger

	mu      sync.RWMutex
	stats   map[string]forecast.StageStats
	builtAt time.Time

	now func() time.Time
}

// NewPredictorService creates the predictor service. An empty stageOrder
// falls back to the alphabetical stage names of stepLists.
func NewPredictorService(
	projects rollout.ProjectRepository,
	steps rollout.StepRepository,
	stageOrder []string,
	stepLists map[string]string,
	minSamples int,
	logger *zap.Logger,
) *PredictorService {
	if len(stageOrder) == 0 {
		for stage := range stepLists {
			stageOrder = append(stageOrder, stage)
		}
		sort.Strings(stageOrder)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictorService{
		projects:   projects,
		steps:      steps,
		stageOrder: stageOrder,
		minSamples: minSamples,
		logger:     logger,
		now:        time.Now,
	}
}

// RefreshStats rebuilds the stage statistics from closed steps inside the
// training window.
func (s *PredictorService) RefreshStats(ctx context.Context) error {
	cutoff := s.now().AddDate(0, 0, -trainingWindowDays)
	closed, err := s.steps.FindClosedSince(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("load closed steps: %w", err)
	}

	samples := make([]forecast.StageSample, 0, len(closed))
	for i := range closed {
		samples = append(samples, forecast.StageSample{
			Stage: closed[i].Stage,
			Days:  closed[i].TotalDays,
		})
	}
	stats := forecast.BuildStageStats(samples)

	s.mu.Lock()
	s.stats = stats
	s.builtAt = s.now()
	s.mu.Unlock()

	s.logger.Info("stage statistics rebuilt",
		zap.Int("closed_steps", len(closed)),
		zap.Int("stages", len(stats)))
	return nil
}

// predictor returns a predictor over current statistics, rebuilding them
// when missing or stale.
func (s *PredictorService) predictor(ctx context.Context) (*forecast.Predictor, error) {
	s.mu.RLock()
	stats := s.stats
	fresh := stats != nil && s.now().Sub(s.builtAt) < statsMaxAge
	s.mu.RUnlock()

	if !fresh {
		if err := s.RefreshStats(ctx); err != nil {
			return nil, err
		}
		s.mu.RLock()
		stats = s.stats
		s.mu.RUnlock()
	}
	return forecast.NewPredictor(s.stageOrder, stats, s.minSamples), nil
}

// Predict estimates the completion of one project.
func (s *PredictorService) Predict(ctx context.Context, projectID uuid.UUID) (*forecast.Prediction, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	steps, err := s.steps.FindByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load steps: %w", err)
	}
	predictor, err := s.predictor(ctx)
	if err != nil {
		return nil, err
	}

	prediction := predictor.Predict(project, steps, s.now())
	return &prediction, nil
}

// PredictedLatenessDays reports how many days past its contractual deadline
// a project is expected to land. Zero when on track or when the prediction
// cannot be computed; risk scoring treats missing predictions as neutral.
func (s *PredictorService) PredictedLatenessDays(ctx context.Context, project *rollout.Project) float64 {
	if project.IsCompleted() {
		return 0
	}
	steps, err := s.steps.FindByProject(ctx, project.ID)
	if err != nil {
		s.logger.Warn("lateness estimate skipped", zap.String("task_ref", project.TaskRef), zap.Error(err))
		return 0
	}
	predictor, err := s.predictor(ctx)
	if err != nil {
		s.logger.Warn("lateness estimate skipped", zap.String("task_ref", project.TaskRef), zap.Error(err))
		return 0
	}
	prediction := predictor.Predict(project, steps, s.now())
	return float64(prediction.LatenessDays)
}
