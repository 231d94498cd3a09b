package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/scoring"
	"github.com/rollout/backend/internal/domain/shared"
)

// SnapshotService persists the end-of-day portfolio totals. It backs the
// daily scheduler and the manual snapshot endpoint.
type SnapshotService struct {
	projects  rollout.ProjectRepository
	pauses    rollout.PauseRepository
	snapshots rollout.SnapshotRepository
	analytics *AnalyticsService
	logger    *zap.Logger

	now func() time.Time
}

// NewSnapshotService creates the snapshot service.
func NewSnapshotService(
	projects rollout.ProjectRepository,
	pauses rollout.PauseRepository,
	snapshots rollout.SnapshotRepository,
	analytics *AnalyticsService,
	logger *zap.Logger,
) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{
		projects:  projects,
		pauses:    pauses,
		snapshots: snapshots,
		analytics: analytics,
		logger:    logger,
		now:       time.Now,
	}
}

// CaptureDaily computes and upserts the snapshot for the given day. Re-runs
// for the same day overwrite the earlier capture.
func (s *SnapshotService) CaptureDaily(ctx context.Context, day time.Time) error {
	dayStart := day.UTC().Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)
	now := s.now()
	cfg := s.analytics.scoringConfig(ctx)

	projects, err := s.projects.FindAll(ctx, shared.Filter{})
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}

	snap := rollout.NewDailySnapshot(dayStart)
	snap.TotalProjects = len(projects)

	var inFlight []rollout.Project
	var loadPoints float64
	operators := make(map[string]struct{})
	rows := make([]rollout.ProjectSnapshot, 0, len(projects))
	rowIndex := make(map[uuid.UUID]int, len(projects))

	for i := range projects {
		p := &projects[i]
		row := rollout.NewProjectSnapshot(dayStart, p.ID)
		row.Operator = p.Operator
		row.Network = p.Network
		row.Status = p.Status
		row.IdleDays = p.IdleDays
		row.MRR = p.MonthlyValue

		if p.IsCompleted() {
			snap.Completed++
		}
		if p.Status == rollout.StatusBlocked {
			snap.Blocked++
		}
		if p.IsInFlight() {
			inFlight = append(inFlight, *p)
			snap.InFlight++
			row.WIPPoints = cfg.ClassWeight(p.Class)
			loadPoints += row.WIPPoints
			if p.Operator != "" {
				operators[p.Operator] = struct{}{}
			}
		}

		if start := p.EffectiveStartedAt(); start != nil &&
			!start.Before(dayStart) && start.Before(dayEnd) {
			snap.StartedInDay++
		}
		if finish := p.EffectiveFinishedAt(); finish != nil &&
			!finish.Before(dayStart) && finish.Before(dayEnd) {
			snap.CompletedInDay++
		}

		rowIndex[p.ID] = len(rows)
		rows = append(rows, *row)
	}

	openPauses, err := s.pauses.CountOpen(ctx)
	if err != nil {
		return fmt.Errorf("count open pauses: %w", err)
	}
	snap.Paused = int(openPauses)

	if len(inFlight) > 0 {
		ids := make([]uuid.UUID, len(inFlight))
		for i := range inFlight {
			ids[i] = inFlight[i].ID
		}
		pausesByProject, err := s.pauses.FindByProjects(ctx, ids)
		if err != nil {
			return fmt.Errorf("load pauses: %w", err)
		}

		var riskSum float64
		for i := range inFlight {
			p := &inFlight[i]
			pauses := pausesByProject[p.ID]
			if p.NetProgressDays(pauses, now) > cfg.ContractDaysFor(p) {
				snap.Late++
			}
			score := s.analytics.riskFor(cfg, p, pauses, s.analytics.predictedLateness(ctx, p), now)
			riskSum += score.Total
			if score.Level == scoring.RiskCritical {
				snap.CriticalRisk++
			}
			rows[rowIndex[p.ID]].RiskScore = score.Total
		}
		snap.AvgRiskScore = round1(riskSum / float64(len(inFlight)))
	}

	// Team utilization: current load points against the combined ceiling of
	// every operator carrying in-flight work.
	if n := len(operators); n > 0 && cfg.CapacityCeiling > 0 {
		snap.UtilizationPct = round1(loadPoints / (float64(n) * cfg.CapacityCeiling) * 100)
	}

	if err := s.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := s.snapshots.SaveProjectSnapshots(ctx, rows); err != nil {
		return fmt.Errorf("save project snapshots: %w", err)
	}
	s.logger.Info("daily snapshot captured",
		zap.Time("day", snap.Day),
		zap.Int("total", snap.TotalProjects),
		zap.Int("in_flight", snap.InFlight),
		zap.Float64("avg_risk", snap.AvgRiskScore))
	return nil
}

// PruneBefore removes snapshots older than the cutoff.
func (s *SnapshotService) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.snapshots.DeleteOlderThan(ctx, cutoff)
}

// History returns the stored aggregate snapshots in [from, to], oldest first.
func (s *SnapshotService) History(ctx context.Context, from, to time.Time) ([]rollout.DailySnapshot, error) {
	return s.snapshots.FindRange(ctx, from, to)
}

// ProjectHistory returns one project's stored rows in [from, to], oldest first.
func (s *SnapshotService) ProjectHistory(ctx context.Context, projectID uuid.UUID, from, to time.Time) ([]rollout.ProjectSnapshot, error) {
	return s.snapshots.FindProjectRange(ctx, projectID, from, to)
}
