// Package portfolio carries the write side of the dashboard: pause
// management, manual project overrides and the tunable settings.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/shared"
)

var (
	// ErrPauseAlreadyOpen rejects opening a second concurrent pause.
	ErrPauseAlreadyOpen = errors.New("portfolio: project already has an open pause")

	// ErrPauseProjectMismatch rejects closing a pause through the wrong project.
	ErrPauseProjectMismatch = errors.New("portfolio: pause does not belong to this project")

	// ErrUnknownSettingKey rejects writes to settings the engine never reads.
	ErrUnknownSettingKey = errors.New("portfolio: unknown setting key")

	// ErrInvalidSettingValue rejects non-numeric setting values.
	ErrInvalidSettingValue = errors.New("portfolio: setting value must be numeric")
)

// knownSettingKeys is the closed set of keys the scoring and forecast
// engines read back.
var knownSettingKeys = map[string]struct{}{
	rollout.SettingCapacityCeiling:   {},
	rollout.SettingContractDays:      {},
	rollout.SettingLeadMonths:        {},
	rollout.SettingMatrizWeight:      {},
	rollout.SettingFilialWeight:      {},
	rollout.SettingMinDeliveries:     {},
	rollout.SettingMinStageSamples:   {},
	rollout.SettingScheduleWeight:    {},
	rollout.SettingIdleWeight:        {},
	rollout.SettingFinancialWeight:   {},
	rollout.SettingRiskQualityWeight: {},
	rollout.SettingVolumeWeight:      {},
	rollout.SettingOTDWeight:         {},
	rollout.SettingPerfQualityWeight: {},
	rollout.SettingEfficiencyWeight:  {},
}

// Service exposes the portfolio write operations.
type Service struct {
	projects rollout.ProjectRepository
	pauses   rollout.PauseRepository
	settings rollout.SettingRepository
	logger   *zap.Logger

	now func() time.Time
}

// NewService creates the portfolio service.
func NewService(
	projects rollout.ProjectRepository,
	pauses rollout.PauseRepository,
	settings rollout.SettingRepository,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		projects: projects,
		pauses:   pauses,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// OpenPause freezes a project's clock starting at startAt (zero means now).
// A project carries at most one open pause.
func (s *Service) OpenPause(ctx context.Context, projectID uuid.UUID, startAt time.Time, reason string) (*rollout.Pause, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, err
	}

	open, err := s.pauses.FindOpenByProject(ctx, projectID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("check open pause: %w", err)
	}
	if open != nil {
		return nil, ErrPauseAlreadyOpen
	}

	if startAt.IsZero() {
		startAt = s.now()
	}
	pause, err := rollout.NewPause(projectID, startAt, reason)
	if err != nil {
		return nil, err
	}
	if err := s.pauses.Create(ctx, pause); err != nil {
		return nil, fmt.Errorf("create pause: %w", err)
	}

	s.logger.Info("pause opened",
		zap.String("project_id", projectID.String()),
		zap.Time("start_at", startAt),
		zap.String("reason", reason))
	return pause, nil
}

// ClosePause ends an open pause at endAt (zero means now).
func (s *Service) ClosePause(ctx context.Context, projectID, pauseID uuid.UUID, endAt time.Time) (*rollout.Pause, error) {
	pause, err := s.pauses.FindByID(ctx, pauseID)
	if err != nil {
		return nil, err
	}
	if pause.ProjectID != projectID {
		return nil, ErrPauseProjectMismatch
	}

	if endAt.IsZero() {
		endAt = s.now()
	}
	if err := pause.Close(endAt); err != nil {
		return nil, err
	}
	if err := s.pauses.Update(ctx, pause); err != nil {
		return nil, fmt.Errorf("update pause: %w", err)
	}

	s.logger.Info("pause closed",
		zap.String("project_id", projectID.String()),
		zap.String("pause_id", pauseID.String()),
		zap.Time("end_at", endAt))
	return pause, nil
}

// ListPauses returns a project's pauses, oldest first.
func (s *Service) ListPauses(ctx context.Context, projectID uuid.UUID) ([]rollout.Pause, error) {
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.pauses.FindByProject(ctx, projectID)
}

// Overrides are the manual corrections the operations team applies on top
// of tracker data. Nil fields are left untouched.
type Overrides struct {
	ManualFinishedAt     *time.Time
	ClearManualFinish    bool
	ManualGoLiveDate     *time.Time
	ClearManualGoLive    bool
	HadRework            *bool
	ReworkType           *string
	DeliveredWithQuality *bool
	ContractDays         *int
}

// ApplyOverrides patches a project with manual corrections.
func (s *Service) ApplyOverrides(ctx context.Context, projectID uuid.UUID, ov Overrides) (*rollout.Project, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if ov.ClearManualFinish {
		p.ManualFinishedAt = nil
	} else if ov.ManualFinishedAt != nil {
		p.ManualFinishedAt = ov.ManualFinishedAt
	}
	if ov.ClearManualGoLive {
		p.ManualGoLiveDate = nil
	} else if ov.ManualGoLiveDate != nil {
		p.ManualGoLiveDate = ov.ManualGoLiveDate
	}
	if ov.HadRework != nil {
		p.HadRework = *ov.HadRework
	}
	if ov.ReworkType != nil {
		p.ReworkType = *ov.ReworkType
	}
	if ov.DeliveredWithQuality != nil {
		p.DeliveredWithQuality = *ov.DeliveredWithQuality
	}
	if ov.ContractDays != nil && *ov.ContractDays > 0 {
		p.ContractDays = *ov.ContractDays
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	s.logger.Info("project overrides applied", zap.String("task_ref", p.TaskRef))
	return p, nil
}

// Settings returns every stored setting.
func (s *Service) Settings(ctx context.Context) ([]rollout.Setting, error) {
	return s.settings.FindAll(ctx)
}

// UpdateSettings validates and upserts a batch of numeric settings.
func (s *Service) UpdateSettings(ctx context.Context, values map[string]string) error {
	for key, value := range values {
		if _, ok := knownSettingKeys[key]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSettingKey, key)
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("%w: %s=%s", ErrInvalidSettingValue, key, value)
		}
	}

	for key, value := range values {
		setting, err := rollout.NewSetting(key, value)
		if err != nil {
			return err
		}
		if err := s.settings.Upsert(ctx, setting); err != nil {
			return fmt.Errorf("upsert setting %s: %w", key, err)
		}
	}

	s.logger.Info("settings updated", zap.Int("count", len(values)))
	return nil
}
