// Package analytics computes the dashboard reads: KPI cards, operator
// ranking, capacity, monthly trends, stage bottlenecks and per-project risk.
// Everything is computed on read from the synchronized portfolio; the only
// write is the daily snapshot.
package analytics

import (
	"context"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/scoring"
	"github.com/rollout/backend/internal/infrastructure/config"
)

// LatenessEstimator supplies the predicted lateness used by the schedule
// risk override. Implemented by the forecast predictor service; a nil
// estimator disables the override.
type LatenessEstimator interface {
	PredictedLatenessDays(ctx context.Context, project *rollout.Project) float64
}

// AnalyticsService serves the computed dashboard reads.
type AnalyticsService struct {
	projects rollout.ProjectRepository
	pauses   rollout.PauseRepository
	steps    rollout.StepRepository
	settings rollout.SettingRepository
	lateness LatenessEstimator
	logger   *zap.Logger

	overrides config.ScoringConfig

	now func() time.Time
}

// NewAnalyticsService creates the analytics service. lateness may be nil.
func NewAnalyticsService(
	projects rollout.ProjectRepository,
	pauses rollout.PauseRepository,
	steps rollout.StepRepository,
	settings rollout.SettingRepository,
	lateness LatenessEstimator,
	overrides config.ScoringConfig,
	logger *zap.Logger,
) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		projects:  projects,
		pauses:    pauses,
		steps:     steps,
		settings:  settings,
		lateness:  lateness,
		overrides: overrides,
		logger:    logger,
		now:       time.Now,
	}
}

// scoringConfig resolves the effective scoring configuration: compiled
// defaults, overlaid with static configuration, overlaid with the persisted
// settings. Settings that fail to parse are skipped.
func (s *AnalyticsService) scoringConfig(ctx context.Context) scoring.Config {
	cfg := scoring.DefaultConfig()

	if s.overrides.CapacityCeiling > 0 {
		cfg.CapacityCeiling = s.overrides.CapacityCeiling
	}
	if s.overrides.MatrizWeight > 0 {
		cfg.MatrizWeight = s.overrides.MatrizWeight
	}
	if s.overrides.FilialWeight > 0 {
		cfg.FilialWeight = s.overrides.FilialWeight
	}
	if s.overrides.MinDeliveries > 0 {
		cfg.MinDeliveriesForRanking = s.overrides.MinDeliveries
	}
	if s.overrides.MinStageSamples > 0 {
		cfg.MinStageSamples = s.overrides.MinStageSamples
	}
	if s.overrides.ContractDays > 0 {
		cfg.DefaultContractDays = s.overrides.ContractDays
	}

	if s.settings == nil {
		return cfg
	}
	stored, err := s.settings.FindAll(ctx)
	if err != nil {
		s.logger.Warn("failed to load scoring settings, using defaults", zap.Error(err))
		return cfg
	}
	for _, setting := range stored {
		v, err := strconv.ParseFloat(setting.Value, 64)
		if err != nil {
			s.logger.Warn("ignoring malformed setting",
				zap.String("key", setting.Key),
				zap.String("value", setting.Value))
			continue
		}
		switch setting.Key {
		case rollout.SettingCapacityCeiling:
			if v > 0 {
				cfg.CapacityCeiling = v
			}
		case rollout.SettingMatrizWeight:
			if v > 0 {
				cfg.MatrizWeight = v
			}
		case rollout.SettingFilialWeight:
			if v > 0 {
				cfg.FilialWeight = v
			}
		case rollout.SettingMinDeliveries:
			if v > 0 {
				cfg.MinDeliveriesForRanking = int(v)
			}
		case rollout.SettingMinStageSamples:
			if v > 0 {
				cfg.MinStageSamples = int(v)
			}
		case rollout.SettingContractDays:
			if v > 0 {
				cfg.DefaultContractDays = int(v)
			}
		case rollout.SettingScheduleWeight:
			if v > 0 {
				cfg.ScheduleWeight = v
			}
		case rollout.SettingIdleWeight:
			if v > 0 {
				cfg.IdleWeight = v
			}
		case rollout.SettingFinancialWeight:
			if v > 0 {
				cfg.FinancialWeight = v
			}
		case rollout.SettingRiskQualityWeight:
			if v > 0 {
				cfg.QualityWeight = v
			}
		case rollout.SettingVolumeWeight:
			if v > 0 {
				cfg.VolumeWeight = v
			}
		case rollout.SettingOTDWeight:
			if v > 0 {
				cfg.OTDWeight = v
			}
		case rollout.SettingPerfQualityWeight:
			if v > 0 {
				cfg.QualityPerfWeight = v
			}
		case rollout.SettingEfficiencyWeight:
			if v > 0 {
				cfg.EfficiencyWeight = v
			}
		}
	}
	return cfg
}

// predictedLateness resolves the lateness override for a project, zero when
// no estimator is wired.
func (s *AnalyticsService) predictedLateness(ctx context.Context, p *rollout.Project) float64 {
	if s.lateness == nil {
		return 0
	}
	return s.lateness.PredictedLatenessDays(ctx, p)
}

// riskFor computes the risk score of one project given its pauses.
func (s *AnalyticsService) riskFor(cfg scoring.Config, p *rollout.Project, pauses []rollout.Pause, lateness float64, now time.Time) scoring.RiskScore {
	return cfg.RiskScore(scoring.RiskInput{
		NetProgressDays:       p.NetProgressDays(pauses, now),
		ContractDays:          cfg.ContractDaysFor(p),
		IdleDays:              p.IdleDays,
		Financial:             p.Financial,
		Status:                p.Status,
		HadRework:             p.HadRework,
		DeliveredWithQuality:  p.DeliveredWithQuality,
		PredictedLatenessDays: lateness,
	})
}

// monthKey formats a month bucket identifier.
func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// semesterStart returns the first instant of the current semester.
func semesterStart(now time.Time) time.Time {
	if now.Month() <= time.June {
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(now.Year(), time.July, 1, 0, 0, 0, 0, time.UTC)
}

// round1 rounds to the single decimal every published figure uses.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
