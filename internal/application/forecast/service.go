package forecast

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rollout/backend/internal/domain/rollout"
)

// ForecastService serves the financial and go-live forecast reads.
type ForecastService struct {
	projects   rollout.ProjectRepository
	settings   rollout.SettingRepository
	leadMonths int
	logger     *zap.Logger

	now func() time.Time
}

// NewForecastService creates the forecast service. settings may be nil;
// leadMonths <= 0 falls back to the built-in horizon.
func NewForecastService(projects rollout.ProjectRepository, settings rollout.SettingRepository, leadMonths int, logger *zap.Logger) *ForecastService {
	if leadMonths <= 0 {
		leadMonths = defaultLeadMonths
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForecastService{
		projects:   projects,
		settings:   settings,
		leadMonths: leadMonths,
		logger:     logger,
		now:        time.Now,
	}
}

// effectiveLeadMonths resolves the projection horizon: the stored setting
// wins over the configured value.
func (s *ForecastService) effectiveLeadMonths(ctx context.Context) int {
	if v, ok := s.settingInt(ctx, rollout.SettingLeadMonths); ok && v > 0 {
		return v
	}
	return s.leadMonths
}

// defaultContractDays resolves the contractual duration assumed for projects
// that carry none, honoring the stored override.
func (s *ForecastService) defaultContractDays(ctx context.Context) int {
	if v, ok := s.settingInt(ctx, rollout.SettingContractDays); ok && v > 0 {
		return v
	}
	return rollout.DefaultContractDays
}

// settingInt reads one stored numeric setting. A missing repository, absent
// key, or malformed value reads as not-set.
func (s *ForecastService) settingInt(ctx context.Context, key string) (int, bool) {
	if s.settings == nil {
		return 0, false
	}
	setting, err := s.settings.FindByKey(ctx, key)
	if err != nil || setting == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(setting.Value, 64)
	if err != nil {
		s.logger.Warn("ignoring malformed setting",
			zap.String("key", key),
			zap.String("value", setting.Value))
		return 0, false
	}
	return int(v), true
}
