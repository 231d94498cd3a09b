package rollout

import (
	"strings"

	"github.com/rollout/backend/internal/domain/shared"
)

// Setting is an operator-tunable key/value pair persisted alongside the
// rollout data. Values are stored as strings and parsed by the consumer.
type Setting struct {
	shared.BaseEntity

	Key   string `json:"key"`
	Value string `json:"value"`
}

// Well-known setting keys.
const (
	SettingCapacityCeiling = "capacity_ceiling"
	SettingContractDays    = "contract_days"
	SettingLeadMonths      = "forecast_lead_months"
	SettingMatrizWeight    = "weight_matriz"
	SettingFilialWeight    = "weight_filial"
	SettingMinDeliveries   = "min_deliveries_for_ranking"
	SettingMinStageSamples = "min_stage_samples"

	// Risk pillar weights.
	SettingScheduleWeight    = "weight_schedule"
	SettingIdleWeight        = "weight_idle"
	SettingFinancialWeight   = "weight_financial"
	SettingRiskQualityWeight = "weight_quality"

	// Performance pillar weights.
	SettingVolumeWeight      = "weight_volume"
	SettingOTDWeight         = "weight_otd"
	SettingPerfQualityWeight = "weight_quality_perf"
	SettingEfficiencyWeight  = "weight_efficiency"
)

var ErrSettingInvalidKey = shared.NewDomainError("SETTING_INVALID_KEY", "Setting key cannot be empty")

// NewSetting creates a setting with a normalized key.
func NewSetting(key, value string) (*Setting, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return nil, ErrSettingInvalidKey
	}
	return &Setting{
		BaseEntity: shared.NewBaseEntity(),
		Key:        key,
		Value:      value,
	}, nil
}
