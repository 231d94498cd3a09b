package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rollout/backend/internal/domain/rollout"
)

func TestSchedulePillar(t *testing.T) {
	cfg := DefaultConfig()

	cases := []struct {
		name     string
		net      int
		contract int
		want     float64
	}{
		{"Well within contract", 30, 90, 10},
		{"At 65 percent", 59, 90, 30},  // 59/90 = 0.655
		{"At 80-100 percent", 85, 90, 60},
		{"Light overrun", 100, 90, 85}, // ratio 1.11
		{"Heavy overrun", 120, 90, 100},
		{"Zero contract falls back to default 90", 120, 0, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cfg.schedulePillar(RiskInput{NetProgressDays: tc.net, ContractDays: tc.contract})
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("Predicted lateness only raises the pillar", func(t *testing.T) {
		in := RiskInput{NetProgressDays: 30, ContractDays: 90} // table score 10
		in.PredictedLatenessDays = 8
		assert.Equal(t, float64(60), cfg.schedulePillar(in))
		in.PredictedLatenessDays = 16
		assert.Equal(t, float64(85), cfg.schedulePillar(in))
		in.PredictedLatenessDays = 31
		assert.Equal(t, float64(100), cfg.schedulePillar(in))

		// a table score above the override floor is kept
		in = RiskInput{NetProgressDays: 120, ContractDays: 90, PredictedLatenessDays: 8}
		assert.Equal(t, float64(100), cfg.schedulePillar(in))
	})
}

func TestIdlePillarMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	prev := -1.0
	// crossing every threshold boundary: 2, 5, 10, 20
	for _, idle := range []int{0, 2, 3, 5, 6, 10, 11, 20, 21, 50} {
		in := RiskInput{NetProgressDays: 30, ContractDays: 90, IdleDays: idle}
		total := cfg.RiskScore(in).Total
		assert.GreaterOrEqual(t, total, prev, "idle=%d", idle)
		prev = total
	}
}

func TestFinancialPillar(t *testing.T) {
	assert.Equal(t, float64(0), financialPillar(rollout.FinancialOnTime, rollout.StatusInProgress))
	assert.Equal(t, float64(0), financialPillar(rollout.FinancialPaid, rollout.StatusInProgress))
	assert.Equal(t, float64(20), financialPillar(rollout.FinancialPending, rollout.StatusInProgress))
	assert.Equal(t, float64(70), financialPillar(rollout.FinancialOwing, rollout.StatusInProgress))
	assert.Equal(t, float64(70), financialPillar(rollout.FinancialDelinquent, rollout.StatusBlocked))
	assert.Equal(t, float64(0), financialPillar(rollout.FinancialUnknown, rollout.StatusInProgress))

	t.Run("Owing after delivery escalates to 90", func(t *testing.T) {
		assert.Equal(t, float64(90), financialPillar(rollout.FinancialOwing, rollout.StatusDone))
		assert.Equal(t, float64(90), financialPillar(rollout.FinancialDelinquent, rollout.StatusDone))
	})
}

func TestQualityPillarOverride(t *testing.T) {
	t.Run("Rework scores 60", func(t *testing.T) {
		assert.Equal(t, float64(60), qualityPillar(true, false))
	})
	t.Run("Delivered with quality zeroes the pillar even with rework", func(t *testing.T) {
		assert.Equal(t, float64(0), qualityPillar(true, true))
	})
	t.Run("Clean delivery scores 0", func(t *testing.T) {
		assert.Equal(t, float64(0), qualityPillar(false, false))
	})
}

// Scenario: contract 90, started 120 days ago, still running, idle 0,
// finances in order, no rework. Ratio 1.33 puts the schedule pillar past the
// severe threshold.
func TestRiskScoreScenarioLateCleanProject(t *testing.T) {
	cfg := DefaultConfig()
	score := cfg.RiskScore(RiskInput{
		NetProgressDays:      120,
		ContractDays:         90,
		IdleDays:             0,
		Financial:            rollout.FinancialOnTime,
		Status:               rollout.StatusInProgress,
		HadRework:            false,
		DeliveredWithQuality: false,
	})

	assert.Equal(t, float64(100), score.Schedule)
	assert.Equal(t, float64(0), score.Idle)
	assert.Equal(t, float64(0), score.Financial)
	assert.Equal(t, float64(0), score.Quality)
	assert.Equal(t, float64(45), score.Total) // 0.45 * 100
	assert.Equal(t, RiskAttention, score.Level)
}

// Schedule pillar 85 (ratio 1.11), everything else clean: 0.45*85 = 38.3.
func TestRiskScoreScenarioLightOverrun(t *testing.T) {
	cfg := DefaultConfig()
	score := cfg.RiskScore(RiskInput{
		NetProgressDays: 100,
		ContractDays:    90,
		Financial:       rollout.FinancialOnTime,
		Status:          rollout.StatusInProgress,
	})
	assert.Equal(t, float64(85), score.Schedule)
	assert.Equal(t, 38.3, score.Total)
	assert.Equal(t, RiskAttention, score.Level)
}

func TestClassifyRiskBands(t *testing.T) {
	assert.Equal(t, RiskHealthy, ClassifyRisk(0))
	assert.Equal(t, RiskHealthy, ClassifyRisk(24.9))
	assert.Equal(t, RiskAttention, ClassifyRisk(25))
	assert.Equal(t, RiskAttention, ClassifyRisk(49.9))
	assert.Equal(t, RiskAtRisk, ClassifyRisk(50))
	assert.Equal(t, RiskAtRisk, ClassifyRisk(74.9))
	assert.Equal(t, RiskCritical, ClassifyRisk(75))
	assert.Equal(t, RiskCritical, ClassifyRisk(100))
}

func TestDisplayTier(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("No escalation at or below 7 days late", func(t *testing.T) {
		s := RiskScore{Total: 40, Level: RiskAttention, Idle: 60}
		assert.Equal(t, RiskAttention, cfg.DisplayTier(s, 7))
	})

	t.Run("Moderate lateness escalates at most to AT_RISK", func(t *testing.T) {
		s := RiskScore{Total: 40, Level: RiskAttention, Idle: 60}
		assert.Equal(t, RiskAtRisk, cfg.DisplayTier(s, 10))
	})

	t.Run("Heavy lateness can reach CRITICAL", func(t *testing.T) {
		s := RiskScore{Total: 40, Level: RiskAttention, Idle: 60}
		assert.Equal(t, RiskCritical, cfg.DisplayTier(s, 20))
	})

	t.Run("Never de-escalates", func(t *testing.T) {
		s := RiskScore{Total: 80, Level: RiskCritical}
		assert.Equal(t, RiskCritical, cfg.DisplayTier(s, 0))
		assert.Equal(t, RiskCritical, cfg.DisplayTier(s, 10))
	})
}
