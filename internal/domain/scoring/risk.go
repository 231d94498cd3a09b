package scoring

import (
	"math"

	"github.com/rollout/backend/internal/domain/rollout"
)

// RiskLevel is the qualitative band of a project risk score.
type RiskLevel string

const (
	RiskHealthy   RiskLevel = "HEALTHY"
	RiskAttention RiskLevel = "ATTENTION"
	RiskAtRisk    RiskLevel = "AT_RISK"
	RiskCritical  RiskLevel = "CRITICAL"
)

// rank orders risk levels for escalation comparisons.
func (l RiskLevel) rank() int {
	switch l {
	case RiskAttention:
		return 1
	case RiskAtRisk:
		return 2
	case RiskCritical:
		return 3
	default:
		return 0
	}
}

// RiskInput is the per-project snapshot the risk score is computed from.
// Callers resolve net progress days and predicted lateness beforehand; a
// zero PredictedLatenessDays means no prediction is available.
type RiskInput struct {
	NetProgressDays       int
	ContractDays          int
	IdleDays              int
	Financial             rollout.FinancialStanding
	Status                rollout.ProjectStatus
	HadRework             bool
	DeliveredWithQuality  bool
	PredictedLatenessDays float64
}

// RiskScore is a 0-100 risk figure, higher is worse, with its pillar breakdown.
type RiskScore struct {
	Total float64   `json:"total"`
	Level RiskLevel `json:"level"`

	Schedule  float64 `json:"schedule"`
	Idle      float64 `json:"idle"`
	Financial float64 `json:"financial"`
	Quality   float64 `json:"quality"`
}

// RiskScore computes the four-pillar project risk score.
func (c Config) RiskScore(in RiskInput) RiskScore {
	schedule := c.schedulePillar(in)
	idle := idlePillar(in.IdleDays)
	financial := financialPillar(in.Financial, in.Status)
	quality := qualityPillar(in.HadRework, in.DeliveredWithQuality)

	total := round1(schedule*c.ScheduleWeight +
		idle*c.IdleWeight +
		financial*c.FinancialWeight +
		quality*c.QualityWeight)

	return RiskScore{
		Total:     total,
		Level:     ClassifyRisk(total),
		Schedule:  schedule,
		Idle:      idle,
		Financial: financial,
		Quality:   quality,
	}
}

// ClassifyRisk maps a total risk score into its band. Bands are inclusive,
// non-overlapping and cover the whole 0-100 range.
func ClassifyRisk(total float64) RiskLevel {
	switch {
	case total < 25:
		return RiskHealthy
	case total < 50:
		return RiskAttention
	case total < 75:
		return RiskAtRisk
	default:
		return RiskCritical
	}
}

// schedulePillar scores contract-time consumption. The threshold table is
// evaluated in ascending order; an undefined ratio (no contract) is treated
// as severe. A predicted-lateness override can only raise the result.
func (c Config) schedulePillar(in RiskInput) float64 {
	contract := in.ContractDays
	if contract <= 0 {
		contract = rollout.DefaultContractDays
	}

	ratio := 1.5 // undefined ratio counts as badly late
	if contract > 0 {
		ratio = float64(in.NetProgressDays) / float64(contract)
	}

	var score float64
	switch {
	case ratio < 0.65:
		score = 10
	case ratio < 0.80:
		score = 30
	case ratio < 1.00:
		score = 60
	case ratio < 1.15:
		score = 85
	default:
		score = 100
	}

	switch {
	case in.PredictedLatenessDays > 30:
		score = math.Max(score, 100)
	case in.PredictedLatenessDays > 15:
		score = math.Max(score, 85)
	case in.PredictedLatenessDays > 7:
		score = math.Max(score, 60)
	}
	return score
}

// idlePillar scores days without tracker activity.
func idlePillar(idleDays int) float64 {
	switch {
	case idleDays <= 2:
		return 0
	case idleDays <= 5:
		return 25
	case idleDays <= 10:
		return 60
	case idleDays <= 20:
		return 85
	default:
		return 100
	}
}

// financialPillar scores the billing standing. Owing on a project that is
// already delivered is the worst case.
func financialPillar(standing rollout.FinancialStanding, status rollout.ProjectStatus) float64 {
	switch standing {
	case rollout.FinancialOnTime, rollout.FinancialPaid:
		return 0
	case rollout.FinancialPending:
		return 20
	case rollout.FinancialOwing, rollout.FinancialDelinquent:
		if status == rollout.StatusDone {
			return 90
		}
		return 70
	default:
		return 0
	}
}

// qualityPillar scores rework. An explicit delivered-with-quality mark zeroes
// the pillar even when rework happened; that precedence is intentional.
func qualityPillar(hadRework, deliveredWithQuality bool) float64 {
	if deliveredWithQuality {
		return 0
	}
	if hadRework {
		return 60
	}
	return 0
}

// DisplayTier computes the qualitative tier shown on dashboards. When the
// predicted lateness passes the 7-day threshold the numeric risk is boosted
// by lateness and idleness; past 14 days the boost may escalate all the way
// to CRITICAL. The tier never drops below the plain band of the score.
func (c Config) DisplayTier(score RiskScore, latenessDays float64) RiskLevel {
	base := score.Level
	if latenessDays <= 7 {
		return base
	}

	boost := latenessDays*2 + score.Idle*0.5
	boosted := ClassifyRisk(math.Min(100, score.Total+boost))

	// Moderate lateness escalates at most to AT_RISK.
	if latenessDays <= 14 && boosted.rank() > RiskAtRisk.rank() {
		boosted = RiskAtRisk
	}
	if boosted.rank() > base.rank() {
		return boosted
	}
	return base
}
