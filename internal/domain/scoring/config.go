// Package scoring implements the risk and performance scoring engine for
// rollout projects and operators. All functions are pure over their inputs;
// callers load entities and tune the weights through Config.
package scoring

import (
	"math"

	"github.com/rollout/backend/internal/domain/rollout"
)

// Config carries every tunable weight and threshold of the scoring engine.
// The zero value is not usable; start from DefaultConfig and apply overrides
// from the settings store.
type Config struct {
	// Risk pillar weights, must sum to 1.0
	ScheduleWeight  float64
	IdleWeight      float64
	FinancialWeight float64
	QualityWeight   float64

	// Performance pillar weights, must sum to 1.0
	VolumeWeight      float64
	OTDWeight         float64
	QualityPerfWeight float64
	EfficiencyWeight  float64

	// Store class volume/load weights
	MatrizWeight float64
	FilialWeight float64

	// Capacity
	CapacityCeiling       float64 // load points one operator can absorb
	LowLoadThreshold      float64 // utilization %, below = LOW
	HighLoadThreshold     float64 // utilization %, above = HIGH
	CriticalLoadThreshold float64 // utilization %, at or above = CRITICAL

	// Contract
	DefaultContractDays int // contractual duration assumed when a project has none

	// Ranking
	MinDeliveriesForRanking int // below this an operator is flagged low-sample

	// Prediction
	MinStageSamples int // stage histories smaller than this lower confidence
}

// DefaultConfig returns the standardized v1.0 weights and thresholds.
func DefaultConfig() Config {
	return Config{
		ScheduleWeight:  0.45,
		IdleWeight:      0.25,
		FinancialWeight: 0.20,
		QualityWeight:   0.10,

		VolumeWeight:      0.40,
		OTDWeight:         0.30,
		QualityPerfWeight: 0.20,
		EfficiencyWeight:  0.10,

		MatrizWeight: 1.0,
		FilialWeight: 0.7,

		CapacityCeiling:       30.0,
		LowLoadThreshold:      40.0,
		HighLoadThreshold:     90.0,
		CriticalLoadThreshold: 110.0,

		DefaultContractDays: rollout.DefaultContractDays,

		MinDeliveriesForRanking: 5,
		MinStageSamples:         10,
	}
}

// ClassWeight returns the volume/load weight of a store class. Anything that
// is not an explicit Matriz counts as Filial.
func (c Config) ClassWeight(class rollout.StoreClass) float64 {
	if class == rollout.ClassMatriz {
		return c.MatrizWeight
	}
	return c.FilialWeight
}

// ContractDaysFor resolves a project's contractual duration, falling back to
// the configured default when the project carries none.
func (c Config) ContractDaysFor(p *rollout.Project) int {
	if p.ContractDays > 0 {
		return p.ContractDays
	}
	if c.DefaultContractDays > 0 {
		return c.DefaultContractDays
	}
	return rollout.DefaultContractDays
}

// round1 rounds to one decimal place, the precision every published score uses.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
