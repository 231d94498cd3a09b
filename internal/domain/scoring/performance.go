package scoring

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rollout/backend/internal/domain/rollout"
)

// CompletedDelivery is one finished project inside an operator's scoring window.
type CompletedDelivery struct {
	Class        rollout.StoreClass
	NetDays      int
	ContractDays int
	HadRework    bool
	MonthlyValue decimal.Decimal
}

// OnTime reports whether the delivery landed within its contract.
func (d CompletedDelivery) OnTime() bool {
	contract := d.ContractDays
	if contract <= 0 {
		contract = rollout.DefaultContractDays
	}
	return d.NetDays <= contract
}

// OperatorWindow is the scoring input for one operator: the completed
// deliveries inside the ranking window plus the current in-flight count.
type OperatorWindow struct {
	Operator  string
	Completed []CompletedDelivery
	InFlight  int
}

// PerformanceScore is a 0-100 operator score, higher is better, with its
// pillar breakdown and the raw figures the pillars were derived from.
type PerformanceScore struct {
	Operator string  `json:"operator"`
	Score    float64 `json:"score"`

	Volume     float64 `json:"volume"`
	OTD        float64 `json:"otd"`
	Quality    float64 `json:"quality"`
	Efficiency float64 `json:"efficiency"`

	CompletedCount int             `json:"completed"`
	InFlight       int             `json:"in_flight"`
	WeightedVolume float64         `json:"weighted_volume"`
	OTDPercent     float64         `json:"otd_percent"`
	ReworkPercent  float64         `json:"rework_percent"`
	AvgCycleDays   float64         `json:"avg_cycle_days"`
	MRRDelivered   decimal.Decimal `json:"mrr_delivered"`
	LowSample      bool            `json:"low_sample"`
}

// RankOperators scores every operator window and returns the ranking in
// descending score order. Ties keep the input order (stable sort). Operators
// with zero completed deliveries score 0 but keep their in-flight count for
// display.
func (c Config) RankOperators(windows []OperatorWindow) []PerformanceScore {
	scores := make([]PerformanceScore, 0, len(windows))

	// First pass: raw per-operator figures.
	for _, w := range windows {
		s := PerformanceScore{
			Operator:       w.Operator,
			InFlight:       w.InFlight,
			CompletedCount: len(w.Completed),
			MRRDelivered:   decimal.Zero,
		}

		totalDays := 0
		onTime := 0
		rework := 0
		for _, d := range w.Completed {
			s.WeightedVolume += c.ClassWeight(d.Class)
			totalDays += d.NetDays
			if d.OnTime() {
				onTime++
			}
			if d.HadRework {
				rework++
			}
			s.MRRDelivered = s.MRRDelivered.Add(d.MonthlyValue)
		}

		if done := len(w.Completed); done > 0 {
			s.OTDPercent = round1(float64(onTime) / float64(done) * 100)
			s.ReworkPercent = round1(float64(rework) / float64(done) * 100)
			s.AvgCycleDays = round1(float64(totalDays) / float64(done))
			s.LowSample = done < c.MinDeliveriesForRanking
		}
		scores = append(scores, s)
	}

	// Normalization anchors: max weighted volume and global mean cycle time.
	maxVolume := 0.0
	globalCycle := 0.0
	operatorsWithCycle := 0
	for _, s := range scores {
		if s.WeightedVolume > maxVolume {
			maxVolume = s.WeightedVolume
		}
		if s.CompletedCount > 0 {
			globalCycle += s.AvgCycleDays
			operatorsWithCycle++
		}
	}
	if operatorsWithCycle > 0 {
		globalCycle /= float64(operatorsWithCycle)
	}

	// Second pass: pillar scores and the weighted total.
	for i := range scores {
		s := &scores[i]
		if s.CompletedCount == 0 {
			continue // no deliveries, score stays 0
		}

		if maxVolume > 0 {
			s.Volume = round1(s.WeightedVolume / maxVolume * 100)
		}
		s.OTD = s.OTDPercent
		s.Quality = round1(100 - s.ReworkPercent)
		s.Efficiency = efficiencyScore(s.AvgCycleDays, globalCycle)

		s.Score = round1(s.Volume*c.VolumeWeight +
			s.OTD*c.OTDWeight +
			s.Quality*c.QualityPerfWeight +
			s.Efficiency*c.EfficiencyWeight)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}

// efficiencyScore compares an operator's average cycle time against the
// global average across the ranking window.
func efficiencyScore(avgCycle, globalCycle float64) float64 {
	if avgCycle <= 0 || globalCycle <= 0 {
		return 100
	}
	switch {
	case avgCycle > 1.2*globalCycle:
		return 40
	case avgCycle > globalCycle:
		return 70
	default:
		return 100
	}
}
