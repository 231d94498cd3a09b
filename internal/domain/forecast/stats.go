// Package forecast implements completion-time estimation for rollout
// projects: per-stage duration statistics mined from historical steps and a
// predictor that projects remaining work for in-flight projects.
package forecast

import "sort"

// Fallbacks applied when a stage has no usable history. Kept deliberately
// conservative: an unknown stage is assumed to take about a work week.
const (
	fallbackStageDays   = 5.0
	fallbackP75Stretch  = 1.2
	minSamplesForFilter = 5
)

// StageStats summarizes the historical duration distribution of one stage.
type StageStats struct {
	Mean  float64
	P50   float64
	P75   float64
	Count int
}

// StageSample is one closed historical step used to train the statistics.
type StageSample struct {
	Stage string
	Days  float64
}

// BuildStageStats groups samples by stage and computes outlier-adjusted
// duration statistics. Stages with fewer than five samples skip the outlier
// filter and fall back to plain averages; the sample count is preserved so
// the predictor can downgrade confidence.
func BuildStageStats(samples []StageSample) map[string]StageStats {
	grouped := make(map[string][]float64)
	for _, s := range samples {
		if s.Stage == "" || s.Days <= 0 {
			continue
		}
		grouped[s.Stage] = append(grouped[s.Stage], s.Days)
	}

	stats := make(map[string]StageStats, len(grouped))
	for stage, values := range grouped {
		stats[stage] = computeStageStats(values)
	}
	return stats
}

func computeStageStats(values []float64) StageStats {
	n := len(values)
	if n < minSamplesForFilter {
		mean := meanOf(values)
		if mean <= 0 {
			mean = fallbackStageDays
		}
		return StageStats{Mean: mean, P50: mean, P75: mean * fallbackP75Stretch, Count: n}
	}

	// Tukey fence on the upper side only: rollout stages have a hard lower
	// bound at zero but stall for months on the high end.
	q1 := quantile(values, 0.25)
	q3 := quantile(values, 0.75)
	upper := q3 + 1.5*(q3-q1)

	clean := values[:0:0]
	for _, v := range values {
		if v <= upper {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		clean = values
	}

	return StageStats{
		Mean:  meanOf(clean),
		P50:   quantile(clean, 0.50),
		P75:   quantile(clean, 0.75),
		Count: n,
	}
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// quantile returns the q-th quantile (0..1) using linear interpolation
// between closest ranks.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
