package scoring

// LoadLevel classifies an operator's capacity utilization.
type LoadLevel string

const (
	LoadLow      LoadLevel = "LOW"
	LoadNormal   LoadLevel = "NORMAL"
	LoadHigh     LoadLevel = "HIGH"
	LoadCritical LoadLevel = "CRITICAL"
)

// Utilization converts load points into a percentage of the capacity ceiling.
// A non-positive ceiling short-circuits to 0 rather than dividing by zero.
func (c Config) Utilization(loadPoints float64) float64 {
	if c.CapacityCeiling <= 0 {
		return 0
	}
	return round1(loadPoints / c.CapacityCeiling * 100)
}

// ClassifyLoad maps a utilization percentage into its band. The thresholds
// are configurable but stay strictly ordered, so the bands are exhaustive
// and non-overlapping over [0, +inf).
func (c Config) ClassifyLoad(utilizationPct float64) LoadLevel {
	switch {
	case utilizationPct < c.LowLoadThreshold:
		return LoadLow
	case utilizationPct < c.HighLoadThreshold:
		return LoadNormal
	case utilizationPct < c.CriticalLoadThreshold:
		return LoadHigh
	default:
		return LoadCritical
	}
}
