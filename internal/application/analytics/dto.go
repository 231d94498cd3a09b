package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/domain/scoring"
)

// KPICards are the headline figures at the top of the dashboard.
type KPICards struct {
	WIPStores        int             `json:"wip_stores"`
	ThroughputPeriod int             `json:"throughput_period"`
	MRRBacklog       decimal.Decimal `json:"mrr_backlog"`
	MRRDonePeriod    decimal.Decimal `json:"mrr_done_period"`
	CycleTimeAvg     float64         `json:"cycle_time_avg"`
	OTDPercentage    float64         `json:"otd_percentage"`
	IdleStoresCount  int             `json:"idle_stores_count"`
	AvgRiskScore     float64         `json:"avg_risk_score"`
	MatrizCount      int             `json:"matriz_count"`
	FilialCount      int             `json:"filial_count"`
	TotalPointsDone  float64         `json:"total_points_done"`
	TotalPointsWIP   float64         `json:"total_points_wip"`
}

// KPIFilter narrows the KPI window.
type KPIFilter struct {
	From     *time.Time
	To       *time.Time
	Operator string
}

// window resolves the filter's half-open [from, to) interval, defaulting to
// the current calendar month up to now.
func (f KPIFilter) window(now time.Time) (time.Time, time.Time) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if f.From != nil {
		from = *f.From
	}
	to := now
	if f.To != nil {
		to = *f.To
	}
	return from, to
}

// TrendPoint is one month of throughput history.
type TrendPoint struct {
	Month         string          `json:"month"` // YYYY-MM
	Completed     int             `json:"completed"`
	MRRDone       decimal.Decimal `json:"mrr_done"`
	Points        float64         `json:"points"`
	AvgCycleDays  float64         `json:"avg_cycle_days"`
	OTDPercentage float64         `json:"otd_percentage"`
}

// OperatorDetail is the full breakdown behind one ranking row.
type OperatorDetail struct {
	Score    scoring.PerformanceScore `json:"score"`
	Projects []ProjectSummary         `json:"projects"`
}

// ProjectSummary is the compact project view used in listings.
type ProjectSummary struct {
	ID           string                 `json:"id"`
	TaskRef      string                 `json:"task_ref"`
	StoreCode    string                 `json:"store_code"`
	Name         string                 `json:"name"`
	Status       rollout.ProjectStatus  `json:"status"`
	Operator     string                 `json:"operator"`
	Network      string                 `json:"network"`
	Class        rollout.StoreClass     `json:"class"`
	MonthlyValue decimal.Decimal        `json:"monthly_value"`
	NetDays      int                    `json:"net_days"`
	IdleDays     int                    `json:"idle_days"`
	RiskScore    float64                `json:"risk_score"`
	RiskLevel    scoring.RiskLevel      `json:"risk_level"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	FinishedAt   *time.Time             `json:"finished_at,omitempty"`
}

// CapacityEntry is one operator's load row.
type CapacityEntry struct {
	Operator              string            `json:"operator"`
	CurrentPoints         float64           `json:"current_points"`
	FinishedPointsSemester float64          `json:"finished_points_semester"`
	TotalSemesterPoints   float64           `json:"total_semester_points"`
	MaxPoints             float64           `json:"max_points"`
	StoreCount            int               `json:"store_count"`
	FinishedCountSemester int               `json:"finished_count_semester"`
	UtilizationPct        float64           `json:"utilization_pct"`
	LoadLevel             scoring.LoadLevel `json:"load_level"`
	ActiveNetworks        []string          `json:"active_networks"`
}

// BottleneckEntry aggregates one stage's accumulated time.
type BottleneckEntry struct {
	Stage        string  `json:"stage"`
	StepCount    int     `json:"step_count"`
	TotalDays    float64 `json:"total_days"`
	AvgDays      float64 `json:"avg_days"`
	Reopens      int     `json:"reopens"`
	OpenSteps    int     `json:"open_steps"`
	MaxIdleDays  int     `json:"max_idle_days"`
}

// ProjectRiskView is the risk breakdown served per project.
type ProjectRiskView struct {
	ProjectID             string            `json:"project_id"`
	Score                 scoring.RiskScore `json:"score"`
	DisplayTier           scoring.RiskLevel `json:"display_tier"`
	NetProgressDays       int               `json:"net_progress_days"`
	ContractDays          int               `json:"contract_days"`
	IdleDays              int               `json:"idle_days"`
	PredictedLatenessDays float64           `json:"predicted_lateness_days"`
}
