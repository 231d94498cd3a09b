package rollout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rollout/backend/internal/domain/shared"
)

// DailySnapshot captures the portfolio totals at the end of a day so that
// trend charts survive tracker-side edits and deletions.
type DailySnapshot struct {
	shared.BaseEntity

	Day            time.Time `json:"day"`
	TotalProjects  int       `json:"total_projects"`
	InFlight       int       `json:"in_flight"`
	Completed      int       `json:"completed"`
	Blocked        int       `json:"blocked"`
	Paused         int       `json:"paused"`
	Late           int       `json:"late"`
	AvgRiskScore   float64   `json:"avg_risk_score"`
	CriticalRisk   int       `json:"critical_risk"`
	UtilizationPct float64   `json:"utilization_pct"`
	CompletedInDay int       `json:"completed_in_day"`
	StartedInDay   int       `json:"started_in_day"`
}

// NewDailySnapshot creates a snapshot anchored to midnight UTC of the given day.
func NewDailySnapshot(day time.Time) *DailySnapshot {
	return &DailySnapshot{
		BaseEntity: shared.NewBaseEntity(),
		Day:        day.UTC().Truncate(24 * time.Hour),
	}
}

// ProjectSnapshot records one project's standing at the end of a day. One row
// exists per (day, project); re-capturing the same day replaces it.
type ProjectSnapshot struct {
	shared.BaseEntity

	Day       time.Time       `json:"day"`
	ProjectID uuid.UUID       `json:"project_id"`
	Operator  string          `json:"operator"`
	Network   string          `json:"network"`
	Status    ProjectStatus   `json:"status"`
	IdleDays  int             `json:"idle_days"`
	WIPPoints float64         `json:"wip_points"`
	MRR       decimal.Decimal `json:"mrr"`
	RiskScore float64         `json:"risk_score"`
}

// NewProjectSnapshot creates a per-project snapshot anchored to midnight UTC.
func NewProjectSnapshot(day time.Time, projectID uuid.UUID) *ProjectSnapshot {
	return &ProjectSnapshot{
		BaseEntity: shared.NewBaseEntity(),
		Day:        day.UTC().Truncate(24 * time.Hour),
		ProjectID:  projectID,
		MRR:        decimal.Zero,
	}
}
