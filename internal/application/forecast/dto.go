// Package forecast serves the projection reads: the financial MRR forecast,
// the go-live listing and the per-project completion prediction built on the
// stage-duration statistics.
package forecast

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rollout/backend/internal/domain/rollout"
)

// FinancialPoint is one month of the MRR forecast chart.
type FinancialPoint struct {
	Month     string          `json:"month"` // YYYY-MM
	Realized  decimal.Decimal `json:"realized"`
	Projected decimal.Decimal `json:"projected"`
	IsFuture  bool            `json:"is_future"`
}

// GoLiveStatus is the projected delivery situation of one store.
type GoLiveStatus string

const (
	GoLiveDone    GoLiveStatus = "GO_LIVE"
	GoLiveLate    GoLiveStatus = "ATRASADA"
	GoLiveOnTrack GoLiveStatus = "DENTRO_PRAZO"
)

// GoLiveEntry is one store on the go-live forecast listing.
type GoLiveEntry struct {
	ProjectID  string                `json:"project_id"`
	StoreCode  string                `json:"store_code"`
	Name       string                `json:"name"`
	Network    string                `json:"network"`
	Operator   string                `json:"operator"`
	Class      rollout.StoreClass    `json:"class"`
	Stage      rollout.ProjectStatus `json:"stage"`
	GoLiveDate time.Time             `json:"go_live_date"`
	Month      string                `json:"month"` // YYYY-MM
	Status     GoLiveStatus          `json:"status"`
	StartedAt  *time.Time            `json:"started_at,omitempty"`
}

// GoLiveFilter narrows the go-live listing.
type GoLiveFilter struct {
	Operator string
	Network  string
	Status   GoLiveStatus
	Year     int
	Month    time.Month
}

// GoLiveMonthSummary aggregates the go-live listing per month.
type GoLiveMonthSummary struct {
	Month       string          `json:"month"`
	TotalStores int             `json:"total_stores"`
	MatrizCount int             `json:"matriz_count"`
	FilialCount int             `json:"filial_count"`
	TotalMRR    decimal.Decimal `json:"total_mrr"`
	RiskCount   int             `json:"risk_count"` // stores already past their date
}
