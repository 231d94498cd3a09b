package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rollout/backend/internal/domain/rollout"
)

// DailySnapshotModel is the persistence model for the DailySnapshot domain entity.
type DailySnapshotModel struct {
	BaseModel
	Day            time.Time `gorm:"not null;uniqueIndex"`
	TotalProjects  int       `gorm:"not null;default:0"`
	InFlight       int       `gorm:"not null;default:0"`
	Completed      int       `gorm:"not null;default:0"`
	Blocked        int       `gorm:"not null;default:0"`
	Paused         int       `gorm:"not null;default:0"`
	Late           int       `gorm:"not null;default:0"`
	AvgRiskScore   float64   `gorm:"not null;default:0"`
	CriticalRisk   int       `gorm:"not null;default:0"`
	UtilizationPct float64   `gorm:"not null;default:0"`
	CompletedInDay int       `gorm:"not null;default:0"`
	StartedInDay   int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (DailySnapshotModel) TableName() string {
	return "daily_snapshots"
}

// ToDomain converts the persistence model to a domain DailySnapshot entity.
func (m *DailySnapshotModel) ToDomain() *rollout.DailySnapshot {
	return &rollout.DailySnapshot{
		BaseEntity:     m.BaseModel.ToDomain(),
		Day:            m.Day,
		TotalProjects:  m.TotalProjects,
		InFlight:       m.InFlight,
		Completed:      m.Completed,
		Blocked:        m.Blocked,
		Paused:         m.Paused,
		Late:           m.Late,
		AvgRiskScore:   m.AvgRiskScore,
		CriticalRisk:   m.CriticalRisk,
		UtilizationPct: m.UtilizationPct,
		CompletedInDay: m.CompletedInDay,
		StartedInDay:   m.StartedInDay,
	}
}

// FromDomain populates the persistence model from a domain DailySnapshot entity.
func (m *DailySnapshotModel) FromDomain(s *rollout.DailySnapshot) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.Day = s.Day
	m.TotalProjects = s.TotalProjects
	m.InFlight = s.InFlight
	m.Completed = s.Completed
	m.Blocked = s.Blocked
	m.Paused = s.Paused
	m.Late = s.Late
	m.AvgRiskScore = s.AvgRiskScore
	m.CriticalRisk = s.CriticalRisk
	m.UtilizationPct = s.UtilizationPct
	m.CompletedInDay = s.CompletedInDay
	m.StartedInDay = s.StartedInDay
}

// DailySnapshotModelFromDomain creates a new persistence model from a domain DailySnapshot entity.
func DailySnapshotModelFromDomain(s *rollout.DailySnapshot) *DailySnapshotModel {
	m := &DailySnapshotModel{}
	m.FromDomain(s)
	return m
}

// ProjectSnapshotModel is the persistence model for the ProjectSnapshot
// domain entity. One row per (day, project).
type ProjectSnapshotModel struct {
	BaseModel
	Day       time.Time             `gorm:"not null;uniqueIndex:uix_project_snapshots_day_project"`
	ProjectID uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:uix_project_snapshots_day_project;index"`
	Operator  string                `gorm:"type:varchar(100);index"`
	Network   string                `gorm:"type:varchar(100)"`
	Status    rollout.ProjectStatus `gorm:"type:varchar(20);not null"`
	IdleDays  int                   `gorm:"not null;default:0"`
	WIPPoints float64               `gorm:"not null;default:0"`
	MRR       decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	RiskScore float64               `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProjectSnapshotModel) TableName() string {
	return "project_snapshots"
}

// ToDomain converts the persistence model to a domain ProjectSnapshot entity.
func (m *ProjectSnapshotModel) ToDomain() *rollout.ProjectSnapshot {
	return &rollout.ProjectSnapshot{
		BaseEntity: m.BaseModel.ToDomain(),
		Day:        m.Day,
		ProjectID:  m.ProjectID,
		Operator:   m.Operator,
		Network:    m.Network,
		Status:     m.Status,
		IdleDays:   m.IdleDays,
		WIPPoints:  m.WIPPoints,
		MRR:        m.MRR,
		RiskScore:  m.RiskScore,
	}
}

// FromDomain populates the persistence model from a domain ProjectSnapshot entity.
func (m *ProjectSnapshotModel) FromDomain(s *rollout.ProjectSnapshot) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.Day = s.Day
	m.ProjectID = s.ProjectID
	m.Operator = s.Operator
	m.Network = s.Network
	m.Status = s.Status
	m.IdleDays = s.IdleDays
	m.WIPPoints = s.WIPPoints
	m.MRR = s.MRR
	m.RiskScore = s.RiskScore
}

// SettingModel is the persistence model for the Setting domain entity.
type SettingModel struct {
	BaseModel
	Key   string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Value string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SettingModel) TableName() string {
	return "settings"
}

// ToDomain converts the persistence model to a domain Setting entity.
func (m *SettingModel) ToDomain() *rollout.Setting {
	return &rollout.Setting{
		BaseEntity: m.BaseModel.ToDomain(),
		Key:        m.Key,
		Value:      m.Value,
	}
}

// FromDomain populates the persistence model from a domain Setting entity.
func (m *SettingModel) FromDomain(s *rollout.Setting) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.Key = s.Key
	m.Value = s.Value
}
