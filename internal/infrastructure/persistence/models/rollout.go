package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rollout/backend/internal/domain/rollout"
)

// ProjectModel is the persistence model for the Project domain entity.
type ProjectModel struct {
	BaseModel
	TaskRef    string `gorm:"type:varchar(50);not null;uniqueIndex"`
	StoreCode  string `gorm:"type:varchar(50);index"`
	Name       string `gorm:"type:varchar(200);not null"`
	TrackerURL string `gorm:"type:varchar(500)"`

	RawStatus string                 `gorm:"type:varchar(100)"`
	Status    rollout.ProjectStatus  `gorm:"type:varchar(20);not null;default:'IN_PROGRESS';index"`

	TrackerCreatedAt *time.Time
	ReportedStartAt  *time.Time
	ReportedClosedAt *time.Time
	ManualFinishedAt *time.Time
	ManualGoLiveDate *time.Time

	ContractDays int                       `gorm:"not null;default:90"`
	MonthlyValue decimal.Decimal           `gorm:"type:decimal(18,4);not null;default:0"`
	SetupValue   decimal.Decimal           `gorm:"type:decimal(18,4);not null;default:0"`
	Financial    rollout.FinancialStanding `gorm:"type:varchar(20);not null;default:'UNKNOWN'"`
	FinancialRaw string                    `gorm:"type:varchar(100)"`

	HadRework            bool   `gorm:"not null;default:false"`
	ReworkType           string `gorm:"type:varchar(100)"`
	DeliveredWithQuality bool   `gorm:"not null;default:true"`

	IdleDays int `gorm:"not null;default:0"`

	Operator string             `gorm:"type:varchar(100);index"`
	Network  string             `gorm:"type:varchar(100);index"`
	Class    rollout.StoreClass `gorm:"type:varchar(20);not null;default:'Filial'"`
	ParentID *uuid.UUID         `gorm:"type:uuid;index"`

	ERP  string `gorm:"type:varchar(100)"`
	CRM  string `gorm:"type:varchar(100)"`
	CNPJ string `gorm:"type:varchar(20)"`
}

// TableName returns the table name for GORM
func (ProjectModel) TableName() string {
	return "projects"
}

// ToDomain converts the persistence model to a domain Project entity.
func (m *ProjectModel) ToDomain() *rollout.Project {
	return &rollout.Project{
		BaseEntity:           m.BaseModel.ToDomain(),
		TaskRef:              m.TaskRef,
		StoreCode:            m.StoreCode,
		Name:                 m.Name,
		TrackerURL:           m.TrackerURL,
		RawStatus:            m.RawStatus,
		Status:               m.Status,
		TrackerCreatedAt:     m.TrackerCreatedAt,
		ReportedStartAt:      m.ReportedStartAt,
		ReportedClosedAt:     m.ReportedClosedAt,
		ManualFinishedAt:     m.ManualFinishedAt,
		ManualGoLiveDate:     m.ManualGoLiveDate,
		ContractDays:         m.ContractDays,
		MonthlyValue:         m.MonthlyValue,
		SetupValue:           m.SetupValue,
		Financial:            m.Financial,
		FinancialRaw:         m.FinancialRaw,
		HadRework:            m.HadRework,
		ReworkType:           m.ReworkType,
		DeliveredWithQuality: m.DeliveredWithQuality,
		IdleDays:             m.IdleDays,
		Operator:             m.Operator,
		Network:              m.Network,
		Class:                m.Class,
		ParentID:             m.ParentID,
		ERP:                  m.ERP,
		CRM:                  m.CRM,
		CNPJ:                 m.CNPJ,
	}
}

// FromDomain populates the persistence model from a domain Project entity.
func (m *ProjectModel) FromDomain(p *rollout.Project) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.TaskRef = p.TaskRef
	m.StoreCode = p.StoreCode
	m.Name = p.Name
	m.TrackerURL = p.TrackerURL
	m.RawStatus = p.RawStatus
	m.Status = p.Status
	m.TrackerCreatedAt = p.TrackerCreatedAt
	m.ReportedStartAt = p.ReportedStartAt
	m.ReportedClosedAt = p.ReportedClosedAt
	m.ManualFinishedAt = p.ManualFinishedAt
	m.ManualGoLiveDate = p.ManualGoLiveDate
	m.ContractDays = p.ContractDays
	m.MonthlyValue = p.MonthlyValue
	m.SetupValue = p.SetupValue
	m.Financial = p.Financial
	m.FinancialRaw = p.FinancialRaw
	m.HadRework = p.HadRework
	m.ReworkType = p.ReworkType
	m.DeliveredWithQuality = p.DeliveredWithQuality
	m.IdleDays = p.IdleDays
	m.Operator = p.Operator
	m.Network = p.Network
	m.Class = p.Class
	m.ParentID = p.ParentID
	m.ERP = p.ERP
	m.CRM = p.CRM
	m.CNPJ = p.CNPJ
}

// ProjectModelFromDomain creates a new persistence model from a domain Project entity.
func ProjectModelFromDomain(p *rollout.Project) *ProjectModel {
	m := &ProjectModel{}
	m.FromDomain(p)
	return m
}

// PauseModel is the persistence model for the Pause domain entity.
type PauseModel struct {
	BaseModel
	ProjectID uuid.UUID  `gorm:"type:uuid;not null;index"`
	StartAt   time.Time  `gorm:"not null"`
	EndAt     *time.Time `gorm:"index"`
	Reason    string     `gorm:"type:varchar(300)"`
}

// TableName returns the table name for GORM
func (PauseModel) TableName() string {
	return "project_pauses"
}

// ToDomain converts the persistence model to a domain Pause entity.
func (m *PauseModel) ToDomain() *rollout.Pause {
	return &rollout.Pause{
		BaseEntity: m.BaseModel.ToDomain(),
		ProjectID:  m.ProjectID,
		StartAt:    m.StartAt,
		EndAt:      m.EndAt,
		Reason:     m.Reason,
	}
}

// FromDomain populates the persistence model from a domain Pause entity.
func (m *PauseModel) FromDomain(p *rollout.Pause) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.ProjectID = p.ProjectID
	m.StartAt = p.StartAt
	m.EndAt = p.EndAt
	m.Reason = p.Reason
}

// PauseModelFromDomain creates a new persistence model from a domain Pause entity.
func PauseModelFromDomain(p *rollout.Pause) *PauseModel {
	m := &PauseModel{}
	m.FromDomain(p)
	return m
}

// TaskStepModel is the persistence model for the TaskStep domain entity.
type TaskStepModel struct {
	BaseModel
	TaskRef   string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index"`

	Stage     string `gorm:"type:varchar(100);not null;index"`
	Name      string `gorm:"type:varchar(200)"`
	Assignee  string `gorm:"type:varchar(100)"`
	RawStatus string `gorm:"type:varchar(100)"`

	TrackerCreatedAt *time.Time
	StartAt          *time.Time
	EndAt            *time.Time `gorm:"index"`

	TotalDays   float64 `gorm:"not null;default:0"`
	IdleDays    int     `gorm:"not null;default:0"`
	ReopenCount int     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (TaskStepModel) TableName() string {
	return "task_steps"
}

// ToDomain converts the persistence model to a domain TaskStep entity.
func (m *TaskStepModel) ToDomain() *rollout.TaskStep {
	return &rollout.TaskStep{
		BaseEntity:       m.BaseModel.ToDomain(),
		TaskRef:          m.TaskRef,
		ProjectID:        m.ProjectID,
		Stage:            m.Stage,
		Name:             m.Name,
		Assignee:         m.Assignee,
		RawStatus:        m.RawStatus,
		TrackerCreatedAt: m.TrackerCreatedAt,
		StartAt:          m.StartAt,
		EndAt:            m.EndAt,
		TotalDays:        m.TotalDays,
		IdleDays:         m.IdleDays,
		ReopenCount:      m.ReopenCount,
	}
}

// FromDomain populates the persistence model from a domain TaskStep entity.
func (m *TaskStepModel) FromDomain(s *rollout.TaskStep) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.TaskRef = s.TaskRef
	m.ProjectID = s.ProjectID
	m.Stage = s.Stage
	m.Name = s.Name
	m.Assignee = s.Assignee
	m.RawStatus = s.RawStatus
	m.TrackerCreatedAt = s.TrackerCreatedAt
	m.StartAt = s.StartAt
	m.EndAt = s.EndAt
	m.TotalDays = s.TotalDays
	m.IdleDays = s.IdleDays
	m.ReopenCount = s.ReopenCount
}

// TaskStepModelFromDomain creates a new persistence model from a domain TaskStep entity.
func TaskStepModelFromDomain(s *rollout.TaskStep) *TaskStepModel {
	m := &TaskStepModel{}
	m.FromDomain(s)
	return m
}
