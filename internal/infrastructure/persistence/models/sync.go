package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rollout/backend/internal/domain/rollout"
)

// SyncStateModel is the singleton gate row serializing ingestion runs.
// Exactly one row with ID 1 exists after migration.
type SyncStateModel struct {
	ID         int `gorm:"primary_key"`
	InProgress bool
	StartedAt  *time.Time
	LastSyncAt *time.Time
	LastError  string `gorm:"type:text"`
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM
func (SyncStateModel) TableName() string {
	return "sync_state"
}

// ToDomain converts the persistence model to the domain SyncState.
func (m *SyncStateModel) ToDomain() *rollout.SyncState {
	return &rollout.SyncState{
		InProgress: m.InProgress,
		StartedAt:  m.StartedAt,
		LastSyncAt: m.LastSyncAt,
		LastError:  m.LastError,
	}
}

// SyncRunModel is the persistence model for the SyncRun domain entity.
type SyncRunModel struct {
	BaseModel
	Trigger       rollout.SyncTrigger `gorm:"type:varchar(20);not null"`
	Status        rollout.SyncStatus  `gorm:"type:varchar(20);not null;index"`
	StartedAt     time.Time           `gorm:"not null;index"`
	FinishedAt    *time.Time
	ProjectsSeen  int    `gorm:"not null;default:0"`
	StepsSeen     int    `gorm:"not null;default:0"`
	Created       int    `gorm:"not null;default:0"`
	Updated       int    `gorm:"not null;default:0"`
	ErrorCount    int    `gorm:"not null;default:0"`
	FailureReason string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the persistence model to a domain SyncRun entity.
func (m *SyncRunModel) ToDomain() *rollout.SyncRun {
	return &rollout.SyncRun{
		BaseEntity:    m.BaseModel.ToDomain(),
		Trigger:       m.Trigger,
		Status:        m.Status,
		StartedAt:     m.StartedAt,
		FinishedAt:    m.FinishedAt,
		ProjectsSeen:  m.ProjectsSeen,
		StepsSeen:     m.StepsSeen,
		Created:       m.Created,
		Updated:       m.Updated,
		ErrorCount:    m.ErrorCount,
		FailureReason: m.FailureReason,
	}
}

// FromDomain populates the persistence model from a domain SyncRun entity.
func (m *SyncRunModel) FromDomain(r *rollout.SyncRun) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.Trigger = r.Trigger
	m.Status = r.Status
	m.StartedAt = r.StartedAt
	m.FinishedAt = r.FinishedAt
	m.ProjectsSeen = r.ProjectsSeen
	m.StepsSeen = r.StepsSeen
	m.Created = r.Created
	m.Updated = r.Updated
	m.ErrorCount = r.ErrorCount
	m.FailureReason = r.FailureReason
}

// SyncRunModelFromDomain creates a new persistence model from a domain SyncRun entity.
func SyncRunModelFromDomain(r *rollout.SyncRun) *SyncRunModel {
	m := &SyncRunModel{}
	m.FromDomain(r)
	return m
}

// SyncErrorModel is the persistence model for the SyncError domain entity.
type SyncErrorModel struct {
	BaseModel
	RunID   uuid.UUID `gorm:"type:uuid;not null;index"`
	TaskRef string    `gorm:"type:varchar(50);index"`
	ListID  string    `gorm:"type:varchar(50)"`
	Message string    `gorm:"type:text;not null"`
}

// TableName returns the table name for GORM
func (SyncErrorModel) TableName() string {
	return "sync_errors"
}

// ToDomain converts the persistence model to a domain SyncError entity.
func (m *SyncErrorModel) ToDomain() *rollout.SyncError {
	return &rollout.SyncError{
		BaseEntity: m.BaseModel.ToDomain(),
		RunID:      m.RunID,
		TaskRef:    m.TaskRef,
		ListID:     m.ListID,
		Message:    m.Message,
	}
}

// FromDomain populates the persistence model from a domain SyncError entity.
func (m *SyncErrorModel) FromDomain(e *rollout.SyncError) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.RunID = e.RunID
	m.TaskRef = e.TaskRef
	m.ListID = e.ListID
	m.Message = e.Message
}

// ChangeLogModel is the persistence model for the ChangeLog domain entity.
type ChangeLogModel struct {
	BaseModel
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index"`
	RunID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Field     string    `gorm:"type:varchar(100);not null"`
	OldValue  string    `gorm:"type:text"`
	NewValue  string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ChangeLogModel) TableName() string {
	return "change_logs"
}

// ToDomain converts the persistence model to a domain ChangeLog entity.
func (m *ChangeLogModel) ToDomain() *rollout.ChangeLog {
	return &rollout.ChangeLog{
		BaseEntity: m.BaseModel.ToDomain(),
		ProjectID:  m.ProjectID,
		RunID:      m.RunID,
		Field:      m.Field,
		OldValue:   m.OldValue,
		NewValue:   m.NewValue,
	}
}

// FromDomain populates the persistence model from a domain ChangeLog entity.
func (m *ChangeLogModel) FromDomain(c *rollout.ChangeLog) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.ProjectID = c.ProjectID
	m.RunID = c.RunID
	m.Field = c.Field
	m.OldValue = c.OldValue
	m.NewValue = c.NewValue
}
