package rollout

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rollout/backend/internal/domain/shared"
)

// ErrSyncAlreadyRunning is returned when a sync is requested while another
// run holds the gate.
var ErrSyncAlreadyRunning = errors.New("sync already in progress")

// SyncTrigger identifies what started a sync run.
type SyncTrigger string

const (
	TriggerManual    SyncTrigger = "MANUAL"
	TriggerScheduled SyncTrigger = "SCHEDULED"
)

// SyncStatus is the lifecycle state of a sync run.
type SyncStatus string

const (
	SyncRunning   SyncStatus = "RUNNING"
	SyncSucceeded SyncStatus = "SUCCEEDED"
	SyncPartial   SyncStatus = "PARTIAL"
	SyncFailed    SyncStatus = "FAILED"
)

// SyncRun records one ingestion pass against the tracker.
type SyncRun struct {
	shared.BaseEntity

	Trigger       SyncTrigger `json:"trigger"`
	Status        SyncStatus  `json:"status"`
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    *time.Time  `json:"finished_at,omitempty"`
	ProjectsSeen  int         `json:"projects_seen"`
	StepsSeen     int         `json:"steps_seen"`
	Created       int         `json:"created"`
	Updated       int         `json:"updated"`
	ErrorCount    int         `json:"error_count"`
	FailureReason string      `json:"failure_reason,omitempty"`
}

// NewSyncRun starts a run in the RUNNING state.
func NewSyncRun(trigger SyncTrigger, now time.Time) *SyncRun {
	return &SyncRun{
		BaseEntity: shared.NewBaseEntity(),
		Trigger:    trigger,
		Status:     SyncRunning,
		StartedAt:  now,
	}
}

// Finish closes the run. A run with item errors but overall progress is
// PARTIAL, a run that could not complete at all is FAILED.
func (r *SyncRun) Finish(now time.Time, fatal error) {
	r.FinishedAt = &now
	switch {
	case fatal != nil:
		r.Status = SyncFailed
		r.FailureReason = fatal.Error()
	case r.ErrorCount > 0:
		r.Status = SyncPartial
	default:
		r.Status = SyncSucceeded
	}
}

// Duration returns how long the run took, zero while still running.
func (r *SyncRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SyncError is one item-level failure captured during a run. The run keeps
// going; the error is retained for inspection.
type SyncError struct {
	shared.BaseEntity

	RunID   uuid.UUID `json:"run_id"`
	TaskRef string    `json:"task_ref"`
	ListID  string    `json:"list_id,omitempty"`
	Message string    `json:"message"`
}

// ChangeLog is an audit record of a field change applied during ingestion.
type ChangeLog struct {
	shared.BaseEntity

	ProjectID uuid.UUID `json:"project_id"`
	RunID     uuid.UUID `json:"run_id"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
}
