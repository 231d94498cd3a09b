package rollout

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SyncState is the singleton gate row that serializes ingestion. Only one
// sync may run at a time; acquisition must be atomic at the database level.
type SyncState struct {
	InProgress bool       `json:"in_progress"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// SyncRepository defines the interface for sync state and run persistence
type SyncRepository interface {
	// TryStart atomically flips the gate from idle to running. Returns false
	// when another sync already holds it. A gate held longer than staleAfter
	// is treated as crashed and taken over.
	TryStart(ctx context.Context, now time.Time, staleAfter time.Duration) (bool, error)

	// FinishSync releases the gate and records the outcome
	FinishSync(ctx context.Context, now time.Time, lastError string) error

	// GetState returns the current gate state
	GetState(ctx context.Context) (*SyncState, error)

	// CreateRun persists a new sync run record
	CreateRun(ctx context.Context, run *SyncRun) error

	// UpdateRun persists changes to a sync run record
	UpdateRun(ctx context.Context, run *SyncRun) error

	// FindRun finds a run by ID
	FindRun(ctx context.Context, id uuid.UUID) (*SyncRun, error)

	// ListRuns returns the most recent runs, newest first
	ListRuns(ctx context.Context, limit int) ([]SyncRun, error)

	// PruneRuns deletes all but the newest keep runs along with their errors
	PruneRuns(ctx context.Context, keep int) (int64, error)

	// AddError records an item-level failure for a run
	AddError(ctx context.Context, syncErr *SyncError) error

	// ListErrors returns the errors captured for a run
	ListErrors(ctx context.Context, runID uuid.UUID) ([]SyncError, error)

	// AddChanges records field-change audit entries
	AddChanges(ctx context.Context, changes []ChangeLog) error

	// ListChangesByProject returns the audit trail for a project, newest first
	ListChangesByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]ChangeLog, error)
}
