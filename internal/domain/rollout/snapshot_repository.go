package rollout

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SnapshotRepository defines the interface for daily snapshot persistence
type SnapshotRepository interface {
	// Save upserts the aggregate snapshot for its day
	Save(ctx context.Context, snapshot *DailySnapshot) error

	// FindByDay finds the aggregate snapshot for a specific day
	FindByDay(ctx context.Context, day time.Time) (*DailySnapshot, error)

	// FindRange finds aggregate snapshots with day in [from, to], oldest first
	FindRange(ctx context.Context, from, to time.Time) ([]DailySnapshot, error)

	// FindLatest returns the most recent aggregate snapshot
	FindLatest(ctx context.Context) (*DailySnapshot, error)

	// SaveProjectSnapshots upserts the per-project rows for one day
	SaveProjectSnapshots(ctx context.Context, snapshots []ProjectSnapshot) error

	// FindProjectDay finds all per-project rows for a specific day
	FindProjectDay(ctx context.Context, day time.Time) ([]ProjectSnapshot, error)

	// FindProjectRange finds one project's rows with day in [from, to], oldest first
	FindProjectRange(ctx context.Context, projectID uuid.UUID, from, to time.Time) ([]ProjectSnapshot, error)

	// DeleteOlderThan removes aggregate and per-project snapshots older than the cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
