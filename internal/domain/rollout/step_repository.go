package rollout

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StepRepository defines the interface for task step persistence
type StepRepository interface {
	// Upsert creates the step or updates it when the task ref already exists
	Upsert(ctx context.Context, step *TaskStep) error

	// FindByTaskRef finds a step by its tracker task reference
	FindByTaskRef(ctx context.Context, taskRef string) (*TaskStep, error)

	// FindByProject finds all steps for a project ordered by creation
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]TaskStep, error)

	// FindByProjects finds steps for a set of projects, grouped by project
	FindByProjects(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID][]TaskStep, error)

	// FindClosedSince finds steps closed at or after the cutoff, for stage statistics
	FindClosedSince(ctx context.Context, cutoff time.Time) ([]TaskStep, error)

	// FindOpenByStage finds open steps in the given stage, for bottleneck views
	FindOpenByStage(ctx context.Context, stage string) ([]TaskStep, error)

	// Delete removes a step
	Delete(ctx context.Context, id uuid.UUID) error
}
