package rollout

import (
	"context"

	"github.com/google/uuid"
)

// PauseRepository defines the interface for pause persistence
type PauseRepository interface {
	// Create persists a new pause
	Create(ctx context.Context, pause *Pause) error

	// Update persists changes to an existing pause
	Update(ctx context.Context, pause *Pause) error

	// FindByID finds a pause by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Pause, error)

	// FindByProject finds all pauses for a project ordered by start
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]Pause, error)

	// FindOpenByProject finds the open pause for a project, if any
	FindOpenByProject(ctx context.Context, projectID uuid.UUID) (*Pause, error)

	// FindByProjects finds pauses for a set of projects, grouped by project
	FindByProjects(ctx context.Context, projectIDs []uuid.UUID) (map[uuid.UUID][]Pause, error)

	// CountOpen returns the number of projects with an open pause
	CountOpen(ctx context.Context) (int64, error)

	// Delete removes a pause
	Delete(ctx context.Context, id uuid.UUID) error
}
