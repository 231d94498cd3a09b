package rollout

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rollout/backend/internal/domain/shared"
)

// ProjectRepository defines the interface for project persistence
type ProjectRepository interface {
	// Create persists a new project
	Create(ctx context.Context, project *Project) error

	// Update persists changes to an existing project
	Update(ctx context.Context, project *Project) error

	// FindByID finds a project by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Project, error)

	// FindByTaskRef finds a project by its tracker task reference
	FindByTaskRef(ctx context.Context, taskRef string) (*Project, error)

	// FindByStoreCode finds a project by its human-facing store code
	FindByStoreCode(ctx context.Context, storeCode string) (*Project, error)

	// FindAll finds all projects matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Project, error)

	// FindByStatus finds projects in the given status
	FindByStatus(ctx context.Context, status ProjectStatus, filter shared.Filter) ([]Project, error)

	// FindInFlight finds projects that are neither completed nor unstarted
	FindInFlight(ctx context.Context) ([]Project, error)

	// FindByOperator finds projects assigned to an operator
	FindByOperator(ctx context.Context, operator string, filter shared.Filter) ([]Project, error)

	// FindCompletedBetween finds projects whose effective finish falls in [from, to)
	FindCompletedBetween(ctx context.Context, from, to time.Time) ([]Project, error)

	// CountByStatus returns project counts grouped by status
	CountByStatus(ctx context.Context) (map[ProjectStatus]int, error)

	// Count returns the total number of projects
	Count(ctx context.Context) (int64, error)

	// Delete removes a project and its dependent rows
	Delete(ctx context.Context, id uuid.UUID) error
}
