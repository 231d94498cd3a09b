package rollout

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rollout/backend/internal/domain/shared"
)

var (
	ErrPauseInvalidProject   = errors.New("rollout: pause requires a project")
	ErrPauseEndBeforeStart   = errors.New("rollout: pause end precedes pause start")
	ErrPauseAlreadyClosed    = errors.New("rollout: pause is already closed")
)

// Pause is a period during which a project's clock is frozen. These intervals
// are subtracted from the net progress duration. A pause without an end date
// is still open.
type Pause struct {
	shared.BaseEntity

	ProjectID uuid.UUID
	StartAt   time.Time
	EndAt     *time.Time
	Reason    string
}

// NewPause opens a pause for a project starting at the given instant.
func NewPause(projectID uuid.UUID, startAt time.Time, reason string) (*Pause, error) {
	if projectID == uuid.Nil {
		return nil, ErrPauseInvalidProject
	}
	return &Pause{
		BaseEntity: shared.NewBaseEntity(),
		ProjectID:  projectID,
		StartAt:    startAt,
		Reason:     reason,
	}, nil
}

// IsOpen reports whether the pause is still running.
func (p *Pause) IsOpen() bool {
	return p.EndAt == nil
}

// Close ends the pause at the given instant.
func (p *Pause) Close(endAt time.Time) error {
	if p.EndAt != nil {
		return ErrPauseAlreadyClosed
	}
	if endAt.Before(p.StartAt) {
		return ErrPauseEndBeforeStart
	}
	p.EndAt = &endAt
	p.UpdatedAt = time.Now()
	return nil
}
