package rollout

import (
	"time"

	"github.com/google/uuid"

	"github.com/rollout/backend/internal/domain/shared"
)

// StageTraining is the stage whose completion implies the whole rollout is
// effectively delivered, regardless of the parent task's status.
const StageTraining = "TREINAMENTO"

// TaskStep is one process stage task of a rollout project. Closed steps form
// the historical training set for stage-duration statistics; open steps feed
// the completion predictor and bottleneck views.
type TaskStep struct {
	shared.BaseEntity

	TaskRef   string // external tracker task id
	ProjectID uuid.UUID

	Stage    string // stage/list name, statistics bucket key
	Name     string
	Assignee string
	RawStatus string

	TrackerCreatedAt *time.Time
	StartAt          *time.Time
	EndAt            *time.Time

	TotalDays   float64
	IdleDays    int
	ReopenCount int
}

// EffectiveStartAt resolves the instant the step began.
func (s *TaskStep) EffectiveStartAt() *time.Time {
	if s.StartAt != nil {
		return s.StartAt
	}
	return s.TrackerCreatedAt
}

// IsClosed reports whether the step finished.
func (s *TaskStep) IsClosed() bool {
	return s.EndAt != nil
}

// RecomputeTotalDays refreshes TotalDays from the start/end instants.
// Steps without both instants keep their previous value.
func (s *TaskStep) RecomputeTotalDays() {
	start := s.EffectiveStartAt()
	if start == nil || s.EndAt == nil {
		return
	}
	d := s.EndAt.Sub(*start).Hours() / 24
	if d < 0 {
		d = 0
	}
	// two decimal places, matching what the tracker dashboards display
	s.TotalDays = float64(int(d*100+0.5)) / 100
}
