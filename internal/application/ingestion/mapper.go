package ingestion

import (
	"time"

	"github.com/google/uuid"

	"github.com/rollout/backend/internal/domain/rollout"
	"github.com/rollout/backend/internal/infrastructure/tracker"
)

// FieldChange records one audited field transition produced while mapping a
// tracker task onto an existing project.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// TaskMapper translates tracker tasks into domain entities through the
// field schema.
type TaskMapper struct {
	schema *FieldSchema
}

// NewTaskMapper creates a mapper. A nil schema uses the default bindings.
func NewTaskMapper(schema *FieldSchema) *TaskMapper {
	if schema == nil {
		schema = DefaultFieldSchema()
	}
	return &TaskMapper{schema: schema}
}

// ApplyProjectTask writes a parent store task onto the project and returns
// the audited field changes. Callers ignore the changes for newly created
// projects.
func (m *TaskMapper) ApplyProjectTask(p *rollout.Project, task *tracker.Task, now time.Time) []FieldChange {
	oldStatus := p.RawStatus
	oldOperator := p.Operator
	oldMonthly := p.MonthlyValue
	oldSetup := p.SetupValue

	p.Name = task.Name
	p.TrackerURL = task.URL
	if task.CustomID != "" {
		p.StoreCode = task.CustomID
	}

	p.RawStatus = task.Status.Status
	p.Status = rollout.NormalizeStatus(task.Status.Status)

	if !task.DateCreated.IsZero() {
		t := task.DateCreated.Time
		p.TrackerCreatedAt = &t
	}
	// Reported instants mirror the tracker exactly: a reopened task comes
	// back with a null date_closed and must lose the stale closure here.
	p.ReportedStartAt = optionalTime(task.StartDate)
	p.ReportedClosedAt = optionalTime(task.DateClosed)

	if len(task.Assignees) > 0 {
		p.Operator = task.Assignees[0].Username
	}

	for _, cf := range task.CustomFields {
		if binding, ok := m.schema.Resolve(cf.Name); ok {
			m.schema.Apply(p, binding, cf.Value)
		}
	}

	if !task.DateUpdated.IsZero() {
		p.IdleDays = wholeDaysSince(task.DateUpdated.Time, now)
	}

	var changes []FieldChange
	if oldStatus != p.RawStatus {
		changes = append(changes, FieldChange{Field: "status", Old: oldStatus, New: p.RawStatus})
	}
	if oldOperator != p.Operator {
		changes = append(changes, FieldChange{Field: "operator", Old: oldOperator, New: p.Operator})
	}
	if !oldMonthly.Equal(p.MonthlyValue) {
		changes = append(changes, FieldChange{Field: "monthly_value", Old: oldMonthly.String(), New: p.MonthlyValue.String()})
	}
	if !oldSetup.Equal(p.SetupValue) {
		changes = append(changes, FieldChange{Field: "setup_value", Old: oldSetup.String(), New: p.SetupValue.String()})
	}
	return changes
}

// ApplyStepTask writes a stage step task onto the step entity.
func (m *TaskMapper) ApplyStepTask(s *rollout.TaskStep, task *tracker.Task, stage string, projectID uuid.UUID, now time.Time) {
	s.TaskRef = task.ID
	s.ProjectID = projectID
	s.Stage = stage
	s.Name = task.Name
	s.RawStatus = task.Status.Status

	if len(task.Assignees) > 0 {
		s.Assignee = task.Assignees[0].Username
	}

	if !task.DateCreated.IsZero() {
		t := task.DateCreated.Time
		s.TrackerCreatedAt = &t
	}
	s.StartAt = optionalTime(task.StartDate)
	s.EndAt = optionalTime(task.DateClosed)

	if !task.DateUpdated.IsZero() {
		s.IdleDays = wholeDaysSince(task.DateUpdated.Time, now)
	}

	s.RecomputeTotalDays()
}

// FatherRef returns the parent store code carried by the step task in the
// given custom field, or empty when the field is absent.
func FatherRef(task *tracker.Task, fieldID string) string {
	for _, cf := range task.CustomFields {
		if cf.ID == fieldID {
			if s, ok := cf.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

// optionalTime converts a tracker timestamp to a nullable instant.
func optionalTime(e tracker.EpochMillis) *time.Time {
	if e.IsZero() {
		return nil
	}
	t := e.Time
	return &t
}

// wholeDaysSince returns full days between then and now, floored at zero.
func wholeDaysSince(then, now time.Time) int {
	d := int(now.Sub(then).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
