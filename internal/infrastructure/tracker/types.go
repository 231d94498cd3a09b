package tracker

import (
	"strconv"
	"time"
)

// EpochMillis is a timestamp transmitted as epoch milliseconds, either as a
// JSON string or a bare number depending on the endpoint.
type EpochMillis struct {
	time.Time
}

// UnmarshalJSON accepts `"1700000000000"`, `1700000000000`, or `null`.
func (e *EpochMillis) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		e.Time = time.Time{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	e.Time = time.UnixMilli(ms).UTC()
	return nil
}

// MarshalJSON emits epoch milliseconds, or null when the timestamp is zero,
// matching what the tracker itself sends.
func (e EpochMillis) MarshalJSON() ([]byte, error) {
	if e.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(e.Time.UnixMilli(), 10)), nil
}

// IsZero reports whether the timestamp was absent or null.
func (e EpochMillis) IsZero() bool {
	return e.Time.IsZero()
}

// TaskStatus is the status block attached to a task.
type TaskStatus struct {
	Status string `json:"status"`
	Type   string `json:"type"`
}

// TaskRef is a minimal reference to another task.
type TaskRef struct {
	ID string `json:"id"`
}

// TaskList identifies the list a task belongs to.
type TaskList struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Assignee is a user assigned to a task.
type Assignee struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// CustomField is one custom field value on a task. Value is left as a raw
// string-ish interface because the tracker returns strings, numbers, and
// option indexes depending on the field type.
type CustomField struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// Task is a task as returned by the list-tasks and get-task endpoints.
type Task struct {
	ID           string        `json:"id"`
	CustomID     string        `json:"custom_id"`
	Name         string        `json:"name"`
	URL          string        `json:"url"`
	Status       TaskStatus    `json:"status"`
	Parent       string        `json:"parent"`
	List         TaskList      `json:"list"`
	Assignees    []Assignee    `json:"assignees"`
	CustomFields []CustomField `json:"custom_fields"`
	DateCreated  EpochMillis   `json:"date_created"`
	DateUpdated  EpochMillis   `json:"date_updated"`
	DateClosed   EpochMillis   `json:"date_closed"`
	DueDate      EpochMillis   `json:"due_date"`
	StartDate    EpochMillis   `json:"start_date"`
}

// CustomFieldValue returns the value of the named custom field, or nil when
// the task does not carry it.
func (t *Task) CustomFieldValue(name string) interface{} {
	for _, f := range t.CustomFields {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

// FieldDef is a custom field definition on a list.
type FieldDef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// StatusPeriod is the time a task spent in one status.
type StatusPeriod struct {
	Status    string      `json:"status"`
	TotalTime StatusTotal `json:"total_time"`
}

// StatusTotal carries the accumulated milliseconds and the entry timestamp.
type StatusTotal struct {
	ByMinute int64       `json:"by_minute"`
	Since    EpochMillis `json:"since"`
}

// TimeInStatus is the per-status time breakdown of a task.
type TimeInStatus struct {
	CurrentStatus StatusPeriod   `json:"current_status"`
	StatusHistory []StatusPeriod `json:"status_history"`
}

// Comment is one comment on a task.
type Comment struct {
	ID          string      `json:"id"`
	CommentText string      `json:"comment_text"`
	Date        EpochMillis `json:"date"`
	User        Assignee    `json:"user"`
}
