package model

import (
	"encoding/json"
	"time"
)

// Task is a unit of work inside a project
type Task struct {
	ID            string         `json:"id"`
	Title         string         `json:"title" validate:"required"`
	Description   string         `json:"description,omitempty"`
	Status        Status         `json:"status"`
	Completed     bool           `json:"completed"`
	StartDate     *Date          `json:"startDate,omitempty"`
	Deadline      *Date          `json:"deadline,omitempty"` // nil means no deadline
	Creator       string         `json:"creator,omitempty"`  // Creator email
	CreatorName   string         `json:"creator_name,omitempty"`
	Collaborators []Collaborator `json:"collaborators"`
	ProjectID     string         `json:"projectId,omitempty"`
	Recurso       []Attachment   `json:"recurso,omitempty"`

	// Set by the server for callers who reach the task through its project
	ProjectPermission   string `json:"project_permission,omitempty"`
	EffectivePermission string `json:"effective_permission,omitempty"`
}

// UnmarshalJSON accepts both "id" and the legacy "_id" key
func (t *Task) UnmarshalJSON(data []byte) error {
	type alias Task
	aux := struct {
		*alias
		MongoID string `json:"_id"`
	}{alias: (*alias)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = aux.MongoID
	}
	return nil
}

// CreatorEmail implements permission.Entity
func (t Task) CreatorEmail() string { return t.Creator }

// CreatorDisplayName implements permission.Entity
func (t Task) CreatorDisplayName() string { return t.CreatorName }

// CollaboratorList implements permission.Entity
func (t Task) CollaboratorList() []Collaborator { return t.Collaborators }

// HasDeadline reports whether a deadline is set
func (t Task) HasDeadline() bool {
	return t.Deadline != nil && !t.Deadline.IsZero()
}

// IsDone returns true if the task is flagged completed or in the terminal status
func (t Task) IsDone() bool {
	return t.Completed || t.Status.IsDone()
}

// IsOverdue returns true if the deadline is before today and the task is open
func (t Task) IsOverdue(now time.Time) bool {
	if !t.HasDeadline() || t.IsDone() {
		return false
	}
	return t.Deadline.Before(NewDate(now))
}

// CalendarDate returns the day a task is shown on: deadline, else start date
func (t Task) CalendarDate() (Date, bool) {
	if t.HasDeadline() {
		return *t.Deadline, true
	}
	if t.StartDate != nil && !t.StartDate.IsZero() {
		return *t.StartDate, true
	}
	return Date{}, false
}

// TaskFilter narrows GET /api/tasks
type TaskFilter struct {
	ProjectID  string
	Title      string
	Creator    string
	Status     string
	StartDate  string
	Deadline   string
	HasRecurso bool
}
