// Package domain contains the task-manager entities shared by the client,
// the board, and the development server.
package domain

import (
	"net/url"
	"strconv"
	"strings"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Roles known to the server. Role is extensible; these are the two seeded ones.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// Permission names granted per identity.
const (
	PermManageTasks      = "manage_tasks"
	PermUpdateTaskStatus = "update_task_status"
	PermViewTasks        = "view_tasks"
)

// UserRef is a user as referenced by a task. Referenced, never owned.
type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Verified bool   `json:"is_verified,omitempty"`
}

type Permission struct {
	ID             int64  `json:"id,omitempty"`
	PermissionName string `json:"permission_name"`
}

type Task struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Status       Status   `json:"status"`
	Priority     Priority `json:"priority"`
	DueDate      string   `json:"due_date,omitempty" format:"date-time"`
	AssignedToID *int64   `json:"assigned_to_id,omitempty"`
	AssignedTo   *UserRef `json:"assigned_to,omitempty"`
	CreatedBy    *UserRef `json:"created_by,omitempty"`
	CreatedAt    string   `json:"created_at,omitempty" format:"date-time"`
	UpdatedAt    string   `json:"updated_at,omitempty" format:"date-time"`
}

// Filter holds list criteria. Zero values mean "no constraint".
type Filter struct {
	Status       Status
	Priority     Priority
	DueDateStart string
	DueDateEnd   string
	AssignedTo   int64
}

// Values encodes the filter as query parameters. Empty fields are omitted
// entirely; an empty status must never be sent as status="".
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.Priority != "" {
		v.Set("priority", string(f.Priority))
	}
	if f.DueDateStart != "" {
		v.Set("due_date_start", f.DueDateStart)
	}
	if f.DueDateEnd != "" {
		v.Set("due_date_end", f.DueDateEnd)
	}
	if f.AssignedTo != 0 {
		v.Set("assigned_to", strconv.FormatInt(f.AssignedTo, 10))
	}
	return v
}

// IsZero reports whether no criteria are set.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// TaskForm holds create/edit form values, independent of the cache.
type TaskForm struct {
	Title        string
	Description  string
	Status       Status
	Priority     Priority
	DueDate      string
	AssignedToID int64
}

// NewTaskForm returns the create-form defaults.
func NewTaskForm() TaskForm {
	return TaskForm{Status: StatusPending, Priority: PriorityLow}
}

// FormFromTask seeds an edit form from a task, normalizing the due date to
// the form's date input shape.
func FormFromTask(t Task) TaskForm {
	f := TaskForm{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     DateOnly(t.DueDate),
	}
	if t.AssignedToID != nil {
		f.AssignedToID = *t.AssignedToID
	}
	return f
}

// DateOnly trims a date-time value down to its date part.
func DateOnly(s string) string {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}
