// Package task provides task management for field work crews: creation,
// assignment, completion, and the domain events those mutations emit.
package task

import (
	"errors"
	"time"
)

// Task errors.
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrNotAllowed        = errors.New("not allowed to modify this task")
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether the status is one of the defined values.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status may move to the target.
// Transitions only run forward: waiting -> in_progress -> completed.
func (s Status) CanTransitionTo(target Status) bool {
	if s == target {
		return true
	}
	switch s {
	case StatusWaiting:
		return target == StatusInProgress || target == StatusCompleted
	case StatusInProgress:
		return target == StatusCompleted
	}
	return false
}

// DocumentKind distinguishes before and after documents on a task.
type DocumentKind string

const (
	DocumentBeginning DocumentKind = "beginning"
	DocumentEnding    DocumentKind = "ending"
)

// Task represents a unit of field work.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      Status
	Address     *string
	Latitude    *float64
	Longitude   *float64
	StartDate   time.Time
	DueDate     time.Time
	CreatedBy   string
	WorkerIDs   []string
	Documents   []*Document
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsAssigned reports whether the given user is in the task's assigned set.
func (t *Task) IsAssigned(userID string) bool {
	for _, id := range t.WorkerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Document is the metadata of a before/after document attached to a task.
// File bytes live in external object storage.
type Document struct {
	ID         string
	TaskID     string
	Kind       DocumentKind
	FileName   string
	FileURL    string
	UploadedBy string
	UploadedAt time.Time
}

// ListOptions contains options for listing tasks.
type ListOptions struct {
	// Status filters by task status when non-empty.
	Status Status

	// AssignedTo restricts results to tasks the given user is assigned to.
	AssignedTo string

	Limit int
}

// ListResult contains the result of listing tasks.
type ListResult struct {
	Items      []*Task
	NextCursor string
}
