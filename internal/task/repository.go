package task

import "context"

// Repository defines the interface for task persistence.
type Repository interface {
	// Get retrieves a task with its assigned workers and documents.
	Get(ctx context.Context, id string) (*Task, error)

	// List retrieves tasks newest first, applying the given filters.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Create creates a new task with its initial worker set and documents.
	Create(ctx context.Context, task *Task) error

	// Update updates a task's mutable fields.
	Update(ctx context.Context, task *Task) error

	// Delete deletes a task and its assignment rows and document metadata.
	Delete(ctx context.Context, id string) error

	// AddWorkers adds workers to the task's assigned set. Workers already
	// assigned are ignored.
	AddWorkers(ctx context.Context, taskID string, workerIDs []string) error

	// AddDocuments appends document metadata to a task.
	AddDocuments(ctx context.Context, taskID string, docs []*Document) error
}
