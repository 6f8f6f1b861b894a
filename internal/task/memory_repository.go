package task

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewInMemoryRepository creates a new in-memory task repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		tasks: make(map[string]*Task),
	}
}

// Get retrieves a task with its assigned workers and documents.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}

	return copyTask(task), nil
}

// List retrieves tasks newest first.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*Task
	for _, task := range r.tasks {
		if opts.Status != "" && task.Status != opts.Status {
			continue
		}
		if opts.AssignedTo != "" && !task.IsAssigned(opts.AssignedTo) {
			continue
		}
		items = append(items, copyTask(task))
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	result := &ListResult{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		result.NextCursor = items[limit-1].ID
	}

	return result, nil
}

// Create creates a new task.
func (r *InMemoryRepository) Create(_ context.Context, task *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[task.ID] = copyTask(task)
	return nil
}

// Update updates a task's mutable fields.
func (r *InMemoryRepository) Update(_ context.Context, task *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tasks[task.ID]
	if !ok {
		return ErrTaskNotFound
	}

	updated := copyTask(task)
	updated.WorkerIDs = existing.WorkerIDs
	updated.Documents = existing.Documents
	r.tasks[task.ID] = updated
	return nil
}

// Delete deletes a task.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return ErrTaskNotFound
	}

	delete(r.tasks, id)
	return nil
}

// AddWorkers adds workers to the task's assigned set.
func (r *InMemoryRepository) AddWorkers(_ context.Context, taskID string, workerIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}

	for _, workerID := range workerIDs {
		if !task.IsAssigned(workerID) {
			task.WorkerIDs = append(task.WorkerIDs, workerID)
		}
	}
	return nil
}

// AddDocuments appends document metadata to a task.
func (r *InMemoryRepository) AddDocuments(_ context.Context, taskID string, docs []*Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}

	for _, doc := range docs {
		docCopy := *doc
		task.Documents = append(task.Documents, &docCopy)
	}
	return nil
}

// copyTask creates a deep copy of a task.
func copyTask(t *Task) *Task {
	if t == nil {
		return nil
	}

	taskCopy := *t

	if t.Address != nil {
		val := *t.Address
		taskCopy.Address = &val
	}
	if t.Latitude != nil {
		val := *t.Latitude
		taskCopy.Latitude = &val
	}
	if t.Longitude != nil {
		val := *t.Longitude
		taskCopy.Longitude = &val
	}

	taskCopy.WorkerIDs = append([]string(nil), t.WorkerIDs...)

	taskCopy.Documents = nil
	for _, doc := range t.Documents {
		docCopy := *doc
		taskCopy.Documents = append(taskCopy.Documents, &docCopy)
	}

	return &taskCopy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
