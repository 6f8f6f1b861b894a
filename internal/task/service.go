package task

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/workcrew/workcrew/internal/api/models"
	"github.com/workcrew/workcrew/internal/notify"
	"github.com/workcrew/workcrew/internal/user"
)

// ServiceConfig holds configuration for the task service.
type ServiceConfig struct {
	Repo     Repository
	Users    user.Repository
	Notifier *notify.Notifier
	Logger   zerolog.Logger
}

// Service provides task operations. Mutations that change the assigned set
// or complete a task emit notification events after the change is stored.
type Service struct {
	repo     Repository
	users    user.Repository
	notifier *notify.Notifier
	logger   zerolog.Logger
}

// NewService creates a new task service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:     cfg.Repo,
		users:    cfg.Users,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
	}
}

// Create creates a task and notifies any initially assigned workers.
func (s *Service) Create(ctx context.Context, actorID string, input *models.TaskCreateRequest) (*models.Task, error) {
	now := time.Now()

	task := &Task{
		ID:          "tsk_" + uuid.New().String()[:22],
		Title:       input.Title,
		Description: input.Description,
		Status:      StatusWaiting,
		Address:     input.Address,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		StartDate:   input.StartDate.Time(),
		DueDate:     input.DueDate.Time(),
		CreatedBy:   actorID,
		WorkerIDs:   dedupe(input.Workers),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, doc := range input.Documents {
		task.Documents = append(task.Documents, &Document{
			ID:         "doc_" + uuid.New().String()[:22],
			TaskID:     task.ID,
			Kind:       DocumentBeginning,
			FileName:   doc.FileName,
			FileURL:    doc.FileURL,
			UploadedBy: actorID,
			UploadedAt: now,
		})
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.emitAssigned(ctx, task, task.WorkerIDs)

	result := toAPITask(task)
	return &result, nil
}

// Get retrieves a task. Workers only see tasks they are assigned to;
// a task outside the caller's scope reads as not found.
func (s *Service) Get(ctx context.Context, actorID, taskID string) (*models.Task, error) {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	task, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !actor.IsManager() && !task.IsAssigned(actorID) {
		return nil, ErrTaskNotFound
	}

	result := toAPITask(task)
	return &result, nil
}

// List retrieves tasks visible to the caller, newest first. Managers see
// all tasks; workers see only tasks assigned to them.
func (s *Service) List(ctx context.Context, actorID string, status Status, limit int) (*models.PagedTasks, error) {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	opts := ListOptions{Status: status, Limit: limit}
	if !actor.IsManager() {
		opts.AssignedTo = actorID
	}

	result, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, err
	}

	items := make([]models.Task, 0, len(result.Items))
	for _, t := range result.Items {
		items = append(items, toAPITask(t))
	}

	var nextCursor *string
	if result.NextCursor != "" {
		nextCursor = &result.NextCursor
	}

	return &models.PagedTasks{
		Items: items,
		Meta: models.PagedResponseMeta{
			Limit:      limit,
			NextCursor: nextCursor,
		},
	}, nil
}

// Update updates a task's fields. Status may only move forward.
func (s *Service) Update(ctx context.Context, actorID, taskID string, input *models.TaskUpdateRequest) (*models.Task, error) {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	task, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !actor.IsManager() && !task.IsAssigned(actorID) {
		return nil, ErrTaskNotFound
	}

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		target := Status(*input.Status)
		if !target.Valid() || !task.Status.CanTransitionTo(target) {
			return nil, ErrInvalidTransition
		}
		task.Status = target
	}
	if input.Address != nil {
		task.Address = input.Address
	}
	if input.Latitude != nil {
		task.Latitude = input.Latitude
	}
	if input.Longitude != nil {
		task.Longitude = input.Longitude
	}
	if input.StartDate != nil {
		task.StartDate = input.StartDate.Time()
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate.Time()
	}
	task.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}

	result := toAPITask(task)
	return &result, nil
}

// Delete deletes a task. Only a site manager or the task's creator may
// delete one.
func (s *Service) Delete(ctx context.Context, actorID, taskID string) error {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return err
	}

	task, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return err
	}

	if !actor.IsManager() && task.CreatedBy != actorID {
		return ErrNotAllowed
	}

	return s.repo.Delete(ctx, taskID)
}

// AssignWorkers adds workers to a task's assigned set and notifies only the
// newly added ones. Re-adding an already assigned worker is a no-op and
// does not re-notify.
func (s *Service) AssignWorkers(ctx context.Context, actorID, taskID string, workerIDs []string) (*models.Task, error) {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	task, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !actor.IsManager() && task.CreatedBy != actorID {
		return nil, ErrNotAllowed
	}

	var added []string
	for _, workerID := range dedupe(workerIDs) {
		if !task.IsAssigned(workerID) {
			added = append(added, workerID)
		}
	}

	if len(added) > 0 {
		if err := s.repo.AddWorkers(ctx, taskID, added); err != nil {
			return nil, err
		}
		task.WorkerIDs = append(task.WorkerIDs, added...)
		s.emitAssigned(ctx, task, added)
	}

	result := toAPITask(task)
	return &result, nil
}

// Complete marks a task completed, attaches any ending documents, and
// notifies the task's creator unless the actor is a site manager.
func (s *Service) Complete(ctx context.Context, actorID, taskID string, input *models.TaskCompleteRequest) (*models.Task, error) {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	task, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !actor.IsManager() && !task.IsAssigned(actorID) {
		return nil, ErrNotAllowed
	}

	if task.Status == StatusCompleted {
		return nil, ErrInvalidTransition
	}

	now := time.Now()

	var docs []*Document
	for _, doc := range input.Documents {
		docs = append(docs, &Document{
			ID:         "doc_" + uuid.New().String()[:22],
			TaskID:     task.ID,
			Kind:       DocumentEnding,
			FileName:   doc.FileName,
			FileURL:    doc.FileURL,
			UploadedBy: actorID,
			UploadedAt: now,
		})
	}
	if len(docs) > 0 {
		if err := s.repo.AddDocuments(ctx, taskID, docs); err != nil {
			return nil, err
		}
		task.Documents = append(task.Documents, docs...)
	}

	task.Status = StatusCompleted
	task.UpdatedAt = now
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}

	_, err = s.notifier.TaskCompleted(ctx, toEvent(task), notify.Actor{
		ID:   actor.ID,
		Name: actor.FullName(),
		Role: actor.Role,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("task_id", task.ID).Msg("Failed to send completion notification")
	}

	result := toAPITask(task)
	return &result, nil
}

// Remind sends a manual reminder to all of the task's assigned workers and
// returns the delivery counts.
func (s *Service) Remind(ctx context.Context, actorID, taskID string) (*models.DispatchSummary, error) {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	task, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	result, err := s.notifier.ManualReminder(ctx, toEvent(task), notify.Actor{
		ID:   actor.ID,
		Name: actor.FullName(),
		Role: actor.Role,
	}, task.WorkerIDs)
	if err != nil {
		return nil, err
	}

	return &models.DispatchSummary{
		SuccessCount: result.Success,
		FailureCount: result.Failure,
	}, nil
}

// emitAssigned notifies newly added workers. Notification problems are
// logged, never surfaced; the assignment itself already committed.
func (s *Service) emitAssigned(ctx context.Context, task *Task, added []string) {
	if len(added) == 0 || s.notifier == nil {
		return
	}

	if _, err := s.notifier.TaskAssigned(ctx, toEvent(task), added); err != nil {
		s.logger.Error().Err(err).Str("task_id", task.ID).Msg("Failed to send assignment notification")
	}
}

func toEvent(t *Task) notify.Task {
	return notify.Task{
		ID:        t.ID,
		Title:     t.Title,
		Status:    string(t.Status),
		CreatorID: t.CreatedBy,
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// toAPITask converts a domain Task to an API Task.
func toAPITask(t *Task) models.Task {
	apiTask := models.Task{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          models.TaskStatus(t.Status),
		Address:         t.Address,
		Latitude:        t.Latitude,
		Longitude:       t.Longitude,
		StartDate:       models.Timestamp(t.StartDate),
		DueDate:         models.Timestamp(t.DueDate),
		CreatedBy:       t.CreatedBy,
		AssignedWorkers: append([]string(nil), t.WorkerIDs...),
		CreatedAt:       models.Timestamp(t.CreatedAt),
		UpdatedAt:       models.Timestamp(t.UpdatedAt),
	}

	for _, doc := range t.Documents {
		apiTask.Documents = append(apiTask.Documents, models.TaskDocument{
			ID:         doc.ID,
			Kind:       models.DocumentKind(doc.Kind),
			FileName:   doc.FileName,
			FileURL:    doc.FileURL,
			UploadedBy: doc.UploadedBy,
			UploadedAt: models.Timestamp(doc.UploadedAt),
		})
	}

	return apiTask
}
