// Package notify turns domain events (worker assigned, task completed,
// manual reminder) into notifications and hands them to the push dispatcher.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/workcrew/workcrew/internal/featureflags"
	"github.com/workcrew/workcrew/internal/push"
	"github.com/workcrew/workcrew/internal/user"
)

// Trigger errors.
var (
	ErrPermissionDenied  = errors.New("not allowed to send reminders for this task")
	ErrNoAssignedWorkers = errors.New("task has no assigned workers")
)

// Notification event types carried in the payload for client-side routing.
const (
	EventTaskAssignment     = "task_assignment"
	EventTaskCompleted      = "task_completed"
	EventManualNotification = "manual_notification"
)

// Task is the view of a task an event carries. Triggers never load tasks
// themselves; the owning operation passes the state it just committed.
type Task struct {
	ID        string
	Title     string
	Status    string
	CreatorID string
}

// Actor identifies who caused an event.
type Actor struct {
	ID   string
	Name string
	Role user.Role
}

// Dispatcher is the fan-out capability the triggers talk to.
type Dispatcher interface {
	SendToUsers(ctx context.Context, userIDs []string, note *push.Notification) (*push.Result, error)
}

// NotifierConfig holds configuration for the notifier.
type NotifierConfig struct {
	Dispatcher Dispatcher
	Flags      *featureflags.Service
	Logger     zerolog.Logger
}

// Notifier builds notifications for domain events and dispatches them.
type Notifier struct {
	dispatcher Dispatcher
	flags      *featureflags.Service
	logger     zerolog.Logger
}

// NewNotifier creates a new notifier.
func NewNotifier(cfg NotifierConfig) *Notifier {
	return &Notifier{
		dispatcher: cfg.Dispatcher,
		flags:      cfg.Flags,
		logger:     cfg.Logger,
	}
}

// TaskAssigned notifies workers newly added to a task's assigned set.
// The caller passes only the newly added workers; re-adding an already
// assigned worker must not reach this point. One dispatch covers the
// whole batch.
func (n *Notifier) TaskAssigned(ctx context.Context, task Task, addedWorkerIDs []string) (*push.Result, error) {
	if len(addedWorkerIDs) == 0 {
		return &push.Result{}, nil
	}

	if !n.pushEnabled(ctx, EventTaskAssignment) {
		return &push.Result{}, nil
	}

	sorted := make([]string, len(addedWorkerIDs))
	copy(sorted, addedWorkerIDs)
	sort.Strings(sorted)

	note := &push.Notification{
		Title: "New Task Assignment",
		Body:  fmt.Sprintf("You have been assigned to task '%s'.", task.Title),
		Data: map[string]any{
			"type":            EventTaskAssignment,
			"task_id":         task.ID,
			"task_title":      task.Title,
			"task_status":     task.Status,
			"notification_id": fmt.Sprintf("task_assignment_%s_%s", task.ID, strings.Join(sorted, ",")),
		},
	}

	result, err := n.dispatcher.SendToUsers(ctx, sorted, note)
	if err != nil {
		return nil, err
	}

	n.logger.Info().
		Str("task_id", task.ID).
		Int("workers", len(sorted)).
		Int("success", result.Success).
		Int("failure", result.Failure).
		Msg("Task assignment notification dispatched")

	return result, nil
}

// TaskCompleted notifies the task's creator that a worker completed the
// task. Skipped entirely when the actor is a site manager; managers do
// not notify themselves.
func (n *Notifier) TaskCompleted(ctx context.Context, task Task, actor Actor) (*push.Result, error) {
	if actor.Role == user.RoleSiteManager {
		return &push.Result{}, nil
	}

	if !n.pushEnabled(ctx, EventTaskCompleted) {
		return &push.Result{}, nil
	}

	note := &push.Notification{
		Title: "Task Completed",
		Body:  fmt.Sprintf("Task %s has been completed by %s.", task.Title, actor.Name),
		Data: map[string]any{
			"type":            EventTaskCompleted,
			"task_id":         task.ID,
			"task_title":      task.Title,
			"task_status":     task.Status,
			"notification_id": fmt.Sprintf("task_completed_%s_%s", task.ID, actor.ID),
		},
	}

	result, err := n.dispatcher.SendToUsers(ctx, []string{task.CreatorID}, note)
	if err != nil {
		return nil, err
	}

	n.logger.Info().
		Str("task_id", task.ID).
		Str("actor_id", actor.ID).
		Int("success", result.Success).
		Int("failure", result.Failure).
		Msg("Task completion notification dispatched")

	return result, nil
}

// ManualReminder sends an on-demand reminder to all of a task's assigned
// workers. Only a site manager or the task's creator may send one. Each
// worker gets its own notification id so clients do not collapse repeats
// across workers.
func (n *Notifier) ManualReminder(ctx context.Context, task Task, actor Actor, workerIDs []string) (*push.Result, error) {
	if actor.Role != user.RoleSiteManager && actor.ID != task.CreatorID {
		return nil, ErrPermissionDenied
	}

	if len(workerIDs) == 0 {
		return nil, ErrNoAssignedWorkers
	}

	if !n.pushEnabled(ctx, EventManualNotification) {
		return &push.Result{}, nil
	}

	note := &push.Notification{
		Title: fmt.Sprintf("Task Reminder: %s", task.Title),
		Body:  fmt.Sprintf("A reminder for your task '%s'. Please do not forget to complete your task.", task.Title),
	}

	total := &push.Result{}
	now := time.Now().Unix()

	for _, workerID := range workerIDs {
		note.Data = map[string]any{
			"type":            EventManualNotification,
			"task_id":         task.ID,
			"task_title":      task.Title,
			"task_status":     task.Status,
			"notification_id": fmt.Sprintf("manual_%s_%s_%d", task.ID, workerID, now),
		}

		result, err := n.dispatcher.SendToUsers(ctx, []string{workerID}, note)
		if err != nil {
			return nil, err
		}
		total.Success += result.Success
		total.Failure += result.Failure
	}

	n.logger.Info().
		Str("task_id", task.ID).
		Str("actor_id", actor.ID).
		Int("workers", len(workerIDs)).
		Int("success", total.Success).
		Int("failure", total.Failure).
		Msg("Manual reminder dispatched")

	return total, nil
}

// pushEnabled consults the push kill switch.
func (n *Notifier) pushEnabled(ctx context.Context, event string) bool {
	if n.flags == nil || n.flags.IsPushEnabled(ctx) {
		return true
	}
	n.logger.Info().
		Str("event", event).
		Msg("Push notifications disabled by feature flag, skipping dispatch")
	return false
}
