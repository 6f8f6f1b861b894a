package task_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/workcrew/workcrew/internal/api/models"
	"github.com/workcrew/workcrew/internal/notify"
	"github.com/workcrew/workcrew/internal/push"
	"github.com/workcrew/workcrew/internal/task"
	"github.com/workcrew/workcrew/internal/user"
)

// recordingDispatcher records every dispatch call.
type recordingDispatcher struct {
	calls []recordedCall
}

type recordedCall struct {
	userIDs []string
	title   string
}

func (d *recordingDispatcher) SendToUsers(_ context.Context, userIDs []string, note *push.Notification) (*push.Result, error) {
	d.calls = append(d.calls, recordedCall{userIDs: userIDs, title: note.Title})
	return &push.Result{Success: len(userIDs)}, nil
}

type fixture struct {
	service    *task.Service
	users      *user.InMemoryRepository
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dispatcher := &recordingDispatcher{}
	notifier := notify.NewNotifier(notify.NotifierConfig{
		Dispatcher: dispatcher,
		Logger:     zerolog.Nop(),
	})

	users := user.NewInMemoryRepository()
	service := task.NewService(task.ServiceConfig{
		Repo:     task.NewInMemoryRepository(),
		Users:    users,
		Notifier: notifier,
		Logger:   zerolog.Nop(),
	})

	f := &fixture{service: service, users: users, dispatcher: dispatcher}
	f.seedUser(t, "usr_manager", user.RoleSiteManager)
	f.seedUser(t, "usr_w1", user.RoleWorker)
	f.seedUser(t, "usr_w2", user.RoleWorker)
	f.seedUser(t, "usr_w3", user.RoleWorker)
	return f
}

func (f *fixture) seedUser(t *testing.T, id string, role user.Role) {
	t.Helper()
	err := f.users.Create(context.Background(), &user.User{
		ID:        id,
		Email:     id + "@example.com",
		FirstName: "Test",
		LastName:  id,
		Role:      role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

func createRequest(workers ...string) *models.TaskCreateRequest {
	return &models.TaskCreateRequest{
		Title:       "Fix scaffolding",
		Description: "North side, level 3",
		StartDate:   models.Timestamp(time.Now()),
		DueDate:     models.Timestamp(time.Now().Add(48 * time.Hour)),
		Workers:     workers,
	}
}

func TestService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.service.Create(ctx, "usr_manager", createRequest("usr_w1", "usr_w2"))
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	if !strings.HasPrefix(result.ID, "tsk_") {
		t.Errorf("expected task ID to start with 'tsk_', got %q", result.ID)
	}
	if result.Status != models.TaskStatusWaiting {
		t.Errorf("expected status waiting, got %q", result.Status)
	}
	if len(result.AssignedWorkers) != 2 {
		t.Errorf("expected 2 assigned workers, got %d", len(result.AssignedWorkers))
	}

	// Initial assignment fires exactly one dispatch covering both workers.
	if len(f.dispatcher.calls) != 1 {
		t.Fatalf("expected 1 dispatch call, got %d", len(f.dispatcher.calls))
	}
	if len(f.dispatcher.calls[0].userIDs) != 2 {
		t.Errorf("expected dispatch to both workers, got %v", f.dispatcher.calls[0].userIDs)
	}
}

func TestService_AssignWorkers_OnlyNewWorkersNotified(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "usr_manager", createRequest("usr_w1"))
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	f.dispatcher.calls = nil

	// Add one existing and one new worker.
	updated, err := f.service.AssignWorkers(ctx, "usr_manager", created.ID, []string{"usr_w1", "usr_w2"})
	if err != nil {
		t.Fatalf("failed to assign workers: %v", err)
	}

	if len(updated.AssignedWorkers) != 2 {
		t.Errorf("expected 2 assigned workers, got %v", updated.AssignedWorkers)
	}
	if len(f.dispatcher.calls) != 1 {
		t.Fatalf("expected 1 dispatch call, got %d", len(f.dispatcher.calls))
	}
	call := f.dispatcher.calls[0]
	if len(call.userIDs) != 1 || call.userIDs[0] != "usr_w2" {
		t.Errorf("expected only the new worker to be notified, got %v", call.userIDs)
	}

	// Re-running the same assignment adds nothing and notifies no one.
	f.dispatcher.calls = nil
	if _, err := f.service.AssignWorkers(ctx, "usr_manager", created.ID, []string{"usr_w1", "usr_w2"}); err != nil {
		t.Fatalf("failed to re-assign workers: %v", err)
	}
	if len(f.dispatcher.calls) != 0 {
		t.Errorf("expected no dispatch for an unchanged assignment, got %d", len(f.dispatcher.calls))
	}
}

func TestService_AssignWorkers_NotAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "usr_manager", createRequest("usr_w1"))
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	_, err = f.service.AssignWorkers(ctx, "usr_w1", created.ID, []string{"usr_w2"})
	if !errors.Is(err, task.ErrNotAllowed) {
		t.Errorf("expected ErrNotAllowed, got %v", err)
	}
}

func TestService_Complete_WorkerNotifiesCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "usr_manager", createRequest("usr_w1"))
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	f.dispatcher.calls = nil

	completed, err := f.service.Complete(ctx, "usr_w1", created.ID, &models.TaskCompleteRequest{
		Documents: []models.TaskDocumentUpload{
			{FileName: "after.jpg", FileURL: "https://files.workcrew.io/after.jpg"},
		},
	})
	if err != nil {
		t.Fatalf("failed to complete task: %v", err)
	}

	if completed.Status != models.TaskStatusCompleted {
		t.Errorf("expected status completed, got %q", completed.Status)
	}
	if len(completed.Documents) != 1 || completed.Documents[0].Kind != models.DocumentKindEnding {
		t.Errorf("expected one ending document, got %v", completed.Documents)
	}

	if len(f.dispatcher.calls) != 1 {
		t.Fatalf("expected 1 dispatch call, got %d", len(f.dispatcher.calls))
	}
	call := f.dispatcher.calls[0]
	if len(call.userIDs) != 1 || call.userIDs[0] != "usr_manager" {
		t.Errorf("expected dispatch to the task creator, got %v", call.userIDs)
	}
}

func TestService_Complete_ManagerNotifiesNoOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "usr_manager", createRequest("usr_w1"))
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	f.dispatcher.calls = nil

	if _, err := f.service.Complete(ctx, "usr_manager", created.ID, &models.TaskCompleteRequest{}); err != nil {
		t.Fatalf("failed to complete task: %v", err)
	}

	if len(f.dispatcher.calls) != 0 {
		t.Errorf("expected no dispatch when the creator completes their own task, got %d", len(f.dispatcher.calls))
	}
}

func TestService_Complete_AlreadyCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "usr_manager", createRequest("usr_w1"))
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	if _, err := f.service.Complete(ctx, "usr_w1", created.ID, &models.TaskCompleteRequest{}); err != nil {
		t.Fatalf("failed to complete task: %v", err)
	}

	_, err = f.service.Complete(ctx, "usr_w1", created.ID, &models.TaskCompleteRequest{})
	if !errors.Is(err, task.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestService_Complete_UnassignedWorker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "usr_manager", createRequest("usr_w1"))
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	_, err = f.service.Complete(ctx, "usr_w2", created.ID, &models.TaskCompleteRequest{})
	if !errors.Is(err, task.ErrNotAllowed) {
		t.Errorf("expected ErrNotAllowed, got %v", err)
	}
}

func TestService_Remind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "usr_manager", createRequest("usr_w1", "usr_w2"))
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	f.dispatcher.calls = nil

	summary, err := f.service.Remind(ctx, "usr_manager", created.ID)
	if err != nil {
		t.Fatalf("failed to send reminder: %v", err)
	}

	if summary.SuccessCount != 2 || summary.FailureCount != 0 {
		t.Errorf("expected {2 0}, got {%d %d}", summary.SuccessCount, summary.FailureCount)
	}
}

func TestService_Remind_PermissionDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "usr_manager", createRequest("usr_w1"))
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	_, err = f.service.Remind(ctx, "usr_w1", created.ID)
	if !errors.Is(err, notify.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestService_Remind_NoWorkers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "usr_manager", createRequest())
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	_, err = f.service.Remind(ctx, "usr_manager", created.ID)
	if !errors.Is(err, notify.ErrNoAssignedWorkers) {
		t.Errorf("expected ErrNoAssignedWorkers, got %v", err)
	}
}

func TestService_List_WorkerScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.service.Create(ctx, "usr_manager", createRequest("usr_w1")); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	if _, err := f.service.Create(ctx, "usr_manager", createRequest("usr_w2")); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	managerView, err := f.service.List(ctx, "usr_manager", "", 50)
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	if len(managerView.Items) != 2 {
		t.Errorf("expected manager to see 2 tasks, got %d", len(managerView.Items))
	}

	workerView, err := f.service.List(ctx, "usr_w1", "", 50)
	if err != nil {
		t.Fatalf("failed to list tasks: %v", err)
	}
	if len(workerView.Items) != 1 {
		t.Errorf("expected worker to see 1 task, got %d", len(workerView.Items))
	}
}

func TestService_Get_UnassignedWorkerSeesNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "usr_manager", createRequest("usr_w1"))
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	_, err = f.service.Get(ctx, "usr_w2", created.ID)
	if !errors.Is(err, task.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestService_Update_StatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, "usr_manager", createRequest("usr_w1"))
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	inProgress := models.TaskStatusInProgress
	updated, err := f.service.Update(ctx, "usr_w1", created.ID, &models.TaskUpdateRequest{
		Status: &inProgress,
	})
	if err != nil {
		t.Fatalf("failed to update task: %v", err)
	}
	if updated.Status != models.TaskStatusInProgress {
		t.Errorf("expected status in_progress, got %q", updated.Status)
	}

	// No reverse transitions.
	waiting := models.TaskStatusWaiting
	_, err = f.service.Update(ctx, "usr_w1", created.ID, &models.TaskUpdateRequest{
		Status: &waiting,
	})
	if !errors.Is(err, task.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}
