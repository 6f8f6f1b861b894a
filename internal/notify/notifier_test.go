package notify_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/workcrew/workcrew/internal/featureflags"
	"github.com/workcrew/workcrew/internal/notify"
	"github.com/workcrew/workcrew/internal/push"
	"github.com/workcrew/workcrew/internal/user"
)

// fakeDispatcher records every dispatch call.
type fakeDispatcher struct {
	calls []dispatchCall
}

type dispatchCall struct {
	userIDs []string
	note    push.Notification
}

func (d *fakeDispatcher) SendToUsers(_ context.Context, userIDs []string, note *push.Notification) (*push.Result, error) {
	copied := *note
	data := make(map[string]any, len(note.Data))
	for k, v := range note.Data {
		data[k] = v
	}
	copied.Data = data
	d.calls = append(d.calls, dispatchCall{userIDs: userIDs, note: copied})
	return &push.Result{Success: len(userIDs)}, nil
}

func newTestNotifier(dispatcher notify.Dispatcher) *notify.Notifier {
	return notify.NewNotifier(notify.NotifierConfig{
		Dispatcher: dispatcher,
		Logger:     zerolog.Nop(),
	})
}

func sampleTask() notify.Task {
	return notify.Task{
		ID:        "tsk_1",
		Title:     "Fix scaffolding",
		Status:    "waiting",
		CreatorID: "usr_manager",
	}
}

func TestNotifier_TaskAssigned(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	notifier := newTestNotifier(dispatcher)

	result, err := notifier.TaskAssigned(context.Background(), sampleTask(),
		[]string{"usr_w2", "usr_w1"})
	if err != nil {
		t.Fatalf("failed to notify assignment: %v", err)
	}

	if result.Success != 2 {
		t.Errorf("expected 2 successes, got %d", result.Success)
	}
	if len(dispatcher.calls) != 1 {
		t.Fatalf("expected exactly one dispatch call, got %d", len(dispatcher.calls))
	}

	call := dispatcher.calls[0]
	if len(call.userIDs) != 2 {
		t.Errorf("expected 2 target workers, got %v", call.userIDs)
	}
	if call.note.Data["type"] != notify.EventTaskAssignment {
		t.Errorf("expected type %q, got %v", notify.EventTaskAssignment, call.note.Data["type"])
	}
	// Worker ids are sorted in the notification id so clients can dedupe.
	wantID := "task_assignment_tsk_1_usr_w1,usr_w2"
	if call.note.Data["notification_id"] != wantID {
		t.Errorf("expected notification_id %q, got %v", wantID, call.note.Data["notification_id"])
	}
}

func TestNotifier_TaskAssigned_NoNewWorkers(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	notifier := newTestNotifier(dispatcher)

	result, err := notifier.TaskAssigned(context.Background(), sampleTask(), nil)
	if err != nil {
		t.Fatalf("failed to notify assignment: %v", err)
	}

	if result.Success != 0 || result.Failure != 0 {
		t.Errorf("expected {0 0}, got {%d %d}", result.Success, result.Failure)
	}
	if len(dispatcher.calls) != 0 {
		t.Errorf("expected no dispatch for an empty added set, got %d", len(dispatcher.calls))
	}
}

func TestNotifier_TaskCompleted_NotifiesCreator(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	notifier := newTestNotifier(dispatcher)

	task := sampleTask()
	task.Status = "completed"

	_, err := notifier.TaskCompleted(context.Background(), task, notify.Actor{
		ID:   "usr_w1",
		Name: "Ayse Yilmaz",
		Role: user.RoleWorker,
	})
	if err != nil {
		t.Fatalf("failed to notify completion: %v", err)
	}

	if len(dispatcher.calls) != 1 {
		t.Fatalf("expected one dispatch call, got %d", len(dispatcher.calls))
	}

	call := dispatcher.calls[0]
	if len(call.userIDs) != 1 || call.userIDs[0] != "usr_manager" {
		t.Errorf("expected dispatch to task creator, got %v", call.userIDs)
	}
	if call.note.Data["notification_id"] != "task_completed_tsk_1_usr_w1" {
		t.Errorf("unexpected notification_id %v", call.note.Data["notification_id"])
	}
}

func TestNotifier_TaskCompleted_ManagerActorSkipped(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	notifier := newTestNotifier(dispatcher)

	result, err := notifier.TaskCompleted(context.Background(), sampleTask(), notify.Actor{
		ID:   "usr_manager",
		Name: "Site Manager",
		Role: user.RoleSiteManager,
	})
	if err != nil {
		t.Fatalf("failed to notify completion: %v", err)
	}

	if result.Success != 0 || result.Failure != 0 {
		t.Errorf("expected {0 0}, got {%d %d}", result.Success, result.Failure)
	}
	if len(dispatcher.calls) != 0 {
		t.Error("expected no dispatch when a manager completes a task")
	}
}

func TestNotifier_ManualReminder(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	notifier := newTestNotifier(dispatcher)

	result, err := notifier.ManualReminder(context.Background(), sampleTask(),
		notify.Actor{ID: "usr_manager", Role: user.RoleWorker}, // creator, not manager
		[]string{"usr_w1", "usr_w2"})
	if err != nil {
		t.Fatalf("failed to send reminder: %v", err)
	}

	if result.Success != 2 {
		t.Errorf("expected 2 successes, got %d", result.Success)
	}
	if len(dispatcher.calls) != 2 {
		t.Fatalf("expected one dispatch per worker, got %d", len(dispatcher.calls))
	}

	// Each worker gets its own notification id.
	for i, workerID := range []string{"usr_w1", "usr_w2"} {
		got, _ := dispatcher.calls[i].note.Data["notification_id"].(string)
		wantPrefix := fmt.Sprintf("manual_tsk_1_%s_", workerID)
		if !strings.HasPrefix(got, wantPrefix) {
			t.Errorf("call %d: expected notification_id prefix %q, got %q", i, wantPrefix, got)
		}
	}
}

func TestNotifier_ManualReminder_PermissionDenied(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	notifier := newTestNotifier(dispatcher)

	_, err := notifier.ManualReminder(context.Background(), sampleTask(),
		notify.Actor{ID: "usr_other", Role: user.RoleWorker},
		[]string{"usr_w1"})
	if !errors.Is(err, notify.ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}
	if len(dispatcher.calls) != 0 {
		t.Error("expected no dispatch on permission failure")
	}
}

func TestNotifier_ManualReminder_NoWorkers(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	notifier := newTestNotifier(dispatcher)

	_, err := notifier.ManualReminder(context.Background(), sampleTask(),
		notify.Actor{ID: "usr_any", Role: user.RoleSiteManager}, nil)
	if !errors.Is(err, notify.ErrNoAssignedWorkers) {
		t.Errorf("expected ErrNoAssignedWorkers, got %v", err)
	}
}

func TestNotifier_KillSwitch(t *testing.T) {
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
	})
	if err := flags.SetFlag(context.Background(), &featureflags.Flag{
		Key:   featureflags.FlagPushNotifications,
		Value: false,
	}); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}

	dispatcher := &fakeDispatcher{}
	notifier := notify.NewNotifier(notify.NotifierConfig{
		Dispatcher: dispatcher,
		Flags:      flags,
		Logger:     zerolog.Nop(),
	})

	result, err := notifier.TaskAssigned(context.Background(), sampleTask(), []string{"usr_w1"})
	if err != nil {
		t.Fatalf("failed to notify assignment: %v", err)
	}

	if result.Success != 0 || result.Failure != 0 {
		t.Errorf("expected {0 0} with push disabled, got {%d %d}", result.Success, result.Failure)
	}
	if len(dispatcher.calls) != 0 {
		t.Error("expected no dispatch with push disabled")
	}
}
