package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/workcrew/workcrew/internal/api/models"
	"github.com/workcrew/workcrew/internal/api/response"
	"github.com/workcrew/workcrew/internal/notify"
	"github.com/workcrew/workcrew/internal/task"
)

// TaskHandler handles task endpoints.
type TaskHandler struct {
	tasks *task.Service
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks *task.Service) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// ListTasks handles GET /v1/tasks - list tasks visible to the caller.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), 50, 200)

	status := task.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "status", Message: "must be one of waiting, in_progress, completed", Code: "INVALID"},
		})
		return
	}

	tasks, err := h.tasks.List(r.Context(), GetUserID(r.Context()), status, limit)
	if err != nil {
		response.InternalError(w, r, "failed to list tasks")
		return
	}

	response.JSON(w, r, http.StatusOK, tasks)
}

// CreateTask handles POST /v1/tasks - create a task.
// Restricted to site managers by the router.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var input models.TaskCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if errs := input.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", errs)
		return
	}

	created, err := h.tasks.Create(r.Context(), GetUserID(r.Context()), &input)
	if err != nil {
		h.writeTaskError(w, r, err)
		return
	}

	location := fmt.Sprintf("/v1/tasks/%s", created.ID)
	response.Created(w, r, location, created)
}

// GetTask handles GET /v1/tasks/{taskId} - get a single task.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	result, err := h.tasks.Get(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "taskId"))
	if err != nil {
		h.writeTaskError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, result)
}

// UpdateTask handles PUT /v1/tasks/{taskId} - update task fields.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var input models.TaskUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	updated, err := h.tasks.Update(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "taskId"), &input)
	if err != nil {
		h.writeTaskError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, updated)
}

// DeleteTask handles DELETE /v1/tasks/{taskId} - delete a task.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	err := h.tasks.Delete(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "taskId"))
	if err != nil {
		h.writeTaskError(w, r, err)
		return
	}

	response.NoContent(w, r)
}

// AssignWorkers handles POST /v1/tasks/{taskId}/assign - assign workers.
// Newly added workers receive an assignment notification.
func (h *TaskHandler) AssignWorkers(w http.ResponseWriter, r *http.Request) {
	var input models.TaskAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if len(input.Workers) == 0 {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "workers", Message: "is required", Code: "REQUIRED"},
		})
		return
	}

	updated, err := h.tasks.AssignWorkers(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "taskId"), input.Workers)
	if err != nil {
		h.writeTaskError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, updated)
}

// CompleteTask handles POST /v1/tasks/{taskId}/complete - complete a task.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	var input models.TaskCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	completed, err := h.tasks.Complete(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "taskId"), &input)
	if err != nil {
		h.writeTaskError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, completed)
}

// RemindTask handles POST /v1/tasks/{taskId}/remind - push a manual reminder
// to all assigned workers.
func (h *TaskHandler) RemindTask(w http.ResponseWriter, r *http.Request) {
	summary, err := h.tasks.Remind(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "taskId"))
	if err != nil {
		h.writeTaskError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, summary)
}

func (h *TaskHandler) writeTaskError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		response.NotFound(w, r, "task not found")
	case errors.Is(err, task.ErrNotAllowed):
		response.Forbidden(w, r, "not allowed to perform this operation")
	case errors.Is(err, notify.ErrPermissionDenied):
		response.Forbidden(w, r, "only site managers or the task creator can send reminders")
	case errors.Is(err, task.ErrInvalidTransition):
		response.Conflict(w, r, "invalid task status transition")
	case errors.Is(err, notify.ErrNoAssignedWorkers):
		response.Conflict(w, r, "no workers are assigned to this task")
	default:
		response.InternalError(w, r, "task operation failed")
	}
}
