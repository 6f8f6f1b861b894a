package handler

import (
	"encoding/json"
	"net/http"

	"github.com/workcrew/workcrew/internal/api/models"
	"github.com/workcrew/workcrew/internal/api/response"
	"github.com/workcrew/workcrew/internal/push"
)

// NotificationHandler handles direct notification endpoints.
type NotificationHandler struct {
	dispatcher *push.Dispatcher
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(dispatcher *push.Dispatcher) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

// SendTestNotification handles POST /v1/notifications/test - push a test
// notification to the caller's own active devices.
func (h *NotificationHandler) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	var input models.TestNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		// An empty body sends the default test notification.
		input = models.TestNotificationRequest{}
	}

	title := input.Title
	if title == "" {
		title = "Test Notification"
	}
	body := input.Body
	if body == "" {
		body = "Push notifications are working."
	}

	result, err := h.dispatcher.SendToUsers(r.Context(), []string{GetUserID(r.Context())}, &push.Notification{
		Title: title,
		Body:  body,
		Data: map[string]any{
			"type": "test_notification",
		},
	})
	if err != nil {
		response.InternalError(w, r, "failed to send test notification")
		return
	}

	response.JSON(w, r, http.StatusOK, models.DispatchSummary{
		SuccessCount: result.Success,
		FailureCount: result.Failure,
	})
}
