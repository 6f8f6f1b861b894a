package models

// DispatchSummary reports aggregate delivery counts for one notification dispatch.
type DispatchSummary struct {
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
}

// TestNotificationRequest is the request body for sending a test notification.
type TestNotificationRequest struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}
