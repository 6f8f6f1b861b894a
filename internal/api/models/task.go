package models

// Task represents a unit of field work assigned to one or more workers.
type Task struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Status          TaskStatus     `json:"status"`
	Address         *string        `json:"address,omitempty"`
	Latitude        *float64       `json:"latitude,omitempty"`
	Longitude       *float64       `json:"longitude,omitempty"`
	StartDate       Timestamp      `json:"startDate"`
	DueDate         Timestamp      `json:"dueDate"`
	CreatedBy       string         `json:"createdBy"`
	AssignedWorkers []string       `json:"assignedWorkers"`
	Documents       []TaskDocument `json:"documents,omitempty"`
	CreatedAt       Timestamp      `json:"createdAt"`
	UpdatedAt       Timestamp      `json:"updatedAt"`
}

// TaskDocument represents metadata for a before/after document attached to a task.
// File bytes live in external object storage; only the reference is kept here.
type TaskDocument struct {
	ID         string       `json:"id"`
	Kind       DocumentKind `json:"kind"`
	FileName   string       `json:"fileName"`
	FileURL    string       `json:"fileUrl"`
	UploadedBy string       `json:"uploadedBy"`
	UploadedAt Timestamp    `json:"uploadedAt"`
}

// TaskCreateRequest is the request body for creating a task.
type TaskCreateRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Address     *string              `json:"address,omitempty"`
	Latitude    *float64             `json:"latitude,omitempty"`
	Longitude   *float64             `json:"longitude,omitempty"`
	StartDate   Timestamp            `json:"startDate"`
	DueDate     Timestamp            `json:"dueDate"`
	Workers     []string             `json:"workers,omitempty"`
	Documents   []TaskDocumentUpload `json:"documents,omitempty"`
}

// TaskDocumentUpload is a document reference supplied at create/complete time.
type TaskDocumentUpload struct {
	FileName string `json:"fileName"`
	FileURL  string `json:"fileUrl"`
}

// Validate validates the task creation request.
func (r *TaskCreateRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Title == "" {
		errs = append(errs, FieldError{Field: "title", Message: "is required", Code: "REQUIRED"})
	} else if len(r.Title) > 200 {
		errs = append(errs, FieldError{Field: "title", Message: "must be at most 200 characters"})
	}
	if r.Description == "" {
		errs = append(errs, FieldError{Field: "description", Message: "is required", Code: "REQUIRED"})
	}
	if r.StartDate.Time().IsZero() {
		errs = append(errs, FieldError{Field: "startDate", Message: "is required", Code: "REQUIRED"})
	}
	if r.DueDate.Time().IsZero() {
		errs = append(errs, FieldError{Field: "dueDate", Message: "is required", Code: "REQUIRED"})
	}
	if r.Latitude != nil && (*r.Latitude < -90 || *r.Latitude > 90) {
		errs = append(errs, FieldError{Field: "latitude", Message: "must be between -90 and 90"})
	}
	if r.Longitude != nil && (*r.Longitude < -180 || *r.Longitude > 180) {
		errs = append(errs, FieldError{Field: "longitude", Message: "must be between -180 and 180"})
	}

	return errs
}

// TaskUpdateRequest is the request body for updating a task.
// Nil fields are left unchanged.
type TaskUpdateRequest struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
	Address     *string     `json:"address,omitempty"`
	Latitude    *float64    `json:"latitude,omitempty"`
	Longitude   *float64    `json:"longitude,omitempty"`
	StartDate   *Timestamp  `json:"startDate,omitempty"`
	DueDate     *Timestamp  `json:"dueDate,omitempty"`
}

// TaskAssignRequest is the request body for assigning workers to a task.
type TaskAssignRequest struct {
	Workers []string `json:"workers"`
}

// TaskCompleteRequest is the request body for completing a task.
type TaskCompleteRequest struct {
	Documents []TaskDocumentUpload `json:"documents,omitempty"`
}

// PagedTasks represents a paginated list of tasks.
type PagedTasks struct {
	Items []Task            `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}
