package api

// RunTaskRequest is the submission request body.
type RunTaskRequest struct {
	Kind       string         `json:"kind"       validate:"required"`
	Parameters map[string]any `json:"parameters" validate:"required"`
}

// RunTaskResponse acknowledges an accepted submission.
type RunTaskResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}
