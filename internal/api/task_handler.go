// Package api implements the HTTP handlers for the task endpoints.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/tasker-api/internal/api/shared"
	"github.com/phrazzld/tasker-api/internal/domain"
	"github.com/phrazzld/tasker-api/internal/service"
)

// TaskHandler handles task submission and read endpoints.
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With("component", "task_handler"),
	}
}

// SubmitTask handles POST /api/tasks. A valid submission is acknowledged
// with 202 before any execution happens.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req RunTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing required fields: kind and parameters")
		return
	}

	id, err := h.taskService.SubmitTask(r.Context(), domain.TaskKind(req.Kind), req.Parameters)
	if err != nil {
		status := MapErrorToStatusCode(err)
		shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, RunTaskResponse{
		TaskID:  id.String(),
		Message: "Task submitted successfully",
	})
}

// GetTaskOutput handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTaskOutput(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDFromRequest(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	view, err := h.taskService.GetTaskOutput(r.Context(), id)
	if err != nil {
		status := MapErrorToStatusCode(err)
		shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// GetTaskStatus handles GET /api/tasks/{id}/status.
func (h *TaskHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDFromRequest(r)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	status, err := h.taskService.GetTaskStatus(r.Context(), id)
	if err != nil {
		code := MapErrorToStatusCode(err)
		shared.RespondWithErrorAndLog(w, r, code, GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

func taskIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", domain.ErrInvalidID, raw)
	}
	return id, nil
}
