package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/tasker-api/internal/domain"
	"github.com/phrazzld/tasker-api/internal/service"
	"github.com/phrazzld/tasker-api/internal/store"
)

type stubTaskService struct {
	submitID     uuid.UUID
	submitErr    error
	outputView   *service.TaskView
	outputErr    error
	statusView   *service.TaskStatusView
	statusErr    error
	lastKind     domain.TaskKind
	lastParams   map[string]any
	lastOutputID uuid.UUID
}

func (s *stubTaskService) SubmitTask(ctx context.Context, kind domain.TaskKind, params map[string]any) (uuid.UUID, error) {
	s.lastKind = kind
	s.lastParams = params
	return s.submitID, s.submitErr
}

func (s *stubTaskService) GetTaskOutput(ctx context.Context, id uuid.UUID) (*service.TaskView, error) {
	s.lastOutputID = id
	return s.outputView, s.outputErr
}

func (s *stubTaskService) GetTaskStatus(ctx context.Context, id uuid.UUID) (*service.TaskStatusView, error) {
	return s.statusView, s.statusErr
}

func newTestRouter(svc service.TaskService) http.Handler {
	handler := NewTaskHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/api/tasks", func(r chi.Router) {
		r.Post("/", handler.SubmitTask)
		r.Get("/{id}", handler.GetTaskOutput)
		r.Get("/{id}/status", handler.GetTaskStatus)
	})
	return r
}

func TestSubmitTaskHandler(t *testing.T) {
	t.Parallel()

	t.Run("accepts a valid submission", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		svc := &stubTaskService{submitID: id}
		router := newTestRouter(svc)

		body := bytes.NewBufferString(`{"kind":"sum","parameters":{"a":1,"b":2}}`)
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp RunTaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, id.String(), resp.TaskID)
		assert.Equal(t, "Task submitted successfully", resp.Message)

		assert.Equal(t, domain.TaskKindSum, svc.lastKind)
		assert.Equal(t, map[string]any{"a": 1.0, "b": 2.0}, svc.lastParams)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&stubTaskService{})

		req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(`{not json`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&stubTaskService{})

		req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(`{"parameters":{}}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps validation failures to 400 with the message", func(t *testing.T) {
		t.Parallel()
		svc := &stubTaskService{
			submitErr: fmt.Errorf("%w: parameter 'b' is required for sum task", domain.ErrValidation),
		}
		router := newTestRouter(svc)

		body := bytes.NewBufferString(`{"kind":"sum","parameters":{"a":1}}`)
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "parameter 'b' is required")
	})

	t.Run("maps unknown kind to 400", func(t *testing.T) {
		t.Parallel()
		svc := &stubTaskService{
			submitErr: fmt.Errorf("%w: %q", domain.ErrUnknownTaskKind, "fibonacci"),
		}
		router := newTestRouter(svc)

		body := bytes.NewBufferString(`{"kind":"fibonacci","parameters":{}}`)
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps unexpected failures to 500 without leaking details", func(t *testing.T) {
		t.Parallel()
		svc := &stubTaskService{
			submitErr: errors.New("pq: connection refused host=db.internal"),
		}
		router := newTestRouter(svc)

		body := bytes.NewBufferString(`{"kind":"sum","parameters":{"a":1,"b":2}}`)
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "db.internal")
		assert.Contains(t, rec.Body.String(), "An unexpected error occurred")
	})
}

func TestGetTaskOutputHandler(t *testing.T) {
	t.Parallel()

	t.Run("returns the task view", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		now := time.Now().UTC()
		svc := &stubTaskService{outputView: &service.TaskView{
			TaskID:    id.String(),
			Kind:      "sum",
			Status:    "completed",
			Result:    map[string]any{"result": 3.0},
			CreatedAt: now,
		}}
		router := newTestRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+id.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, id, svc.lastOutputID)

		var view service.TaskView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, "completed", view.Status)
		assert.Equal(t, map[string]any{"result": 3.0}, view.Result)
	})

	t.Run("rejects a malformed ID", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&stubTaskService{})

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid task ID")
	})

	t.Run("maps a missing task to 404", func(t *testing.T) {
		t.Parallel()
		svc := &stubTaskService{outputErr: store.ErrTaskNotFound}
		router := newTestRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+uuid.NewString(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Task not found")
	})
}

func TestGetTaskStatusHandler(t *testing.T) {
	t.Parallel()

	t.Run("returns the status view", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		svc := &stubTaskService{statusView: &service.TaskStatusView{
			TaskID: id.String(),
			Status: "running",
		}}
		router := newTestRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+id.String()+"/status", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var status service.TaskStatusView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "running", status.Status)
	})

	t.Run("maps a missing task to 404", func(t *testing.T) {
		t.Parallel()
		svc := &stubTaskService{statusErr: store.ErrTaskNotFound}
		router := newTestRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+uuid.NewString()+"/status", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
