// Package service implements the application services sitting between the
// HTTP handlers and the task engine.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/tasker-api/internal/cache"
	"github.com/phrazzld/tasker-api/internal/domain"
	"github.com/phrazzld/tasker-api/internal/platform/metrics"
	"github.com/phrazzld/tasker-api/internal/store"
	"github.com/phrazzld/tasker-api/internal/task"
)

// TaskView is the client-facing projection of a task record.
type TaskView struct {
	TaskID      string         `json:"task_id"`
	Kind        string         `json:"kind"`
	Status      string         `json:"status"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// TaskStatusView is the lightweight projection served by the status
// endpoint for polling clients.
type TaskStatusView struct {
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskService coordinates task submission and the read path.
// Version: 1.0
type TaskService interface {
	// SubmitTask validates a submission, persists the pending record, and
	// hands the work to the queue. The returned ID is valid even when
	// queue handoff fails; the recovery sweep re-enqueues the orphan.
	SubmitTask(ctx context.Context, kind domain.TaskKind, params map[string]any) (uuid.UUID, error)

	// GetTaskOutput returns the full task view, serving terminal views from
	// the output cache when possible.
	GetTaskOutput(ctx context.Context, id uuid.UUID) (*TaskView, error)

	// GetTaskStatus returns the lightweight status view, always from the
	// store so polling clients see transitions promptly.
	GetTaskStatus(ctx context.Context, id uuid.UUID) (*TaskStatusView, error)
}

type taskService struct {
	taskStore   store.TaskStore
	queue       task.QueueWriter
	registry    task.Registry
	outputCache cache.Cache
	cacheTTL    time.Duration
	logger      *slog.Logger
}

// NewTaskService creates the task service.
func NewTaskService(
	taskStore store.TaskStore,
	queue task.QueueWriter,
	registry task.Registry,
	outputCache cache.Cache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) TaskService {
	return &taskService{
		taskStore:   taskStore,
		queue:       queue,
		registry:    registry,
		outputCache: outputCache,
		cacheTTL:    cacheTTL,
		logger:      logger.With("component", "task_service"),
	}
}

func (s *taskService) SubmitTask(ctx context.Context, kind domain.TaskKind, params map[string]any) (uuid.UUID, error) {
	if err := s.registry.ValidateSubmission(kind, params); err != nil {
		return uuid.Nil, err
	}

	t, err := domain.NewTask(kind, params)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.taskStore.Create(ctx, t); err != nil {
		return uuid.Nil, fmt.Errorf("failed to persist task: %w", err)
	}

	metrics.TasksSubmitted.WithLabelValues(string(kind)).Inc()
	metrics.TasksByStatus.WithLabelValues(string(domain.TaskStatusPending)).Inc()

	item := task.WorkItem{TaskID: t.ID, Kind: t.Kind, Parameters: t.Parameters}
	if err := s.queue.Enqueue(item); err != nil {
		// The pending row is durable; submission still succeeds and the
		// recovery sweep picks the task up later.
		s.logger.Warn("failed to enqueue task, leaving for recovery",
			"task_id", t.ID,
			"task_kind", t.Kind,
			"error", err)
	}

	s.logger.Info("task submitted", "task_id", t.ID, "task_kind", t.Kind)
	return t.ID, nil
}

func (s *taskService) GetTaskOutput(ctx context.Context, id uuid.UUID) (*TaskView, error) {
	key := cache.OutputKey(id.String())

	if raw, found, err := s.outputCache.Get(ctx, key); err != nil {
		s.logger.Warn("output cache read failed, falling back to store",
			"task_id", id, "error", err)
	} else if found {
		var view TaskView
		if err := json.Unmarshal([]byte(raw), &view); err == nil {
			metrics.CacheHits.Inc()
			return &view, nil
		}
		// Undecodable entries count as misses and get overwritten below.
		s.logger.Warn("discarding undecodable cached task output", "task_id", id)
	}
	metrics.CacheMisses.Inc()

	t, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	view := viewFromTask(t)

	// Only terminal views are cached: they are immutable, so a stale entry
	// can never contradict the store.
	if t.Status.IsTerminal() {
		if encoded, err := json.Marshal(view); err == nil {
			if err := s.outputCache.Set(ctx, key, string(encoded), s.cacheTTL); err != nil {
				s.logger.Warn("failed to cache task output", "task_id", id, "error", err)
			}
		}
	}

	return view, nil
}

func (s *taskService) GetTaskStatus(ctx context.Context, id uuid.UUID) (*TaskStatusView, error) {
	t, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &TaskStatusView{
		TaskID:    t.ID.String(),
		Status:    string(t.Status),
		UpdatedAt: t.UpdatedAt,
	}, nil
}

func viewFromTask(t *domain.Task) *TaskView {
	return &TaskView{
		TaskID:      t.ID.String(),
		Kind:        string(t.Kind),
		Status:      string(t.Status),
		Result:      t.Result,
		Error:       t.Error,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
}

var _ TaskService = (*taskService)(nil)
