// Package store defines the persistence interfaces used by the application.
// Implementations live under internal/platform.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/tasker-api/internal/domain"
)

// TaskStore defines the interface for persisting task lifecycle records.
// The store is the single source of truth for a task's status, result and
// error; every status write is a guarded single-row update keyed by task ID.
// Version: 1.0
type TaskStore interface {
	// Create persists a new task record with status "pending".
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if no record exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// MarkRunning transitions a task to "running" and refreshes updated_at,
	// reporting the status the row held before the claim so callers can tell
	// a first claim from a redelivery of an already-running task. The update
	// is guarded so a row already in a terminal state is left untouched; in
	// that case ErrUpdateFailed is returned.
	MarkRunning(ctx context.Context, id uuid.UUID) (domain.TaskStatus, error)

	// MarkCompleted transitions a task to "completed", recording its result
	// and completion timestamp. Guarded against terminal rows.
	MarkCompleted(ctx context.Context, id uuid.UUID, result map[string]any) error

	// MarkFailed transitions a task to "failed", recording the error message
	// and completion timestamp. Guarded against terminal rows.
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error

	// ListByStatus retrieves tasks with the given status, oldest first.
	// If olderThan is non-zero, only tasks whose last update is older than
	// the given duration are returned. Used by the recovery and stuck-task
	// sweeps.
	ListByStatus(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.Task, error)
}
