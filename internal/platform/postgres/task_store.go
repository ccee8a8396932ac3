// Package postgres implements the persistence interfaces from internal/store
// on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/tasker-api/internal/domain"
	"github.com/phrazzld/tasker-api/internal/platform/logger"
	"github.com/phrazzld/tasker-api/internal/store"
)

// TaskStore implements the store.TaskStore interface using PostgreSQL.
// Status writes are guarded single-row updates: a row that has reached a
// terminal state never transitions again, regardless of delivery races.
type TaskStore struct {
	db store.DBTX
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db store.DBTX) *TaskStore {
	return &TaskStore{
		db: db,
	}
}

// Create persists a new task record.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	parameters, err := json.Marshal(task.Parameters)
	if err != nil {
		return fmt.Errorf("failed to marshal task parameters: %w", err)
	}

	query := `
		INSERT INTO tasks (id, kind, parameters, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.Kind,
		parameters,
		task.Status,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			"task_id", task.ID,
			"task_kind", task.Kind,
			"error", err)
		return store.NewStoreError("task", "create", "failed to save task", err)
	}

	return nil
}

// GetByID retrieves a task by its ID.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, kind, parameters, status, result, error_message, created_at, updated_at, completed_at
		FROM tasks
		WHERE id = $1
	`

	row := s.db.QueryRowContext(ctx, query, id)

	task, err := scanTask(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// MarkRunning transitions a task to running and reports the status the row
// held before the claim. The guard keeps terminal rows untouched; a guarded
// miss on an existing row returns ErrUpdateFailed so the caller can tell a
// dead row from a missing one.
func (s *TaskStore) MarkRunning(ctx context.Context, id uuid.UUID) (domain.TaskStatus, error) {
	log := logger.FromContext(ctx)

	query := `
		WITH prior AS (
			SELECT status FROM tasks WHERE id = $3 FOR UPDATE
		)
		UPDATE tasks
		SET status = $1, updated_at = $2
		FROM prior
		WHERE tasks.id = $3 AND prior.status IN ($4, $1)
		RETURNING prior.status
	`

	var prior domain.TaskStatus
	err := s.db.QueryRowContext(ctx, query,
		domain.TaskStatusRunning,
		time.Now().UTC(),
		id,
		domain.TaskStatusPending,
	).Scan(&prior)
	if err == nil {
		return prior, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to update task status",
			"task_id", id,
			"operation", "mark_running",
			"error", err)
		return "", store.NewStoreError("task", "mark_running", "failed to update task status", err)
	}

	// Either the row is gone or the guard skipped a terminal row.
	// Distinguish so callers can decide whether to proceed.
	if _, err := s.GetByID(ctx, id); errors.Is(err, store.ErrTaskNotFound) {
		return "", store.ErrTaskNotFound
	}
	log.Warn("status update skipped by terminal-state guard",
		"task_id", id,
		"operation", "mark_running")
	return "", store.ErrUpdateFailed
}

// MarkCompleted transitions a task to completed and records its result.
func (s *TaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, result map[string]any) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal task result: %w", err)
	}

	now := time.Now().UTC()
	query := `
		UPDATE tasks
		SET status = $1, result = $2, error_message = NULL, updated_at = $3, completed_at = $3
		WHERE id = $4 AND status NOT IN ($5, $6)
	`

	return s.guardedUpdate(ctx, id, "mark_completed", query,
		domain.TaskStatusCompleted,
		encoded,
		now,
		id,
		domain.TaskStatusCompleted,
		domain.TaskStatusFailed,
	)
}

// MarkFailed transitions a task to failed and records the error message.
func (s *TaskStore) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	now := time.Now().UTC()
	query := `
		UPDATE tasks
		SET status = $1, result = NULL, error_message = $2, updated_at = $3, completed_at = $3
		WHERE id = $4 AND status NOT IN ($1, $5)
	`

	return s.guardedUpdate(ctx, id, "mark_failed", query,
		domain.TaskStatusFailed,
		message,
		now,
		id,
		domain.TaskStatusCompleted,
	)
}

// guardedUpdate runs a status transition and classifies its outcome.
func (s *TaskStore) guardedUpdate(ctx context.Context, id uuid.UUID, operation, query string, args ...any) error {
	log := logger.FromContext(ctx)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update task status",
			"task_id", id,
			"operation", operation,
			"error", err)
		return store.NewStoreError("task", operation, "failed to update task status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Either the row is gone or the guard skipped a terminal row.
		// Distinguish so callers can decide whether to proceed.
		if _, err := s.GetByID(ctx, id); errors.Is(err, store.ErrTaskNotFound) {
			return store.ErrTaskNotFound
		}
		log.Warn("status update skipped by terminal-state guard",
			"task_id", id,
			"operation", operation)
		return store.ErrUpdateFailed
	}

	return nil
}

// ListByStatus retrieves tasks with the given status, oldest first,
// optionally filtered to rows last updated longer than olderThan ago.
func (s *TaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.Task, error) {
	log := logger.FromContext(ctx)

	var query string
	var args []any

	if olderThan > 0 {
		query = `
			SELECT id, kind, parameters, status, result, error_message, created_at, updated_at, completed_at
			FROM tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = []any{status, time.Now().UTC().Add(-olderThan)}
	} else {
		query = `
			SELECT id, kind, parameters, status, result, error_message, created_at, updated_at, completed_at
			FROM tasks
			WHERE status = $1
			ORDER BY created_at ASC
		`
		args = []any{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks by status",
			"status", status,
			"error", err)
		return nil, store.NewStoreError("task", "list_by_status", "failed to query tasks", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// scanTask reads one task row through the given scan function.
func scanTask(scan func(dest ...any) error) (*domain.Task, error) {
	var (
		task         domain.Task
		parameters   []byte
		result       []byte
		errorMessage sql.NullString
		updatedAt    sql.NullTime
		completedAt  sql.NullTime
	)

	if err := scan(
		&task.ID,
		&task.Kind,
		&parameters,
		&task.Status,
		&result,
		&errorMessage,
		&task.CreatedAt,
		&updatedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(parameters, &task.Parameters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task parameters: %w", err)
	}

	if len(result) > 0 {
		if err := json.Unmarshal(result, &task.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task result: %w", err)
		}
	}

	task.Error = errorMessage.String
	if updatedAt.Valid {
		task.UpdatedAt = updatedAt.Time
	} else {
		task.UpdatedAt = task.CreatedAt
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}

	return &task, nil
}

var _ store.TaskStore = (*TaskStore)(nil)
