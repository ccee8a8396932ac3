package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// IsTerminal reports whether the status is a terminal state.
// Terminal states are never left once entered.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskKind identifies the category of a task. The set of kinds is closed;
// adding one requires registering a validator and an execution body.
type TaskKind string

// Supported task kinds
const (
	TaskKindSum     TaskKind = "sum"
	TaskKindPrompt  TaskKind = "prompt"
	TaskKindWeather TaskKind = "weather"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID       = errors.New("task ID cannot be empty")
	ErrEmptyTaskKind     = errors.New("task kind cannot be empty")
	ErrNilTaskParameters = errors.New("task parameters cannot be nil")
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrTerminalState is returned when a transition is attempted out of
	// a terminal state.
	ErrTerminalState = errors.New("task is already in a terminal state")

	// ErrInvalidTransition is returned when a status transition violates
	// the pending -> running -> {completed|failed} ordering.
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// Task represents a unit of requested work with a durable lifecycle record.
// The store row keyed by ID is the single source of truth for status, result
// and error; the output cache only ever holds a disposable copy.
type Task struct {
	ID          uuid.UUID      `json:"id"`
	Kind        TaskKind       `json:"kind"`
	Parameters  map[string]any `json:"parameters"`
	Status      TaskStatus     `json:"status"`
	Result      map[string]any `json:"result"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at"`
}

// NewTask creates a new pending Task for the given kind and parameters.
// It generates the task ID and sets the creation timestamps.
// Returns an error if validation fails.
func NewTask(kind TaskKind, parameters map[string]any) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:         uuid.New(),
		Kind:       kind,
		Parameters: parameters,
		Status:     TaskStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.Kind == "" {
		return ErrEmptyTaskKind
	}

	if t.Parameters == nil {
		return ErrNilTaskParameters
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	return nil
}

// MarkRunning transitions the task to running. The transition is legal from
// pending, and from running itself (a redelivered attempt refreshes the
// claim without changing state).
func (t *Task) MarkRunning() error {
	if t.Status.IsTerminal() {
		return ErrTerminalState
	}

	t.Status = TaskStatusRunning
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted transitions the task to completed and records its result.
// Only legal from running.
func (t *Task) MarkCompleted(result map[string]any) error {
	if t.Status.IsTerminal() {
		return ErrTerminalState
	}
	if t.Status != TaskStatusRunning {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	t.Status = TaskStatusCompleted
	t.Result = result
	t.Error = ""
	t.UpdatedAt = now
	t.CompletedAt = &now
	return nil
}

// MarkFailed transitions the task to failed and records the error message.
// Only legal from running.
func (t *Task) MarkFailed(message string) error {
	if t.Status.IsTerminal() {
		return ErrTerminalState
	}
	if t.Status != TaskStatusRunning {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	t.Status = TaskStatusFailed
	t.Result = nil
	t.Error = message
	t.UpdatedAt = now
	t.CompletedAt = &now
	return nil
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}
