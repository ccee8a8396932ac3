// Package task implements the task lifecycle engine: the work queue
// contract, the static kind registry with per-kind validators and execution
// bodies, and the worker runner that drives every task through
// pending -> running -> {completed|failed}.
package task

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/tasker-api/internal/domain"
)

// WorkItem is the unit handed from the dispatcher to the queue. It carries
// everything a worker needs so execution never depends on re-reading the
// submission request.
type WorkItem struct {
	TaskID     uuid.UUID       `json:"task_id"`
	Kind       domain.TaskKind `json:"kind"`
	Parameters map[string]any  `json:"parameters"`
}

// Delivery is one handoff of a work item to a worker. Attempt is 1-based
// and grows on every redelivery of the same item.
type Delivery struct {
	Item    WorkItem
	Attempt int
}

// QueueReader provides read-only access to the delivery channel,
// allowing workers to consume deliveries without the ability to enqueue.
// Version: 1.0
type QueueReader interface {
	// GetChannel returns a read-only channel for consuming deliveries
	GetChannel() <-chan Delivery
}

// QueueWriter provides write access to the work queue. Delivery is
// at-least-once: an item handed to Enqueue or Requeue will be delivered to
// a worker at least once until the process stops.
// Version: 1.0
type QueueWriter interface {
	// Enqueue adds a first-attempt delivery for the given work item.
	// Returns an error if the queue is full or closed.
	Enqueue(item WorkItem) error

	// Requeue schedules a redelivery of the given work item with the given
	// attempt number after the delay elapses. Returns an error if the queue
	// is closed.
	Requeue(item WorkItem, attempt int, delay time.Duration) error

	// Close closes the queue, preventing further submission.
	Close()
}

// ExecuteFunc is a task kind's execution body. It receives the submitted
// parameters and returns the result structure, or a failure tagged with
// ErrPermanent or ErrTransient.
type ExecuteFunc func(ctx context.Context, params map[string]any) (map[string]any, error)

// ValidateFunc is a task kind's submission-time validator. Pure: no side
// effects, no I/O. A non-nil return wraps domain.ErrValidation.
type ValidateFunc func(params map[string]any) error
