package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Common errors returned by the Queue
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// Queue implements a buffered in-process delivery channel that satisfies
// both QueueReader and QueueWriter. Redeliveries are scheduled with a
// timer; a redelivery that fires after Close is dropped.
type Queue struct {
	deliveries chan Delivery
	logger     *slog.Logger
	mu         sync.Mutex
	closed     bool
}

// NewQueue creates a new queue with the specified buffer size.
func NewQueue(size int, logger *slog.Logger) *Queue {
	return &Queue{
		deliveries: make(chan Delivery, size),
		logger:     logger.With("component", "task_queue"),
	}
}

// Enqueue adds a first-attempt delivery for the given work item.
// Returns an error if the queue is full or closed.
func (q *Queue) Enqueue(item WorkItem) error {
	return q.send(Delivery{Item: item, Attempt: 1})
}

// Requeue schedules a redelivery with the given attempt number after the
// delay elapses. A zero delay redelivers immediately.
func (q *Queue) Requeue(item WorkItem, attempt int, delay time.Duration) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.mu.Unlock()

	delivery := Delivery{Item: item, Attempt: attempt}
	if delay <= 0 {
		return q.send(delivery)
	}

	time.AfterFunc(delay, func() {
		if err := q.send(delivery); err != nil {
			q.logger.Warn("dropping scheduled redelivery",
				"task_id", item.TaskID,
				"task_kind", item.Kind,
				"attempt", attempt,
				"error", err)
		}
	})
	return nil
}

// send places a delivery on the channel without blocking.
func (q *Queue) send(delivery Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.deliveries <- delivery:
		q.logger.Debug("delivery enqueued",
			"task_id", delivery.Item.TaskID,
			"task_kind", delivery.Item.Kind,
			"attempt", delivery.Attempt,
			"queue_len", len(q.deliveries),
			"queue_cap", cap(q.deliveries))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.deliveries))
	}
}

// Close closes the queue, preventing further submission.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.deliveries)
		q.logger.Info("task queue closed")
	}
}

// GetChannel returns a read-only channel for consuming deliveries.
func (q *Queue) GetChannel() <-chan Delivery {
	return q.deliveries
}

var (
	_ QueueReader = (*Queue)(nil)
	_ QueueWriter = (*Queue)(nil)
)
