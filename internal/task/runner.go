package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/tasker-api/internal/cache"
	"github.com/phrazzld/tasker-api/internal/config"
	"github.com/phrazzld/tasker-api/internal/domain"
	"github.com/phrazzld/tasker-api/internal/platform/metrics"
	"github.com/phrazzld/tasker-api/internal/store"
)

// TaskRunner drives task execution: a pool of workers consumes deliveries
// from the queue, claims the task in the store, executes the kind's body
// under the time budgets, and persists exactly one terminal outcome per
// task. Two background sweeps reconcile the store with the volatile queue
// after restarts and crashes.
type TaskRunner struct {
	taskStore store.TaskStore
	reader    QueueReader
	writer    QueueWriter
	registry  Registry
	cache     cache.Cache
	cfg       config.WorkerConfig
	logger    *slog.Logger

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewTaskRunner creates a new TaskRunner.
func NewTaskRunner(
	taskStore store.TaskStore,
	reader QueueReader,
	writer QueueWriter,
	registry Registry,
	outputCache cache.Cache,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) *TaskRunner {
	ctx, cancel := context.WithCancel(context.Background())

	return &TaskRunner{
		taskStore:  taskStore,
		reader:     reader,
		writer:     writer,
		registry:   registry,
		cache:      outputCache,
		cfg:        cfg,
		logger:     logger.With("component", "task_runner"),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start recovers unfinished tasks, launches the worker pool, and begins the
// stuck-task sweep.
func (r *TaskRunner) Start() error {
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover tasks: %w", err)
	}

	for i := 0; i < r.cfg.Count; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go r.stuckTaskMonitor()

	r.logger.Info("task runner started", "worker_count", r.cfg.Count)
	return nil
}

// Stop shuts down the runner. In-flight attempts are abandoned; their tasks
// stay "running" in the store and are picked up by the stuck-task sweep on
// the next run.
func (r *TaskRunner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.logger.Info("task runner stopped")
}

// Recover re-enqueues tasks that were accepted but never finished before the
// previous process stopped. Pending rows restart from attempt one; rows
// stuck in "running" are handed to the stuck-task sweep rather than
// re-executed immediately, since a concurrent instance may still own them.
func (r *TaskRunner) Recover() error {
	ctx := context.Background()

	pending, err := r.taskStore.ListByStatus(ctx, domain.TaskStatusPending, 0)
	if err != nil {
		return fmt.Errorf("failed to list pending tasks: %w", err)
	}

	r.logger.Info("recovering unfinished tasks", "pending_count", len(pending))

	for _, t := range pending {
		item := WorkItem{TaskID: t.ID, Kind: t.Kind, Parameters: t.Parameters}
		if err := r.writer.Enqueue(item); err != nil {
			r.logger.Error("failed to requeue pending task",
				"task_id", t.ID,
				"task_kind", t.Kind,
				"error", err)
		}
	}

	return nil
}

// worker consumes deliveries until the runner stops or the queue closes.
func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case delivery, ok := <-r.reader.GetChannel():
			if !ok {
				r.logger.Debug("delivery channel closed, stopping worker", "worker_id", id)
				return
			}
			r.processDelivery(delivery, id)
		}
	}
}

// processDelivery handles one delivery end to end: claim, execute, settle.
func (r *TaskRunner) processDelivery(delivery Delivery, workerID int) {
	item := delivery.Item
	logger := r.logger.With(
		"task_id", item.TaskID,
		"task_kind", item.Kind,
		"attempt", delivery.Attempt,
		"worker_id", workerID,
	)

	ctx := context.Background()

	handler, ok := r.registry.Handler(item.Kind)
	if !ok {
		// A kind can only reach the queue through validation, so this means
		// the kind set shrank between submission and execution.
		logger.Error("no handler registered for task kind")
		r.settleFailure(ctx, logger, delivery, time.Duration(0), false,
			Permanentf("no handler registered for task kind %q", item.Kind))
		return
	}

	recordMissing := false
	prior, err := r.taskStore.MarkRunning(ctx, item.TaskID)
	switch {
	case err == nil:
		// A redelivery or stuck-task requeue finds the row already
		// "running"; only the first claim moves the gauge.
		if prior == domain.TaskStatusPending {
			metrics.TransitionStatus(domain.TaskStatusPending, domain.TaskStatusRunning)
		}
	case errors.Is(err, store.ErrTaskNotFound):
		// The record vanished (deleted externally). Execution proceeds
		// anyway; there is just no row left to report status on.
		logger.Warn("task record not found at claim, executing without a record")
		recordMissing = true
	case errors.Is(err, store.ErrUpdateFailed):
		// Already terminal: a duplicate delivery under at-least-once
		// semantics. The first settlement won; drop this one.
		logger.Info("task already terminal, dropping duplicate delivery")
		return
	default:
		logger.Error("failed to claim task, redelivering", "error", err)
		r.redeliver(logger, delivery)
		return
	}

	logger.Info("executing task")

	started := time.Now()
	result, execErr := r.executeWithBudget(handler.Execute, item.Parameters)
	elapsed := time.Since(started)

	if execErr != nil {
		r.settleFailure(ctx, logger, delivery, elapsed, recordMissing, execErr)
		return
	}

	if recordMissing {
		metrics.TaskExecutions.WithLabelValues(string(item.Kind), string(domain.TaskStatusCompleted)).Inc()
		metrics.TaskExecutionDuration.WithLabelValues(string(item.Kind)).Observe(elapsed.Seconds())
		logger.Info("task completed without a record", "duration_ms", elapsed.Milliseconds())
		return
	}

	if err := r.taskStore.MarkCompleted(ctx, item.TaskID, result); err != nil {
		if errors.Is(err, store.ErrUpdateFailed) || errors.Is(err, store.ErrTaskNotFound) {
			logger.Warn("task no longer completable, dropping outcome", "error", err)
			return
		}
		logger.Error("failed to persist completion, redelivering", "error", err)
		r.redeliver(logger, delivery)
		return
	}

	metrics.TaskExecutions.WithLabelValues(string(item.Kind), string(domain.TaskStatusCompleted)).Inc()
	metrics.TaskExecutionDuration.WithLabelValues(string(item.Kind)).Observe(elapsed.Seconds())
	metrics.TransitionStatus(domain.TaskStatusRunning, domain.TaskStatusCompleted)
	r.invalidateOutput(ctx, logger, item)

	logger.Info("task completed", "duration_ms", elapsed.Milliseconds())
}

// executeWithBudget runs a task body under the two time budgets. The soft
// limit cancels the body's context so it can stop cooperatively; the hard
// limit abandons the attempt outright and reports it as transient.
func (r *TaskRunner) executeWithBudget(execute ExecuteFunc, params map[string]any) (map[string]any, error) {
	softCtx, cancel := context.WithTimeout(r.ctx, r.cfg.SoftTimeLimit)
	defer cancel()

	type outcome struct {
		result map[string]any
		err    error
	}

	// Buffered so an abandoned body can still finish and exit.
	done := make(chan outcome, 1)
	go func() {
		result, err := execute(softCtx, params)
		done <- outcome{result: result, err: err}
	}()

	hardTimer := time.NewTimer(r.cfg.HardTimeLimit)
	defer hardTimer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) {
				return nil, TransientWrap(out.err,
					fmt.Sprintf("task exceeded soft time limit of %s", r.cfg.SoftTimeLimit))
			}
			return nil, out.err
		}
		return out.result, nil
	case <-hardTimer.C:
		return nil, Transientf("task exceeded hard time limit of %s", r.cfg.HardTimeLimit)
	}
}

// settleFailure decides between redelivery and a terminal failure for an
// attempt that produced an error.
func (r *TaskRunner) settleFailure(ctx context.Context, logger *slog.Logger, delivery Delivery, elapsed time.Duration, recordMissing bool, execErr error) {
	item := delivery.Item

	if !IsPermanent(execErr) && delivery.Attempt <= r.cfg.MaxRetries {
		logger.Warn("transient task failure, scheduling retry",
			"error", execErr,
			"retry_delay", r.cfg.RetryDelay)
		if err := r.writer.Requeue(item, delivery.Attempt+1, r.cfg.RetryDelay); err != nil {
			logger.Error("failed to schedule retry", "error", err)
		}
		// The task stays "running" across redeliveries; only the terminal
		// transition moves it out.
		return
	}

	message := execErr.Error()
	if !IsPermanent(execErr) {
		message = fmt.Sprintf("failed after %d attempts: %s", delivery.Attempt, message)
	}

	if recordMissing {
		metrics.TaskExecutions.WithLabelValues(string(item.Kind), string(domain.TaskStatusFailed)).Inc()
		metrics.TaskExecutionDuration.WithLabelValues(string(item.Kind)).Observe(elapsed.Seconds())
		logger.Error("task failed without a record", "error", message, "attempts", delivery.Attempt)
		return
	}

	if err := r.taskStore.MarkFailed(ctx, item.TaskID, message); err != nil {
		if errors.Is(err, store.ErrUpdateFailed) || errors.Is(err, store.ErrTaskNotFound) {
			logger.Warn("task no longer failable, dropping outcome", "error", err)
			return
		}
		logger.Error("failed to persist failure, redelivering", "error", err)
		r.redeliver(logger, delivery)
		return
	}

	metrics.TaskExecutions.WithLabelValues(string(item.Kind), string(domain.TaskStatusFailed)).Inc()
	metrics.TaskExecutionDuration.WithLabelValues(string(item.Kind)).Observe(elapsed.Seconds())
	metrics.TransitionStatus(domain.TaskStatusRunning, domain.TaskStatusFailed)
	r.invalidateOutput(ctx, logger, item)

	logger.Error("task failed", "error", message, "attempts", delivery.Attempt)
}

// redeliver puts a delivery back on the queue after a store error, with the
// attempt number unchanged so infrastructure trouble does not consume the
// retry budget.
func (r *TaskRunner) redeliver(logger *slog.Logger, delivery Delivery) {
	if err := r.writer.Requeue(delivery.Item, delivery.Attempt, r.cfg.RetryDelay); err != nil {
		logger.Error("failed to redeliver task", "error", err)
	}
}

// invalidateOutput drops any cached view of this task so readers never see
// stale pre-terminal state.
func (r *TaskRunner) invalidateOutput(ctx context.Context, logger *slog.Logger, item WorkItem) {
	if err := r.cache.Delete(ctx, cache.OutputKey(item.TaskID.String())); err != nil {
		logger.Warn("failed to invalidate cached task output", "error", err)
	}
}

// stuckTaskMonitor periodically re-enqueues tasks that have sat in "running"
// longer than the configured age. Abandoned attempts (crash, hard-limit
// abandonment with a lost redelivery) land here.
func (r *TaskRunner) stuckTaskMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.StuckTaskCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return

		case <-ticker.C:
			ctx := context.Background()

			stuck, err := r.taskStore.ListByStatus(ctx, domain.TaskStatusRunning, r.cfg.StuckTaskAge)
			if err != nil {
				r.logger.Error("failed to check for stuck tasks", "error", err)
				continue
			}

			if len(stuck) == 0 {
				continue
			}

			r.logger.Info("found stuck tasks", "count", len(stuck))

			for _, t := range stuck {
				item := WorkItem{TaskID: t.ID, Kind: t.Kind, Parameters: t.Parameters}
				if err := r.writer.Enqueue(item); err != nil {
					r.logger.Error("failed to requeue stuck task",
						"task_id", t.ID,
						"task_kind", t.Kind,
						"error", err)
					continue
				}
				r.logger.Info("requeued stuck task", "task_id", t.ID, "task_kind", t.Kind)
			}
		}
	}
}
