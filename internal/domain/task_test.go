package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	t.Run("creates pending task with generated ID", func(t *testing.T) {
		task, err := NewTask(TaskKindSum, map[string]any{"a": 5.0, "b": 3.0})
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, task.ID)
		assert.Equal(t, TaskKindSum, task.Kind)
		assert.Equal(t, TaskStatusPending, task.Status)
		assert.Nil(t, task.Result)
		assert.Empty(t, task.Error)
		assert.False(t, task.CreatedAt.IsZero())
		assert.Nil(t, task.CompletedAt)
	})

	t.Run("rejects empty kind", func(t *testing.T) {
		_, err := NewTask("", map[string]any{})
		assert.ErrorIs(t, err, ErrEmptyTaskKind)
	})

	t.Run("rejects nil parameters", func(t *testing.T) {
		_, err := NewTask(TaskKindSum, nil)
		assert.ErrorIs(t, err, ErrNilTaskParameters)
	})
}

func TestTaskTransitions(t *testing.T) {
	newTask := func(t *testing.T) *Task {
		task, err := NewTask(TaskKindSum, map[string]any{"a": 1.0, "b": 2.0})
		require.NoError(t, err)
		return task
	}

	t.Run("pending to running", func(t *testing.T) {
		task := newTask(t)
		require.NoError(t, task.MarkRunning())
		assert.Equal(t, TaskStatusRunning, task.Status)
		assert.Nil(t, task.CompletedAt)
	})

	t.Run("running to running is allowed for redelivery", func(t *testing.T) {
		task := newTask(t)
		require.NoError(t, task.MarkRunning())
		assert.NoError(t, task.MarkRunning())
		assert.Equal(t, TaskStatusRunning, task.Status)
	})

	t.Run("running to completed records result and timestamp", func(t *testing.T) {
		task := newTask(t)
		require.NoError(t, task.MarkRunning())

		result := map[string]any{"result": 3.0}
		require.NoError(t, task.MarkCompleted(result))

		assert.Equal(t, TaskStatusCompleted, task.Status)
		assert.Equal(t, result, task.Result)
		assert.Empty(t, task.Error)
		require.NotNil(t, task.CompletedAt)
	})

	t.Run("running to failed records error and timestamp", func(t *testing.T) {
		task := newTask(t)
		require.NoError(t, task.MarkRunning())
		require.NoError(t, task.MarkFailed("downstream exploded"))

		assert.Equal(t, TaskStatusFailed, task.Status)
		assert.Equal(t, "downstream exploded", task.Error)
		assert.Nil(t, task.Result)
		require.NotNil(t, task.CompletedAt)
	})

	t.Run("cannot complete or fail from pending", func(t *testing.T) {
		task := newTask(t)
		assert.ErrorIs(t, task.MarkCompleted(nil), ErrInvalidTransition)
		assert.ErrorIs(t, task.MarkFailed("nope"), ErrInvalidTransition)
	})

	t.Run("terminal states are never left", func(t *testing.T) {
		task := newTask(t)
		require.NoError(t, task.MarkRunning())
		require.NoError(t, task.MarkCompleted(map[string]any{"result": 8.0}))

		completedAt := *task.CompletedAt
		assert.ErrorIs(t, task.MarkRunning(), ErrTerminalState)
		assert.ErrorIs(t, task.MarkFailed("too late"), ErrTerminalState)
		assert.ErrorIs(t, task.MarkCompleted(nil), ErrTerminalState)

		// Terminal fields are untouched by rejected transitions.
		assert.Equal(t, TaskStatusCompleted, task.Status)
		assert.Equal(t, completedAt, *task.CompletedAt)
		assert.Equal(t, map[string]any{"result": 8.0}, task.Result)
	})

	t.Run("exactly one of result and error is set at terminal", func(t *testing.T) {
		completed := newTask(t)
		require.NoError(t, completed.MarkRunning())
		require.NoError(t, completed.MarkCompleted(map[string]any{"ok": true}))
		assert.NotNil(t, completed.Result)
		assert.Empty(t, completed.Error)

		failed := newTask(t)
		require.NoError(t, failed.MarkRunning())
		require.NoError(t, failed.MarkFailed("boom"))
		assert.Nil(t, failed.Result)
		assert.NotEmpty(t, failed.Error)
	})
}

func TestTaskStatusIsTerminal(t *testing.T) {
	assert.False(t, TaskStatusPending.IsTerminal())
	assert.False(t, TaskStatusRunning.IsTerminal())
	assert.True(t, TaskStatusCompleted.IsTerminal())
	assert.True(t, TaskStatusFailed.IsTerminal())
}
