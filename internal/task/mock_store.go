package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/tasker-api/internal/domain"
	"github.com/phrazzld/tasker-api/internal/store"
)

// MockTaskStore is an in-memory store.TaskStore for tests. It applies the
// same guarded-update rules as the real store so lifecycle tests exercise
// identical semantics without a database.
type MockTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	// Optional error injection, checked before the operation runs.
	CreateErr       error
	GetErr          error
	MarkRunningErr  error
	MarkTerminalErr error
}

// NewMockTaskStore creates an empty in-memory task store.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *MockTaskStore) MarkRunning(ctx context.Context, id uuid.UUID) (domain.TaskStatus, error) {
	if m.MarkRunningErr != nil {
		return "", m.MarkRunningErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return "", store.ErrTaskNotFound
	}
	if t.Status.IsTerminal() {
		return "", store.ErrUpdateFailed
	}
	prior := t.Status
	t.Status = domain.TaskStatusRunning
	t.UpdatedAt = time.Now().UTC()
	return prior, nil
}

func (m *MockTaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, result map[string]any) error {
	if m.MarkTerminalErr != nil {
		return m.MarkTerminalErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if t.Status.IsTerminal() {
		return store.ErrUpdateFailed
	}
	now := time.Now().UTC()
	t.Status = domain.TaskStatusCompleted
	t.Result = result
	t.Error = ""
	t.UpdatedAt = now
	t.CompletedAt = &now
	return nil
}

func (m *MockTaskStore) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	if m.MarkTerminalErr != nil {
		return m.MarkTerminalErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if t.Status.IsTerminal() {
		return store.ErrUpdateFailed
	}
	now := time.Now().UTC()
	t.Status = domain.TaskStatusFailed
	t.Error = message
	t.Result = nil
	t.UpdatedAt = now
	t.CompletedAt = &now
	return nil
}

func (m *MockTaskStore) ListByStatus(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var out []*domain.Task
	for _, t := range m.tasks {
		if t.Status != status {
			continue
		}
		if olderThan > 0 && t.UpdatedAt.After(cutoff) {
			continue
		}
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}

// Snapshot returns a copy of the stored task, or nil if absent.
func (m *MockTaskStore) Snapshot(id uuid.UUID) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil
	}
	copied := *t
	return &copied
}

var _ store.TaskStore = (*MockTaskStore)(nil)
