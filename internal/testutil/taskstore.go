package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/store"
)

// FakeTaskStore is an in-memory task store with the same owner-scoping and
// validation behavior as the real one. Safe for concurrent use.
type FakeTaskStore struct {
	mu    sync.Mutex
	tasks []store.Task
	now   time.Time

	// Err, when set, is returned by every operation. Simulates storage
	// failures.
	Err error
}

// NewFakeTaskStore creates an empty store.
func NewFakeTaskStore() *FakeTaskStore {
	return &FakeTaskStore{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// tick returns a strictly increasing timestamp so updated_at comparisons
// are deterministic.
func (f *FakeTaskStore) tick() time.Time {
	f.now = f.now.Add(time.Millisecond)
	return f.now
}

func (f *FakeTaskStore) List(_ context.Context, ownerID uuid.UUID, filter store.StatusFilter) ([]store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	out := []store.Task{}
	for _, t := range f.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		if filter == store.FilterPending && t.Status != store.StatusPending {
			continue
		}
		if filter == store.FilterCompleted && t.Status != store.StatusCompleted {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *FakeTaskStore) Create(_ context.Context, ownerID uuid.UUID, title, description string) (store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return store.Task{}, f.Err
	}

	trimmed, err := store.ValidateTitle(title)
	if err != nil {
		return store.Task{}, err
	}
	if err := store.ValidateDescription(description); err != nil {
		return store.Task{}, err
	}

	now := f.tick()
	task := store.Task{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       trimmed,
		Description: description,
		Status:      store.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *FakeTaskStore) Get(_ context.Context, ownerID, taskID uuid.UUID) (store.Task, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return store.Task{}, false, f.Err
	}

	if i := f.index(ownerID, taskID); i >= 0 {
		return f.tasks[i], true, nil
	}
	return store.Task{}, false, nil
}

func (f *FakeTaskStore) Update(_ context.Context, ownerID, taskID uuid.UUID, params store.UpdateParams) (store.Task, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return store.Task{}, false, f.Err
	}

	if params.Title != nil {
		trimmed, err := store.ValidateTitle(*params.Title)
		if err != nil {
			return store.Task{}, false, err
		}
		params.Title = &trimmed
	}
	if params.Description != nil {
		if err := store.ValidateDescription(*params.Description); err != nil {
			return store.Task{}, false, err
		}
	}
	if params.Status != nil && !params.Status.Valid() {
		return store.Task{}, false, store.ErrInvalidStatus
	}

	i := f.index(ownerID, taskID)
	if i < 0 {
		return store.Task{}, false, nil
	}

	t := &f.tasks[i]
	if params.Title != nil {
		t.Title = *params.Title
	}
	if params.Description != nil {
		t.Description = *params.Description
	}
	if params.Status != nil {
		t.Status = *params.Status
	}
	t.UpdatedAt = f.tick()
	return *t, true, nil
}

func (f *FakeTaskStore) Delete(_ context.Context, ownerID, taskID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}

	i := f.index(ownerID, taskID)
	if i < 0 {
		return false, nil
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return true, nil
}

func (f *FakeTaskStore) Complete(_ context.Context, ownerID, taskID uuid.UUID) (store.Task, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return store.Task{}, false, f.Err
	}

	i := f.index(ownerID, taskID)
	if i < 0 {
		return store.Task{}, false, nil
	}

	t := &f.tasks[i]
	t.Status = store.StatusCompleted
	t.UpdatedAt = f.tick()
	return *t, true, nil
}

func (f *FakeTaskStore) Search(_ context.Context, ownerID uuid.UUID, query string) ([]store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}

	needle := strings.ToLower(query)
	out := []store.Task{}
	for _, t := range f.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		if strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *FakeTaskStore) index(ownerID, taskID uuid.UUID) int {
	for i, t := range f.tasks {
		if t.ID == taskID && t.OwnerID == ownerID {
			return i
		}
	}
	return -1
}
