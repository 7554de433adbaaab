//go:build integration
// +build integration

package store

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasknest/tasknest/internal/testutil"
)

// setupStore provisions a database, a Store, and one registered user.
func setupStore(t *testing.T) (*Store, uuid.UUID, func()) {
	t.Helper()

	dbContainer, cleanup := testutil.SetupTestDB(t)
	store := New(dbContainer.Pool, slog.Default())

	user, err := store.CreateUser(context.Background(), "owner@example.com", "not-a-real-hash")
	require.NoError(t, err, "CreateUser should not return error")

	return store, user.ID, cleanup
}

func TestStore_CreateAndGet_Integration(t *testing.T) {
	store, owner, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	task, err := store.Create(ctx, owner, "  Buy groceries  ", "milk, eggs")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, owner, task.OwnerID)
	assert.Equal(t, "Buy groceries", task.Title, "title should be stored trimmed")
	assert.Equal(t, "milk, eggs", task.Description)
	assert.Equal(t, StatusPending, task.Status)
	assert.NotZero(t, task.CreatedAt)
	assert.NotZero(t, task.UpdatedAt)

	got, ok, err := store.Get(ctx, owner, task.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.Title, got.Title)
	assert.Equal(t, task.Description, got.Description)
	assert.Equal(t, task.Status, got.Status)
}

func TestStore_CreateValidation_Integration(t *testing.T) {
	store, owner, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Create(ctx, owner, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = store.Create(ctx, owner, "ok", string(make([]byte, 1001)))
	assert.ErrorIs(t, err, ErrDescriptionTooLong)
}

func TestStore_OwnerIsolation_Integration(t *testing.T) {
	store, owner, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	other, err := store.CreateUser(ctx, "other@example.com", "not-a-real-hash")
	require.NoError(t, err)

	task, err := store.Create(ctx, owner, "private task", "")
	require.NoError(t, err)

	// Another user's task is indistinguishable from an absent one.
	_, ok, err := store.Get(ctx, other.ID, task.ID)
	require.NoError(t, err)
	assert.False(t, ok, "Get should not see another user's task")

	_, ok, err = store.Update(ctx, other.ID, task.ID, UpdateParams{})
	require.NoError(t, err)
	assert.False(t, ok, "Update should not touch another user's task")

	ok, err = store.Delete(ctx, other.ID, task.ID)
	require.NoError(t, err)
	assert.False(t, ok, "Delete should not remove another user's task")

	_, ok, err = store.Complete(ctx, other.ID, task.ID)
	require.NoError(t, err)
	assert.False(t, ok, "Complete should not touch another user's task")

	tasks, err := store.List(ctx, other.ID, FilterAll)
	require.NoError(t, err)
	assert.Empty(t, tasks, "List should not include another user's tasks")

	found, err := store.Search(ctx, other.ID, "private")
	require.NoError(t, err)
	assert.Empty(t, found, "Search should not include another user's tasks")

	// The real owner still sees it untouched.
	got, ok, err := store.Get(ctx, owner, task.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusPending, got.Status)
}

func TestStore_ListFilter_Integration(t *testing.T) {
	store, owner, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	first, err := store.Create(ctx, owner, "first", "")
	require.NoError(t, err)
	second, err := store.Create(ctx, owner, "second", "")
	require.NoError(t, err)

	_, ok, err := store.Complete(ctx, owner, first.ID)
	require.NoError(t, err)
	require.True(t, ok)

	all, err := store.List(ctx, owner, FilterAll)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID, "tasks should come back in creation order")
	assert.Equal(t, second.ID, all[1].ID)

	pending, err := store.List(ctx, owner, FilterPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	completed, err := store.List(ctx, owner, FilterCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, first.ID, completed[0].ID)
}

func TestStore_Update_Integration(t *testing.T) {
	store, owner, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	task, err := store.Create(ctx, owner, "original", "desc")
	require.NoError(t, err)

	newTitle := "renamed"
	updated, ok, err := store.Update(ctx, owner, task.ID, UpdateParams{Title: &newTitle})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, "desc", updated.Description, "unset fields should be preserved")
	assert.Equal(t, StatusPending, updated.Status)

	status := StatusCompleted
	empty := ""
	updated, ok, err = store.Update(ctx, owner, task.ID, UpdateParams{Description: &empty, Status: &status})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, "", updated.Description, "description should be clearable")
	assert.Equal(t, StatusCompleted, updated.Status)

	bad := Status("archived")
	_, _, err = store.Update(ctx, owner, task.ID, UpdateParams{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, ok, err = store.Update(ctx, owner, uuid.New(), UpdateParams{Title: &newTitle})
	require.NoError(t, err)
	assert.False(t, ok, "updating a missing task should report not found")
}

func TestStore_UpdateNoFieldsRefreshesTimestamp_Integration(t *testing.T) {
	store, owner, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	task, err := store.Create(ctx, owner, "untouched", "")
	require.NoError(t, err)

	updated, ok, err := store.Update(ctx, owner, task.ID, UpdateParams{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, task.Title, updated.Title)
	assert.Equal(t, task.Status, updated.Status)
	assert.True(t, updated.UpdatedAt.After(task.UpdatedAt) || updated.UpdatedAt.Equal(task.UpdatedAt),
		"updated_at should never move backwards")
	assert.False(t, updated.UpdatedAt.Before(task.UpdatedAt))
}

func TestStore_CompleteIdempotent_Integration(t *testing.T) {
	store, owner, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	task, err := store.Create(ctx, owner, "finish report", "")
	require.NoError(t, err)

	done, ok, err := store.Complete(ctx, owner, task.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, done.Status)

	again, ok, err := store.Complete(ctx, owner, task.ID)
	require.NoError(t, err)
	require.True(t, ok, "completing twice should still succeed")
	assert.Equal(t, StatusCompleted, again.Status)

	_, ok, err = store.Complete(ctx, owner, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Delete_Integration(t *testing.T) {
	store, owner, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	task, err := store.Create(ctx, owner, "temporary", "")
	require.NoError(t, err)

	ok, err := store.Delete(ctx, owner, task.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = store.Get(ctx, owner, task.ID)
	require.NoError(t, err)
	assert.False(t, ok, "deleted task should be gone")

	ok, err = store.Delete(ctx, owner, task.ID)
	require.NoError(t, err)
	assert.False(t, ok, "second delete should report not found")
}

func TestStore_Search_Integration(t *testing.T) {
	store, owner, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	groceries, err := store.Create(ctx, owner, "Buy GROCERIES", "")
	require.NoError(t, err)
	report, err := store.Create(ctx, owner, "Write report", "include grocery budget")
	require.NoError(t, err)
	_, err = store.Create(ctx, owner, "Unrelated", "nothing here")
	require.NoError(t, err)
	percent, err := store.Create(ctx, owner, "Donate 10% of income", "")
	require.NoError(t, err)

	// Case-insensitive, matches title or description, creation order.
	found, err := store.Search(ctx, owner, "grocer")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, groceries.ID, found[0].ID)
	assert.Equal(t, report.ID, found[1].ID)

	// LIKE metacharacters match literally.
	found, err = store.Search(ctx, owner, "10%")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, percent.ID, found[0].ID)

	found, err = store.Search(ctx, owner, "no such thing")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestStore_CreateUserDuplicateEmail_Integration(t *testing.T) {
	store, _, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.CreateUser(ctx, "Owner@Example.com", "another-hash")
	assert.ErrorIs(t, err, ErrEmailTaken, "emails should be unique case-insensitively")

	user, ok, err := store.UserByEmail(ctx, "OWNER@example.COM")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "owner@example.com", user.Email, "emails should be stored lowercased")

	_, ok, err = store.UserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}
