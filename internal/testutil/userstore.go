package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/store"
)

// FakeUserStore is an in-memory user store with the same case-insensitive
// email uniqueness as the real one. Safe for concurrent use.
type FakeUserStore struct {
	mu    sync.Mutex
	users []store.User

	// Err, when set, is returned by every operation. Simulates storage
	// failures.
	Err error
}

// NewFakeUserStore creates an empty store.
func NewFakeUserStore() *FakeUserStore {
	return &FakeUserStore{}
}

func (f *FakeUserStore) CreateUser(_ context.Context, email, passwordHash string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return store.User{}, f.Err
	}

	normalized := strings.ToLower(email)
	for _, u := range f.users {
		if u.Email == normalized {
			return store.User{}, store.ErrEmailTaken
		}
	}

	user := store.User{
		ID:           uuid.New(),
		Email:        normalized,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	f.users = append(f.users, user)
	return user, nil
}

func (f *FakeUserStore) UserByEmail(_ context.Context, email string) (store.User, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return store.User{}, false, f.Err
	}

	normalized := strings.ToLower(email)
	for _, u := range f.users {
		if u.Email == normalized {
			return u, true, nil
		}
	}
	return store.User{}, false, nil
}
