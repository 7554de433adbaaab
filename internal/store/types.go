package store

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// StatusFilter narrows List results. The zero value (FilterAll) lists
// everything.
type StatusFilter string

const (
	FilterAll       StatusFilter = "all"
	FilterPending   StatusFilter = "pending"
	FilterCompleted StatusFilter = "completed"
)

// ParseStatusFilter maps a raw filter string to a StatusFilter.
// Empty input means no filtering; unknown values are rejected by the caller
// via the ok result.
func ParseStatusFilter(s string) (StatusFilter, bool) {
	switch StatusFilter(s) {
	case "", FilterAll:
		return FilterAll, true
	case FilterPending:
		return FilterPending, true
	case FilterCompleted:
		return FilterCompleted, true
	default:
		return "", false
	}
}

// Task is a single todo item. Every task belongs to exactly one owner; all
// store operations are scoped by that owner.
type Task struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpdateParams carries the optional fields of a task update. Nil fields are
// left unchanged; the update timestamp refreshes regardless.
type UpdateParams struct {
	Title       *string
	Description *string
	Status      *Status
}

// User is an account that owns tasks.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
