package store

import "errors"

// Validation and conflict errors. Infrastructure failures (connection loss,
// query errors) are returned as-is and are never one of these.
var (
	ErrEmptyTitle         = errors.New("title must not be empty")
	ErrTitleTooLong       = errors.New("title must be at most 255 characters")
	ErrDescriptionTooLong = errors.New("description must be at most 1000 characters")
	ErrInvalidStatus      = errors.New("status must be pending or completed")
	ErrEmailTaken         = errors.New("email already registered")
)
