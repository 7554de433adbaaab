package provider

import (
	"errors"
	"fmt"
)

// Kind classifies a provider failure so callers can pick a recovery
// strategy without matching on error strings.
type Kind string

const (
	// KindTransient covers failures worth retrying: network errors, 5xx
	// responses, and rate limiting.
	KindTransient Kind = "transient"
	// KindFatal covers failures that will not succeed on retry, such as
	// rejected credentials or an invalid request.
	KindFatal Kind = "fatal"
	// KindMalformed means the backend answered but the response could not
	// be parsed into text or well-formed tool calls.
	KindMalformed Kind = "malformed"
)

// Error is a classified provider failure.
type Error struct {
	Provider string
	Kind     Kind
	Status   int // HTTP status code, 0 when not applicable
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(provider string, kind Kind, status int, err error) *Error {
	return &Error{Provider: provider, Kind: kind, Status: status, Err: err}
}

// KindOf extracts the classification from err. It returns the empty Kind
// when err is not a provider Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
