package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStateConflict marks scoring against a terminal round or a
	// reward that already exists for the round.
	ErrStateConflict = errors.New("state conflict")
)

// UnsafeContentError is a forced-loss signal, not a failure: the gate flagged
// the message and the caller must end the round.
type UnsafeContentError struct {
	Reason string
	Detail string
}

func (e *UnsafeContentError) Error() string {
	return fmt.Sprintf("unsafe content: %s", e.Reason)
}

// TransientError wraps provider failures worth retrying (timeouts, 5xx, 429).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps provider failures that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
