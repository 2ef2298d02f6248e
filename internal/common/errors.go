package common

import (
	"fmt"
)

// ClientInputError is returned for malformed or incomplete caller input.
// Status overrides the default 400 when set.
type ClientInputError struct {
	Message string
	Field   string
	Status  int
}

func (e *ClientInputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
	}
	return "invalid input: " + e.Message
}

func NewClientInputError(message string) *ClientInputError {
	return &ClientInputError{Message: message}
}

// ConflictError means the request collides with current state, typically an
// already active subscription.
type ConflictError struct {
	Message string
	Details map[string]any
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Message
}

type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Resource + " not found"
}

// PersistenceError wraps a failed database operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}
