// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Ownership errors.
	ErrNotOwned = errors.New("resource not owned by user")

	// Categorization errors.
	ErrNoCandidates = errors.New("no candidates to process")

	// Validation errors.
	ErrDuplicateRule  = errors.New("a rule with the same keyword set already exists")
	ErrSplitMismatch  = errors.New("split amounts do not sum to the original amount")
	ErrInvalidRule    = errors.New("invalid rule")
	ErrMissingConfig  = errors.New("missing configuration")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable reports whether an error should trigger another attempt.
// Explicitly classified errors carry their own verdict and cancellation
// stops immediately; anything else is treated as transient.
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
