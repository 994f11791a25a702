package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrBudgetExceeded signals that the session's token budget is exhausted.
// The budgeted client returns it before making any network attempt; hard-stop
// callers treat it as fatal, soft-stop callers may inspect and continue.
var ErrBudgetExceeded = errors.New("token budget exceeded")

// ErrImprovementNotFound is returned when an improvement ID cannot be found.
var ErrImprovementNotFound = errors.New("improvement not found")

// ErrNoSteps is returned when a step graph contains no steps.
var ErrNoSteps = errors.New("step graph has no steps")

// ErrInvalidTransition is returned by recorders when a status update would
// violate the session lifecycle, such as reviving a completed session.
var ErrInvalidTransition = errors.New("invalid status transition")

// APIErrorKind classifies a remote-call failure.
type APIErrorKind string

const (
	// APIErrRateLimited marks a rate-limit rejection; retryable with backoff.
	APIErrRateLimited APIErrorKind = "rate_limited"
	// APIErrTransient marks other remote-side failures; retryable with backoff.
	APIErrTransient APIErrorKind = "transient"
	// APIErrFatal marks unclassified failures; surfaced immediately.
	APIErrFatal APIErrorKind = "fatal"
)

// APIError wraps a failure from the completion call path with its retry class.
type APIError struct {
	Kind    APIErrorKind
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("api error (%s): %v", e.Kind, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether the error class permits another attempt.
func (e *APIError) Retryable() bool {
	return e.Kind == APIErrRateLimited || e.Kind == APIErrTransient
}
