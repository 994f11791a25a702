package domain

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a session. Transitions are monotonic
// except for the Running/Paused pair.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// transition.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusRunning:
		return s == StatusPaused || s == StatusRunning
	case StatusPaused:
		return s == StatusRunning
	case StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Session is one run of a step sequence or convergence loop. Created at
// session start, mutated only through the recorder, never deleted by the
// engine itself.
type Session struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	ConfigPath string    `json:"config_path,omitempty"`
	StartedAt  time.Time `json:"started_at"`

	PausedAt    *time.Time `json:"paused_at,omitempty"`
	ResumedAt   *time.Time `json:"resumed_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ApplyStatus transitions the session to status and stamps the matching
// lifecycle timestamp. Illegal transitions return ErrInvalidTransition.
// Recorders route every status update through here.
func (s *Session) ApplyStatus(status Status, at time.Time) error {
	if !s.Status.CanTransition(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, status)
	}
	switch status {
	case StatusPaused:
		s.PausedAt = &at
	case StatusRunning:
		if s.Status == StatusPaused {
			s.ResumedAt = &at
		}
	case StatusCompleted, StatusFailed:
		s.CompletedAt = &at
	}
	s.Status = status
	return nil
}
