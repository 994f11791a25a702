package ports

import (
	"context"
	"time"

	"github.com/loopwise/loopwise/pkg/domain"
)

// PromptRef identifies a logged prompt so its response can be linked to it.
type PromptRef int64

// LogEntry is one prompt/response pair from a session journal. Response
// fields are zero-valued when the call failed before a response was logged.
type LogEntry struct {
	Ref        PromptRef `json:"ref"`
	SessionID  string    `json:"session_id"`
	StepID     string    `json:"step_id,omitempty"`
	StepNumber int       `json:"step_number,omitempty"`
	Prompt     string    `json:"prompt"`
	PromptAt   time.Time `json:"prompt_at"`

	Response   string    `json:"response,omitempty"`
	Model      string    `json:"model,omitempty"`
	Tokens     int       `json:"tokens,omitempty"`
	ResponseAt time.Time `json:"response_at,omitzero"`
}

// Recorder is the persistence sink consumed by the executor and the
// convergence loop. Implementations must return domain.ErrSessionNotFound
// for lookups of unknown sessions.
type Recorder interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	UpdateSessionStatus(ctx context.Context, sessionID string, status domain.Status) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// ActiveSession returns the most recently started session that is
	// running or paused, or ErrSessionNotFound when there is none.
	ActiveSession(ctx context.Context) (*domain.Session, error)
	ListSessions(ctx context.Context) ([]string, error)
	DeleteSession(ctx context.Context, sessionID string) error

	LogPrompt(ctx context.Context, sessionID, text, stepID string, stepNumber int) (PromptRef, error)
	LogResponse(ctx context.Context, sessionID string, ref PromptRef, text, model string, tokens int) error
	LogError(ctx context.Context, sessionID, kind, message string) error
	LogAction(ctx context.Context, sessionID, actionType string, details map[string]any, success bool) error

	SessionLogs(ctx context.Context, sessionID string) ([]LogEntry, error)
	RecentLogs(ctx context.Context, limit int) ([]LogEntry, error)

	SaveQualityScore(ctx context.Context, sessionID string, score domain.QualityScore) error
	SaveIteration(ctx context.Context, sessionID string, record domain.IterationRecord) error

	CreateImprovement(ctx context.Context, improvement *domain.Improvement) (int64, error)
	PendingImprovements(ctx context.Context) ([]domain.Improvement, error)
	GetImprovement(ctx context.Context, id int64) (*domain.Improvement, error)
	SetImprovementStatus(ctx context.Context, id int64, status string) error
}
