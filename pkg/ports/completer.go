package ports

import "context"

// CompletionRequest is one "send prompt, get completion" call. Variable
// substitution is the caller's job; the transport sends the text as given.
type CompletionRequest struct {
	Prompt      string
	System      string
	Temperature float64

	// MaxTokens caps the response length. Zero means the transport default.
	MaxTokens int
}

// Completion is a successful model response.
type Completion struct {
	Text       string
	Model      string
	TokensUsed int
}

// Completer is the raw remote completion call. Implementations classify
// failures as *domain.APIError so the budgeted client can decide whether to
// retry.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
