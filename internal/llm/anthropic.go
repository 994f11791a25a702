package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/ports"
)

// DefaultModel is used when no model is configured.
const DefaultModel = string(anthropic.ModelClaude3_7SonnetLatest)

// defaultResponseTokens caps responses when the request does not set one;
// the Messages API requires an explicit max.
const defaultResponseTokens = 4096

// AnthropicTransport implements ports.Completer on the Anthropic Messages API.
type AnthropicTransport struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicTransport creates a transport for the given key and model.
// An empty model selects DefaultModel.
func NewAnthropicTransport(apiKey, model string) *AnthropicTransport {
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicTransport{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

// Complete sends one message and concatenates the text blocks of the reply.
func (t *AnthropicTransport) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.Completion, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultResponseTokens
	}

	params := anthropic.MessageNewParams{
		Model:     t.model,
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := t.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}

	return &ports.Completion{
		Text:       sb.String(),
		Model:      string(msg.Model),
		TokensUsed: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}

// classify maps SDK failures onto the retry taxonomy: 429 is rate limiting,
// server-side trouble is transient, everything else is fatal.
func classify(err error) *domain.APIError {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests:
			return &domain.APIError{Kind: domain.APIErrRateLimited, Err: err}
		case apierr.StatusCode >= 500,
			apierr.StatusCode == http.StatusRequestTimeout,
			apierr.StatusCode == http.StatusConflict:
			return &domain.APIError{Kind: domain.APIErrTransient, Err: err}
		default:
			return &domain.APIError{Kind: domain.APIErrFatal, Err: err}
		}
	}
	return &domain.APIError{Kind: domain.APIErrFatal, Err: err}
}
