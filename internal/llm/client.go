// Package llm wraps the raw completion transport with the session's retry
// policy and token budget. The Client is the only component that mutates the
// budget counter; one Client serves one session and is never called
// concurrently.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loopwise/loopwise/internal/logging"
	"github.com/loopwise/loopwise/internal/metrics"
	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/ports"
)

const (
	defaultMaxAttempts  = 5
	defaultBaseBackoff  = time.Second
	defaultWarnFraction = 0.80

	// metaTemperature is used for analysis prompts, which want determinism
	// over creativity.
	metaTemperature = 0.3
)

// Client sends prompts through a Completer with exponential backoff on
// retryable failures and budget checks before every network attempt.
type Client struct {
	transport ports.Completer
	budget    *Budget

	maxAttempts int
	baseBackoff time.Duration

	sleep  func(time.Duration)
	onWarn func(consumed, max int)
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBudget attaches a token budget. Without one the client is unlimited.
func WithBudget(b *Budget) Option {
	return func(c *Client) { c.budget = b }
}

// WithMaxAttempts bounds the retry loop.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBaseBackoff sets the first retry wait; attempt n waits base * 2^n.
func WithBaseBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.baseBackoff = d
		}
	}
}

// WithSleeper replaces the backoff sleep, for tests.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithWarnFunc replaces the one-time budget warning callback.
func WithWarnFunc(fn func(consumed, max int)) Option {
	return func(c *Client) { c.onWarn = fn }
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client over the given transport.
func New(transport ports.Completer, opts ...Option) *Client {
	c := &Client{
		transport:   transport,
		budget:      NewBudget(0, defaultWarnFraction, false),
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
		sleep:       time.Sleep,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.onWarn == nil {
		c.onWarn = func(consumed, max int) {
			c.logger.Warn("token budget warning threshold crossed",
				"consumed", consumed, "max", max)
		}
	}
	return c
}

// Budget returns the client's budget for inspection by callers.
func (c *Client) Budget() *Budget { return c.budget }

// Send sends a plain user prompt with the default temperature.
func (c *Client) Send(ctx context.Context, prompt string) (*ports.Completion, error) {
	return c.Complete(ctx, ports.CompletionRequest{Prompt: prompt, Temperature: 0.7})
}

// SendMeta sends an analysis prompt plus its context at low temperature.
func (c *Client) SendMeta(ctx context.Context, analysisPrompt, contextData string) (*ports.Completion, error) {
	return c.Complete(ctx, ports.CompletionRequest{
		Prompt:      fmt.Sprintf("%s\n\nContext:\n%s", analysisPrompt, contextData),
		Temperature: metaTemperature,
	})
}

// Complete runs the budget check, then the retry loop. Tokens are charged
// only after a confirmed success. Budget exhaustion surfaces as an error
// wrapping domain.ErrBudgetExceeded without any network attempt; callers
// decide whether that is fatal (see Budget.HardStop).
func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.Completion, error) {
	if c.budget.Exhausted() {
		metrics.APICalls.WithLabelValues("budget").Inc()
		return nil, fmt.Errorf("%w: %d/%d tokens used",
			domain.ErrBudgetExceeded, c.budget.Consumed(), c.budget.Max())
	}
	if c.budget.shouldWarn() {
		c.onWarn(c.budget.Consumed(), c.budget.Max())
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		resp, err := c.transport.Complete(ctx, req)
		if err == nil {
			c.budget.add(resp.TokensUsed)
			metrics.APICalls.WithLabelValues("success").Inc()
			metrics.TokensConsumed.Add(float64(resp.TokensUsed))
			return resp, nil
		}

		var apiErr *domain.APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() {
			metrics.APICalls.WithLabelValues("error").Inc()
			return nil, err
		}

		lastErr = err
		if attempt < c.maxAttempts-1 {
			wait := c.baseBackoff * (1 << attempt)
			c.logger.Warn("retryable api error, backing off",
				"kind", apiErr.Kind, "attempt", attempt+1,
				"max_attempts", c.maxAttempts, "wait", wait)
			metrics.APIRetries.Inc()
			c.sleep(wait)
		}
	}

	metrics.APICalls.WithLabelValues("error").Inc()
	return nil, fmt.Errorf("giving up after %d attempts: %w", c.maxAttempts, lastErr)
}
