package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/ports"
)

// fakeTransport fails a set number of times with the given error, then
// succeeds.
type fakeTransport struct {
	failures int
	err      error
	tokens   int
	calls    int
}

func (t *fakeTransport) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.Completion, error) {
	t.calls++
	if t.calls <= t.failures {
		return nil, t.err
	}
	tokens := t.tokens
	if tokens == 0 {
		tokens = 100
	}
	return &ports.Completion{Text: "ok", Model: "fake", TokensUsed: tokens}, nil
}

func rateLimited() error {
	return &domain.APIError{Kind: domain.APIErrRateLimited, Message: "rate limited"}
}

func TestCompleteRetriesWithExponentialBackoff(t *testing.T) {
	transport := &fakeTransport{failures: 2, err: rateLimited()}
	var waits []time.Duration
	client := New(transport,
		WithSleeper(func(d time.Duration) { waits = append(waits, d) }))

	resp, err := client.Complete(context.Background(), ports.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 3, transport.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
}

func TestCompleteGivesUpAfterMaxAttempts(t *testing.T) {
	transport := &fakeTransport{failures: 100, err: rateLimited()}
	client := New(transport,
		WithMaxAttempts(3),
		WithSleeper(func(time.Duration) {}))

	_, err := client.Complete(context.Background(), ports.CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, 3, transport.calls)

	var apiErr *domain.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestCompleteDoesNotRetryFatalErrors(t *testing.T) {
	transport := &fakeTransport{
		failures: 100,
		err:      &domain.APIError{Kind: domain.APIErrFatal, Message: "invalid key"},
	}
	client := New(transport, WithSleeper(func(time.Duration) {}))

	_, err := client.Complete(context.Background(), ports.CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, 1, transport.calls)
}

func TestCompleteChargesBudgetOnSuccess(t *testing.T) {
	transport := &fakeTransport{tokens: 250}
	budget := NewBudget(1000, 0.8, false)
	client := New(transport, WithBudget(budget))

	_, err := client.Complete(context.Background(), ports.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 250, budget.Consumed())

	remaining, limited := budget.Remaining()
	assert.True(t, limited)
	assert.Equal(t, 750, remaining)
}

func TestCompleteExhaustedBudgetSkipsNetwork(t *testing.T) {
	transport := &fakeTransport{tokens: 500}
	budget := NewBudget(500, 0.8, true)
	client := New(transport, WithBudget(budget))

	_, err := client.Complete(context.Background(), ports.CompletionRequest{Prompt: "first"})
	require.NoError(t, err)
	require.True(t, budget.Exhausted())

	_, err = client.Complete(context.Background(), ports.CompletionRequest{Prompt: "second"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBudgetExceeded)
	assert.Equal(t, 1, transport.calls)
}

func TestBudgetWarningFiresOnce(t *testing.T) {
	transport := &fakeTransport{tokens: 200}
	budget := NewBudget(1000, 0.5, false)

	var warnings int
	client := New(transport,
		WithBudget(budget),
		WithWarnFunc(func(consumed, max int) { warnings++ }))

	// Consumption crosses 50% during the third call; the fourth call warns
	// and the fifth, still over the threshold, stays silent.
	for range 5 {
		_, err := client.Complete(context.Background(), ports.CompletionRequest{Prompt: "hi"})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, warnings)
}

func TestSendMetaWrapsContext(t *testing.T) {
	var got ports.CompletionRequest
	transport := capturingTransport{req: &got}
	client := New(transport)

	_, err := client.SendMeta(context.Background(), "Assess quality.", "some logs")
	require.NoError(t, err)
	assert.Equal(t, "Assess quality.\n\nContext:\nsome logs", got.Prompt)
	assert.InDelta(t, 0.3, got.Temperature, 1e-9)
}

type capturingTransport struct {
	req *ports.CompletionRequest
}

func (t capturingTransport) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.Completion, error) {
	*t.req = req
	return &ports.Completion{Text: "ok", Model: "fake", TokensUsed: 1}, nil
}

func TestBudgetUnlimited(t *testing.T) {
	b := NewBudget(0, 0.8, false)
	assert.False(t, b.Limited())
	assert.False(t, b.Exhausted())
	_, limited := b.Remaining()
	assert.False(t, limited)
}
