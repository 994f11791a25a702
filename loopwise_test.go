package loopwise_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopwise/loopwise"
	"github.com/loopwise/loopwise/internal/improve"
	"github.com/loopwise/loopwise/internal/logging"
	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/ports"
)

type scriptedTransport struct {
	text  string
	calls int
}

func (s *scriptedTransport) Complete(_ context.Context, _ ports.CompletionRequest) (*ports.Completion, error) {
	s.calls++
	return &ports.Completion{Text: s.text, Model: "fake-model", TokensUsed: 10}, nil
}

func newAgent(t *testing.T, transport ports.Completer) *loopwise.Agent {
	t.Helper()
	agent, err := loopwise.New(
		&loopwise.Config{APIKey: "sk-test", Store: "memory"},
		loopwise.WithTransport(transport),
		loopwise.WithLogger(logging.NewNop()),
	)
	require.NoError(t, err)
	return agent
}

func TestNewRejectsMissingAPIKey(t *testing.T) {
	_, err := loopwise.New(&loopwise.Config{Store: "memory"})
	require.Error(t, err)
}

func TestRunSequenceCompletes(t *testing.T) {
	dir := t.TempDir()
	doc := `steps:
  - id: draft
    prompt: Write a haiku.
  - id: review
    prompt: Review the haiku.
`
	graphPath := filepath.Join(dir, "prompts.yaml")
	require.NoError(t, os.WriteFile(graphPath, []byte(doc), 0o644))

	transport := &scriptedTransport{text: "Looks good."}
	agent := newAgent(t, transport)

	session, err := agent.RunSequence(context.Background(), graphPath, dir)
	require.NoError(t, err)
	require.NotNil(t, session)

	// Two step sends plus one self-analysis call.
	assert.Equal(t, 3, transport.calls)

	stored, err := agent.Recorder().GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)

	logs, err := agent.Recorder().SessionLogs(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestImproveStopsAtThreshold(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644))

	transport := &scriptedTransport{text: `{"scores": {"style": 92}, "overall_score": 92}`}
	agent := newAgent(t, transport)

	result, err := agent.Improve(context.Background(), dir, improve.Config{})
	require.NoError(t, err)
	assert.True(t, result.ThresholdMet)
	assert.InDelta(t, 92.0, result.FinalScore, 0.01)

	stored, err := agent.Recorder().GetSession(context.Background(), result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
}
