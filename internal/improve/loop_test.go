package improve

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopwise/loopwise/internal/adapters/memory"
	"github.com/loopwise/loopwise/internal/llm"
	"github.com/loopwise/loopwise/pkg/ports"
)

// routedTransport answers by prompt shape: assessments pop from a score
// queue, everything else gets a fixed text.
type routedTransport struct {
	scores    []float64
	applyText string
	tokens    int
	assessed  int
}

func (t *routedTransport) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.Completion, error) {
	tokens := t.tokens
	if tokens == 0 {
		tokens = 10
	}
	text := "General advice."
	switch {
	case strings.HasPrefix(req.Prompt, "Analyze the quality"):
		score := t.scores[len(t.scores)-1]
		if t.assessed < len(t.scores) {
			score = t.scores[t.assessed]
		}
		t.assessed++
		text = fmt.Sprintf(`{"scores": {"style": %g}, "overall_score": %g}`, score, score)
	case strings.HasPrefix(req.Prompt, "Based on this improvement suggestion"):
		text = t.applyText
		if text == "" {
			text = "No changes needed."
		}
	}
	return &ports.Completion{Text: text, Model: "routed", TokensUsed: tokens}, nil
}

type fakeScanner struct{}

func (fakeScanner) Context(ctx context.Context) (*ports.ProjectContext, error) {
	return &ports.ProjectContext{
		Path:  "/project",
		Type:  "website",
		Files: []ports.FileInfo{{Path: "index.html", Size: 10, Content: "<html>"}},
	}, nil
}

type fakeWorkspace struct {
	files map[string]string
}

func newFakeWorkspace() *fakeWorkspace {
	return &fakeWorkspace{files: make(map[string]string)}
}

func (w *fakeWorkspace) Root() string { return "/project" }

func (w *fakeWorkspace) ReadFile(path string) (string, error) {
	return w.files[path], nil
}

func (w *fakeWorkspace) WriteFile(path, content string) error {
	w.files[path] = content
	return nil
}

func newLoop(transport ports.Completer, store *memory.Store, ws *fakeWorkspace, opts ...llm.Option) *Loop {
	return New(llm.New(transport, opts...), store, fakeScanner{}, ws)
}

func TestRunThresholdMet(t *testing.T) {
	transport := &routedTransport{scores: []float64{90}}
	store := memory.NewStore()

	result, err := newLoop(transport, store, newFakeWorkspace()).
		Run(context.Background(), "s1", Config{Criteria: []string{"style"}})
	require.NoError(t, err)

	assert.True(t, result.ThresholdMet)
	assert.False(t, result.Converged)
	assert.InDelta(t, 90, result.FinalScore, 1e-9)
	assert.Empty(t, result.Iterations)
	assert.Len(t, store.Scores("s1"), 1)
}

func TestRunConvergence(t *testing.T) {
	transport := &routedTransport{scores: []float64{50, 70, 71, 72}}
	store := memory.NewStore()

	result, err := newLoop(transport, store, newFakeWorkspace()).
		Run(context.Background(), "s1", Config{Criteria: []string{"style"}, MaxIterations: 10})
	require.NoError(t, err)

	assert.True(t, result.Converged)
	assert.False(t, result.ThresholdMet)
	assert.InDelta(t, 72, result.FinalScore, 1e-9)
	// Iterations 1-3 completed fully; the fourth stopped at the
	// convergence check.
	assert.Len(t, result.Iterations, 3)
	assert.Len(t, store.Scores("s1"), 4)
}

func TestRunIterationCap(t *testing.T) {
	transport := &routedTransport{scores: []float64{10, 20, 30, 40, 50}}
	store := memory.NewStore()

	result, err := newLoop(transport, store, newFakeWorkspace()).
		Run(context.Background(), "s1", Config{Criteria: []string{"style"}, MaxIterations: 3})
	require.NoError(t, err)

	assert.False(t, result.ThresholdMet)
	assert.False(t, result.Converged)
	assert.InDelta(t, 30, result.FinalScore, 1e-9)
	assert.Len(t, result.Iterations, 3)
}

func TestRunNoSuggestionsStops(t *testing.T) {
	// 92 is under the 95 threshold but over the per-criterion skip score,
	// so no suggestions come back and the loop stops early.
	transport := &routedTransport{scores: []float64{92, 93, 94}}
	store := memory.NewStore()

	result, err := newLoop(transport, store, newFakeWorkspace()).
		Run(context.Background(), "s1", Config{Criteria: []string{"style"}, Threshold: 95})
	require.NoError(t, err)

	assert.False(t, result.ThresholdMet)
	assert.False(t, result.BudgetExceeded)
	assert.InDelta(t, 92, result.FinalScore, 1e-9)
	assert.Empty(t, result.Iterations)
}

func TestRunBudgetExceededIsPartialResult(t *testing.T) {
	transport := &routedTransport{scores: []float64{50, 60, 70}, tokens: 100}
	store := memory.NewStore()
	ws := newFakeWorkspace()

	// Enough budget for the first iteration's calls, not the second
	// assessment.
	budget := llm.NewBudget(400, 0.8, false)
	result, err := newLoop(transport, store, ws, llm.WithBudget(budget)).
		Run(context.Background(), "s1", Config{Criteria: []string{"style"}, MaxIterations: 5})
	require.NoError(t, err)

	assert.True(t, result.BudgetExceeded)
	assert.False(t, result.ThresholdMet)
	assert.InDelta(t, 50, result.FinalScore, 1e-9)
}

func TestRunAppliesFileBlocks(t *testing.T) {
	transport := &routedTransport{
		scores:    []float64{50, 90},
		applyText: "FILE: index.html\n```html\n<html lang=\"en\"></html>\n```\n",
	}
	store := memory.NewStore()
	ws := newFakeWorkspace()

	result, err := newLoop(transport, store, ws).
		Run(context.Background(), "s1", Config{Criteria: []string{"style"}})
	require.NoError(t, err)

	assert.True(t, result.ThresholdMet)
	require.Len(t, result.Iterations, 1)
	assert.Equal(t, []string{"index.html"}, result.Iterations[0].FilesModified)
	// Exactly the trimmed block content, no trailing newline added.
	assert.Equal(t, "<html lang=\"en\"></html>", ws.files["index.html"])

	records := store.Iterations("s1")
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Suggestions)
}
