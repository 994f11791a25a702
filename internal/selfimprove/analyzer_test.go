package selfimprove

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopwise/loopwise/internal/adapters/memory"
	"github.com/loopwise/loopwise/internal/llm"
	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/graph"
	"github.com/loopwise/loopwise/pkg/ports"
)

type fixedTransport struct {
	text    string
	prompts []string
}

func (t *fixedTransport) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.Completion, error) {
	t.prompts = append(t.prompts, req.Prompt)
	return &ports.Completion{Text: t.text, Model: "fixed", TokensUsed: 5}, nil
}

func seedSession(t *testing.T, store *memory.Store, sessionID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, &domain.Session{ID: sessionID, Status: domain.StatusCompleted}))
	ref, err := store.LogPrompt(ctx, sessionID, "Write a plan.", "plan", 1)
	require.NoError(t, err)
	require.NoError(t, store.LogResponse(ctx, sessionID, ref, "The plan is done.", "m", 42))
}

func TestAnalyzeSessionStoresPendingImprovements(t *testing.T) {
	transport := &fixedTransport{text: "```json\n" + `{
  "improvements": [
    {
      "type": "config_update",
      "description": "Tighten the planning prompt",
      "target_file": "steps.yaml",
      "changes": {"prompt_id": "plan", "field": "prompt", "new_value": "Write a concise plan."}
    },
    {"type": "code_change", "description": "ignored"}
  ]
}` + "\n```"}

	store := memory.NewStore()
	seedSession(t, store, "s1")
	analyzer := New(llm.New(transport), store)

	ids, err := analyzer.AnalyzeSession(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, ids, 1)

	pending, err := store.PendingImprovements(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Tighten the planning prompt", pending[0].Description)
	assert.Equal(t, "s1", pending[0].SessionID)
	assert.Equal(t, "plan", pending[0].Changes["prompt_id"])
}

func TestAnalyzeSessionEmptyJournal(t *testing.T) {
	store := memory.NewStore()
	analyzer := New(llm.New(&fixedTransport{text: "irrelevant"}), store)

	ids, err := analyzer.AnalyzeSession(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAnalyzeSessionUnparseableFallsBackToGenericRecord(t *testing.T) {
	transport := &fixedTransport{text: "The prompts look fine to me, honestly."}
	store := memory.NewStore()
	seedSession(t, store, "s1")
	analyzer := New(llm.New(transport), store)

	ids, err := analyzer.AnalyzeSession(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, ids, 1)

	imp, err := store.GetImprovement(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Contains(t, imp.Changes["raw_analysis"], "look fine")
}

func TestParseSuggestionsBareJSON(t *testing.T) {
	suggestions := parseSuggestions(`Sure. {"improvements": [{"type": "config_update", "description": "d", "changes": {"prompt_id": "x", "field": "prompt", "new_value": "y"}}]}`)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "d", suggestions[0].Description)
}

const applyFixture = `steps:
  - id: plan
    prompt: Write a plan.
    conditions:
      - if: response contains 'done'
        then: ""
  - id: revise
    prompt: Revise it.
`

func TestApplyApprovedImprovement(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(applyFixture), 0644))

	store := memory.NewStore()
	id, err := store.CreateImprovement(context.Background(), &domain.Improvement{
		SessionID:   "s1",
		Type:        "config_update",
		Description: "better prompt",
		Changes: map[string]any{
			"prompt_id": "plan",
			"field":     "prompt",
			"new_value": "Write a concise plan.",
		},
	})
	require.NoError(t, err)
	require.NoError(t, store.SetImprovementStatus(context.Background(), id, domain.ImprovementApproved))

	analyzer := New(llm.New(&fixedTransport{}), store)
	require.NoError(t, analyzer.Apply(context.Background(), id, path))

	g, err := graph.Load(path)
	require.NoError(t, err)
	step, ok := g.ByID("plan")
	require.True(t, ok)
	assert.Equal(t, "Write a concise plan.", step.Prompt)

	// Untouched parts survive the round trip.
	step, ok = g.ByID("revise")
	require.True(t, ok)
	assert.Equal(t, "Revise it.", step.Prompt)
}

func TestApplyReplacesConditionList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(applyFixture), 0644))

	store := memory.NewStore()
	id, err := store.CreateImprovement(context.Background(), &domain.Improvement{
		Type: "config_update",
		Changes: map[string]any{
			"prompt_id": "plan",
			"field":     "conditions",
			"new_value": []any{
				map[string]any{"if": "response contains 'finished'", "then": "revise"},
			},
		},
	})
	require.NoError(t, err)
	require.NoError(t, store.SetImprovementStatus(context.Background(), id, domain.ImprovementApproved))

	analyzer := New(llm.New(&fixedTransport{}), store)
	require.NoError(t, analyzer.Apply(context.Background(), id, path))

	g, err := graph.Load(path)
	require.NoError(t, err)
	step, ok := g.ByID("plan")
	require.True(t, ok)
	require.Len(t, step.Conditions, 1)
	assert.Equal(t, "response contains 'finished'", step.Conditions[0].If)
	assert.Equal(t, "revise", step.Conditions[0].Then)
}

func TestApplyRefusesPending(t *testing.T) {
	store := memory.NewStore()
	id, err := store.CreateImprovement(context.Background(), &domain.Improvement{
		Type:    "config_update",
		Changes: map[string]any{"prompt_id": "plan", "field": "prompt", "new_value": "x"},
	})
	require.NoError(t, err)

	analyzer := New(llm.New(&fixedTransport{}), store)
	err = analyzer.Apply(context.Background(), id, "unused.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not approved")
}

func TestApplyUnknownStep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(applyFixture), 0644))

	store := memory.NewStore()
	id, err := store.CreateImprovement(context.Background(), &domain.Improvement{
		Type:    "config_update",
		Changes: map[string]any{"prompt_id": "ghost", "field": "prompt", "new_value": "x"},
	})
	require.NoError(t, err)
	require.NoError(t, store.SetImprovementStatus(context.Background(), id, domain.ImprovementApproved))

	analyzer := New(llm.New(&fixedTransport{}), store)
	assert.Error(t, analyzer.Apply(context.Background(), id, path))
}
