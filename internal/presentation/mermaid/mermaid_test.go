package mermaid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/loopwise/loopwise/pkg/domain"
)

func TestGenerateShapesAndEdges(t *testing.T) {
	steps := []domain.Step{
		{
			ID:     "draft",
			Prompt: "Write it.",
			Conditions: []domain.BranchRule{
				{If: `response contains "done"`, Then: "publish", Else: "revise"},
			},
		},
		{
			ID:             "revise",
			Prompt:         "Fix it.",
			Next:           "draft",
			FileOperations: []domain.FileOperation{{Type: "write", Target: "draft.md"}},
		},
		{ID: "publish", Prompt: "Ship it."},
	}

	out := Generate(steps)

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	// Entry step is a circle, side-effect step a subroutine.
	assert.Contains(t, out, `draft(("draft"))`)
	assert.Contains(t, out, `revise[["revise"]]`)
	assert.Contains(t, out, `publish["publish"]`)

	assert.Contains(t, out, `draft -- "response contains 'done'" --> publish`)
	assert.Contains(t, out, `draft -. "else" .-> revise`)
	assert.Contains(t, out, "revise --> draft")
}

func TestGenerateTerminatingRule(t *testing.T) {
	steps := []domain.Step{
		{
			ID:         "check",
			Prompt:     "Check it.",
			Conditions: []domain.BranchRule{{If: `response contains "stop"`}},
		},
	}

	out := Generate(steps)
	assert.Contains(t, out, "check -- \"response contains 'stop'\" --> __end__")
	assert.Contains(t, out, `__end__(("end"))`)
}

func TestGenerateSanitizesIDs(t *testing.T) {
	steps := []domain.Step{
		{ID: "step-one.a", Prompt: "x", Next: "step-two"},
		{ID: "step-two", Prompt: "y"},
	}

	out := Generate(steps)
	assert.Contains(t, out, `step_one_a(("step-one.a"))`)
	assert.Contains(t, out, "step_one_a --> step_two")
}
