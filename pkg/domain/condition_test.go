package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConditionEval(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		response string
		vars     Bindings
		want     bool
	}{
		{
			name:     "contains match",
			raw:      "response contains 'done'",
			response: "The task is DONE now",
			want:     true,
		},
		{
			name:     "contains miss",
			raw:      "response contains 'done'",
			response: "still working",
			want:     false,
		},
		{
			name:     "contains double quotes",
			raw:      `response contains "ready"`,
			response: "ready to go",
			want:     true,
		},
		{
			name:     "not contains match",
			raw:      "response not contains 'error'",
			response: "all clear",
			want:     true,
		},
		{
			name:     "not contains miss",
			raw:      "response not contains 'error'",
			response: "an Error occurred",
			want:     false,
		},
		{
			name:     "length greater true",
			raw:      "response length > 5",
			response: "123456",
			want:     true,
		},
		{
			name:     "length greater boundary",
			raw:      "response length > 6",
			response: "123456",
			want:     false,
		},
		{
			name:     "length less true",
			raw:      "response length < 10",
			response: "short",
			want:     true,
		},
		{
			name:     "var equality match",
			raw:      "mode == fast",
			vars:     Bindings{"mode": "fast"},
			want:     true,
		},
		{
			name:     "var equality case sensitive",
			raw:      "mode == fast",
			vars:     Bindings{"mode": "Fast"},
			want:     false,
		},
		{
			name:     "var equality quoted value",
			raw:      "mode == 'fast'",
			vars:     Bindings{"mode": "fast"},
			want:     true,
		},
		{
			name: "var equality unbound",
			raw:  "mode == fast",
			want: false,
		},
		{
			name:     "var equality chained is never true",
			raw:      "mode == fast == slow",
			vars:     Bindings{"mode": "fast == slow"},
			response: "anything",
			want:     false,
		},
		{
			name:     "unrecognized is never true",
			raw:      "response sentiment is positive",
			response: "anything",
			want:     false,
		},
		{
			name:     "empty condition is never true",
			raw:      "",
			response: "anything",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := tt.vars
			if vars == nil {
				vars = Bindings{}
			}
			got := ParseCondition(tt.raw).Eval(tt.response, vars)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseConditionRaw(t *testing.T) {
	raw := "response contains 'ok'"
	assert.Equal(t, raw, ParseCondition(raw).Raw())
}
