// Package selfimprove is the meta-prompting layer: after a sequence
// completes it asks the model to critique the run's own step graph, stores
// the resulting config-update suggestions for operator review, and applies
// approved ones back to the YAML file.
package selfimprove

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/loopwise/loopwise/internal/llm"
	"github.com/loopwise/loopwise/internal/logging"
	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/ports"
)

const (
	maxPromptExcerpt   = 200
	maxResponseExcerpt = 300
	maxRawExcerpt      = 500
)

// analysisPrompt instructs the model to critique the step graph. Only YAML
// changes may be suggested; the engine itself is off limits.
const analysisPrompt = `You are analyzing logs from an agent that executes prompt sequences defined in YAML configuration files.

Your task is to:
1. Identify inefficiencies in the prompt sequence
2. Suggest improvements to prompt wording for better results
3. Recommend better conditional logic or branching
4. Suggest optimizations to reduce token usage
5. Identify patterns that could be improved

IMPORTANT: You can ONLY suggest changes to the YAML configuration. Do NOT suggest changes to the engine.

Provide your suggestions in the following JSON format:
{
  "improvements": [
    {
      "type": "config_update",
      "description": "Brief description of the improvement",
      "target_file": "config/steps.yaml",
      "changes": {
        "prompt_id": "step1",
        "field": "prompt",
        "new_value": "Improved prompt text here"
      }
    }
  ]
}

If suggesting changes to conditions, set "field" to "conditions" and "new_value" to the replacement rule list.

Be specific and actionable. Focus on improvements that will make the agent more effective.`

// Analyzer reviews completed sessions and manages the improvement records
// they produce.
type Analyzer struct {
	client   *llm.Client
	recorder ports.Recorder
	logger   *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Analyzer.
func New(client *llm.Client, recorder ports.Recorder, opts ...Option) *Analyzer {
	a := &Analyzer{client: client, recorder: recorder, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeSession critiques a finished session's journal and stores each
// resulting suggestion as a pending improvement. Returns the created record
// IDs; a session with no journal yields none.
func (a *Analyzer) AnalyzeSession(ctx context.Context, sessionID string) ([]int64, error) {
	logs, err := a.recorder.SessionLogs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session logs: %w", err)
	}
	if len(logs) == 0 {
		return nil, nil
	}

	resp, err := a.client.SendMeta(ctx, analysisPrompt, formatLogs(logs))
	if err != nil {
		return nil, fmt.Errorf("meta-analysis failed: %w", err)
	}

	suggestions := parseSuggestions(resp.Text)
	ids := make([]int64, 0, len(suggestions))
	for i := range suggestions {
		suggestions[i].SessionID = sessionID
		id, err := a.recorder.CreateImprovement(ctx, &suggestions[i])
		if err != nil {
			return ids, fmt.Errorf("failed to store improvement: %w", err)
		}
		ids = append(ids, id)
	}
	a.logger.Info("session analyzed", "session", sessionID, "suggestions", len(ids))
	return ids, nil
}

// Hook adapts AnalyzeSession to the executor's post-completion hook shape.
func (a *Analyzer) Hook() func(ctx context.Context, sessionID string) error {
	return func(ctx context.Context, sessionID string) error {
		_, err := a.AnalyzeSession(ctx, sessionID)
		return err
	}
}

func formatLogs(logs []ports.LogEntry) string {
	var b strings.Builder
	b.WriteString("=== Session Log Summary ===\n")
	for i, entry := range logs {
		fmt.Fprintf(&b, "\n--- Step %d ---\n", i+1)
		fmt.Fprintf(&b, "Step ID: %s\n", entry.StepID)
		fmt.Fprintf(&b, "Prompt: %s...\n", excerpt(entry.Prompt, maxPromptExcerpt))
		if entry.Response != "" {
			fmt.Fprintf(&b, "Response: %s...\n", excerpt(entry.Response, maxResponseExcerpt))
		}
		fmt.Fprintf(&b, "Tokens: %d\n", entry.Tokens)
	}
	return b.String()
}

func excerpt(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

var (
	fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	bareJSONRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// parseSuggestions pulls config_update improvements out of model output.
// Fenced JSON wins over a bare object; unparseable output degrades to a
// single generic record carrying the raw analysis for manual review.
func parseSuggestions(text string) []domain.Improvement {
	body := ""
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		body = m[1]
	} else if m := bareJSONRe.FindString(text); m != "" {
		body = m
	} else {
		body = text
	}

	var suggestions []domain.Improvement
	parsed := gjson.Valid(body)
	if parsed {
		gjson.Get(body, "improvements").ForEach(func(_, item gjson.Result) bool {
			if item.Get("type").String() != "config_update" {
				return true
			}
			changes, _ := item.Get("changes").Value().(map[string]any)
			suggestions = append(suggestions, domain.Improvement{
				Type:        "config_update",
				Description: item.Get("description").String(),
				TargetFile:  item.Get("target_file").String(),
				Changes:     changes,
				Status:      domain.ImprovementPending,
			})
			return true
		})
	}

	if !parsed {
		suggestions = append(suggestions, domain.Improvement{
			Type:        "config_update",
			Description: "Review and optimize prompt sequence based on analysis",
			Changes: map[string]any{
				"note":         "Manual review required - could not parse structured suggestions",
				"raw_analysis": excerpt(text, maxRawExcerpt),
			},
			Status: domain.ImprovementPending,
		})
	}
	return suggestions
}
