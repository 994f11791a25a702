// Package quality assesses an artifact against a set of criteria by
// meta-prompting: it asks the model for scores, parses them out of loosely
// structured output, and turns the weakest areas into ranked suggestions.
package quality

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/loopwise/loopwise/internal/llm"
	"github.com/loopwise/loopwise/internal/logging"
	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/ports"
)

// DefaultCriteria is used when the caller configures none.
var DefaultCriteria = []string{"code_style", "user_experience", "performance"}

const (
	// defaultScore is assumed for any criterion the model failed to score.
	defaultScore = 50

	// skipScore marks a criterion good enough to leave alone.
	skipScore = 90

	// highPriorityBelow is the score under which a suggestion is high
	// priority rather than medium.
	highPriorityBelow = 60

	maxSummaryFiles      = 10
	maxSuggestionFiles   = 3
	maxFileSummaryChars  = 500
	suggestionBatchLimit = 3
)

// Assessment is one full quality analysis: scores plus the model's reported
// issues and free-form improvement notes.
type Assessment struct {
	Overall float64
	Scores  map[string]float64
	Issues  []domain.Issue
	Raw     string
}

// Analyzer scores projects and generates improvement suggestions through the
// budgeted client.
type Analyzer struct {
	client *llm.Client
	logger *slog.Logger
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

// New creates an Analyzer over the given client.
func New(client *llm.Client, opts ...Option) *Analyzer {
	a := &Analyzer{client: client, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scores the project against the criteria. A transport error is
// returned as-is (including budget exhaustion); a malformed response is not
// an error, it degrades to default scores.
func (a *Analyzer) Analyze(ctx context.Context, project *ports.ProjectContext, criteria []string) (*Assessment, error) {
	if len(criteria) == 0 {
		criteria = DefaultCriteria
	}

	prompt := buildAssessmentPrompt(project, criteria)
	resp, err := a.client.Complete(ctx, ports.CompletionRequest{Prompt: prompt, Temperature: 0.3})
	if err != nil {
		return nil, fmt.Errorf("quality assessment failed: %w", err)
	}

	assessment := parseAssessment(resp.Text, criteria)
	a.logger.Info("quality assessed", "overall", assessment.Overall, "criteria", len(assessment.Scores))
	return assessment, nil
}

// ResearchBestPractices asks the model for a best-practices brief on one
// focus area. Used on the first loop iteration only.
func (a *Analyzer) ResearchBestPractices(ctx context.Context, projectType, focusArea string) (string, error) {
	prompt := fmt.Sprintf(`Research and provide best practices for %s in %s projects.

Focus on:
- Current industry standards
- Common patterns and approaches
- Specific actionable recommendations
- Examples where helpful

Provide a concise summary of key best practices.`, focusArea, projectType)

	resp, err := a.client.Complete(ctx, ports.CompletionRequest{Prompt: prompt, Temperature: 0.2})
	if err != nil {
		return "", fmt.Errorf("best-practices research failed: %w", err)
	}
	return resp.Text, nil
}

// Suggest turns the assessment's weakest criteria into concrete suggestions:
// up to three criteria in ascending score order, skipping anything already
// at or above the skip score. The first transport error aborts and returns
// the suggestions gathered so far alongside it.
func (a *Analyzer) Suggest(ctx context.Context, project *ports.ProjectContext, assessment *Assessment, bestPractices string) ([]domain.Suggestion, error) {
	weakest := weakestCriteria(assessment.Scores, suggestionBatchLimit)

	var suggestions []domain.Suggestion
	for _, criterion := range weakest {
		score := assessment.Scores[criterion]
		if score >= skipScore {
			continue
		}

		issues := issuesFor(assessment.Issues, criterion)
		prompt := buildSuggestionPrompt(project, criterion, score, issues, bestPractices)

		resp, err := a.client.Complete(ctx, ports.CompletionRequest{Prompt: prompt, Temperature: 0.4})
		if err != nil {
			return suggestions, fmt.Errorf("suggestion for %s failed: %w", criterion, err)
		}

		priority := "medium"
		if score < highPriorityBelow {
			priority = "high"
		}
		suggestions = append(suggestions, domain.Suggestion{
			Criterion:    criterion,
			CurrentScore: score,
			Priority:     priority,
			Text:         resp.Text,
			Issues:       issues,
		})
	}
	return suggestions, nil
}

func buildAssessmentPrompt(project *ports.ProjectContext, criteria []string) string {
	return fmt.Sprintf(`Analyze the quality of this %s project and provide scores (0-100) for each criterion.

Project files:
%s

Quality criteria to evaluate: %s

For each criterion, provide:
1. A score from 0-100
2. Specific issues found
3. Improvement suggestions

Format your response as JSON:
{
  "scores": {
    "%s": 75
  },
  "overall_score": 70,
  "issues": [
    {"criterion": "...", "severity": "high", "description": "..."}
  ]
}`, project.Type, fileSummary(project.Files, maxSummaryFiles), strings.Join(criteria, ", "), criteria[0])
}

func buildSuggestionPrompt(project *ports.ProjectContext, criterion string, score float64, issues []domain.Issue, bestPractices string) string {
	if bestPractices == "" {
		bestPractices = "N/A"
	}
	return fmt.Sprintf(`Generate specific, actionable improvement suggestions for a %s project.

Criterion: %s
Current Score: %.0f/100

Issues found:
%s

Best Practices:
%s

Project files (sample):
%s

Provide:
1. Specific code changes needed
2. Files that need modification
3. Expected improvement in score

For each file change, declare the target with a line "FILE: path" followed by a fenced code block with the complete new content.`,
		project.Type, criterion, score, formatIssues(issues), bestPractices,
		fileSummary(project.Files, maxSuggestionFiles))
}

func fileSummary(files []ports.FileInfo, limit int) string {
	var b strings.Builder
	shown := files
	if len(shown) > limit {
		shown = shown[:limit]
	}
	for _, f := range shown {
		content := f.Content
		if len(content) > maxFileSummaryChars {
			content = content[:maxFileSummaryChars]
		}
		fmt.Fprintf(&b, "\n--- %s (%d bytes) ---\n%s", f.Path, f.Size, content)
	}
	if len(files) > limit {
		fmt.Fprintf(&b, "\n... and %d more files", len(files)-limit)
	}
	return b.String()
}

func formatIssues(issues []domain.Issue) string {
	if len(issues) == 0 {
		return "No specific issues identified."
	}
	var lines []string
	for _, issue := range issues {
		severity := issue.Severity
		if severity == "" {
			severity = "medium"
		}
		lines = append(lines, fmt.Sprintf("- [%s] %s", severity, issue.Description))
	}
	return strings.Join(lines, "\n")
}

func weakestCriteria(scores map[string]float64, limit int) []string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	// Ascending by score; ties broken by name so the order is stable.
	sort.Slice(names, func(i, j int) bool {
		if scores[names[i]] != scores[names[j]] {
			return scores[names[i]] < scores[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}
	return names
}

func issuesFor(issues []domain.Issue, criterion string) []domain.Issue {
	var out []domain.Issue
	for _, issue := range issues {
		if issue.Criterion == criterion {
			out = append(out, issue)
		}
	}
	return out
}

// jsonObjectRe grabs the widest brace-delimited span so a JSON body survives
// surrounding prose or code fences.
var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// parseAssessment extracts scores from model output. JSON first (tolerating
// surrounding prose), then a per-criterion regex sweep, and a default score
// for anything still missing. Never fails.
func parseAssessment(text string, criteria []string) *Assessment {
	assessment := &Assessment{
		Scores: make(map[string]float64, len(criteria)),
		Raw:    text,
	}

	if body := jsonObjectRe.FindString(text); body != "" && gjson.Valid(body) {
		doc := gjson.Parse(body)
		doc.Get("scores").ForEach(func(key, value gjson.Result) bool {
			assessment.Scores[key.String()] = value.Float()
			return true
		})
		doc.Get("issues").ForEach(func(_, value gjson.Result) bool {
			assessment.Issues = append(assessment.Issues, domain.Issue{
				Criterion:   value.Get("criterion").String(),
				Severity:    value.Get("severity").String(),
				Description: value.Get("description").String(),
			})
			return true
		})
		if overall := doc.Get("overall_score"); overall.Exists() {
			assessment.Overall = overall.Float()
		}
	}

	for _, criterion := range criteria {
		if _, ok := assessment.Scores[criterion]; ok {
			continue
		}
		if score, ok := scanScore(text, criterion); ok {
			assessment.Scores[criterion] = score
		} else {
			assessment.Scores[criterion] = defaultScore
		}
	}

	if assessment.Overall == 0 {
		var sum float64
		for _, s := range assessment.Scores {
			sum += s
		}
		if len(assessment.Scores) > 0 {
			assessment.Overall = sum / float64(len(assessment.Scores))
		}
	}
	return assessment
}

// scanScore looks for `criterion: 72` shapes in free text.
func scanScore(text, criterion string) (float64, bool) {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(criterion) + `["']?\s*:?\s*(\d+)`)
	if err != nil {
		return 0, false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	var n int
	fmt.Sscanf(m[1], "%d", &n)
	return float64(n), true
}

// Score converts an assessment into the persisted per-iteration record.
func (a *Assessment) Score(iteration int) domain.QualityScore {
	criteria := make(map[string]float64, len(a.Scores))
	for k, v := range a.Scores {
		criteria[k] = v
	}
	return domain.QualityScore{Iteration: iteration, Overall: a.Overall, Criteria: criteria}
}
