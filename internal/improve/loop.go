// Package improve runs the iterative quality-convergence loop: assess the
// project, stop if it is good enough or no longer moving, otherwise generate
// suggestions, turn them into file edits, and go again.
package improve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/loopwise/loopwise/internal/llm"
	"github.com/loopwise/loopwise/internal/logging"
	"github.com/loopwise/loopwise/internal/metrics"
	"github.com/loopwise/loopwise/internal/quality"
	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/ports"
)

const (
	// DefaultThreshold is the overall score at which the loop declares
	// success.
	DefaultThreshold = 85

	// DefaultMaxIterations caps the loop.
	DefaultMaxIterations = 5

	// DefaultConvergenceWindow is how many consecutive near-flat iterations
	// mean the loop has stalled.
	DefaultConvergenceWindow = 2

	// convergenceDelta is the score change below which an iteration counts
	// as flat.
	convergenceDelta = 2

	// applyLimit bounds how many suggestions are turned into edits per
	// iteration.
	applyLimit = 3

	maxSuggestionChars = 1000
	maxPromptFiles     = 5
	maxPromptFileChars = 800
)

// Config tunes one convergence run. Zero values take the defaults above.
type Config struct {
	Threshold         float64
	MaxIterations     int
	ConvergenceWindow int
	Criteria          []string
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.ConvergenceWindow <= 0 {
		c.ConvergenceWindow = DefaultConvergenceWindow
	}
	if len(c.Criteria) == 0 {
		c.Criteria = quality.DefaultCriteria
	}
	return c
}

// Loop drives convergence iterations over one project.
type Loop struct {
	client    *llm.Client
	recorder  ports.Recorder
	scanner   ports.Scanner
	workspace ports.Workspace
	analyzer  *quality.Analyzer
	logger    *slog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithAnalyzer replaces the quality analyzer, for tests.
func WithAnalyzer(a *quality.Analyzer) Option {
	return func(l *Loop) { l.analyzer = a }
}

// New creates a Loop.
func New(client *llm.Client, recorder ports.Recorder, scanner ports.Scanner, workspace ports.Workspace, opts ...Option) *Loop {
	l := &Loop{
		client:    client,
		recorder:  recorder,
		scanner:   scanner,
		workspace: workspace,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.analyzer == nil {
		l.analyzer = quality.New(client, quality.WithLogger(l.logger))
	}
	return l
}

// Run executes the loop for an existing session. Termination, checked in
// this order each iteration: threshold met, convergence, budget exhaustion
// (a partial result, not an error), no suggestions, iteration cap.
func (l *Loop) Run(ctx context.Context, sessionID string, cfg Config) (*domain.LoopResult, error) {
	cfg = cfg.withDefaults()
	result := &domain.LoopResult{SessionID: sessionID}

	var previous float64
	flatCount := 0

	for iteration := 1; iteration <= cfg.MaxIterations; iteration++ {
		l.logger.Info("iteration starting", "iteration", iteration, "max", cfg.MaxIterations)
		metrics.Iterations.Inc()

		project, err := l.scanner.Context(ctx)
		if err != nil {
			return result, fmt.Errorf("project scan failed: %w", err)
		}

		assessment, err := l.analyzer.Analyze(ctx, project, cfg.Criteria)
		if err != nil {
			if errors.Is(err, domain.ErrBudgetExceeded) {
				result.BudgetExceeded = true
				result.FinalScore = previous
				l.logger.Warn("token budget exceeded during assessment", "iteration", iteration)
				return result, nil
			}
			return result, err
		}
		current := assessment.Overall
		result.FinalScore = current

		if err := l.recorder.SaveQualityScore(ctx, sessionID, assessment.Score(iteration)); err != nil {
			l.logger.Error("failed to save quality score", "error", err)
		}
		l.logger.Info("quality assessed", "iteration", iteration, "score", current, "target", cfg.Threshold)

		if current >= cfg.Threshold {
			result.ThresholdMet = true
			l.logger.Info("quality threshold met", "score", current)
			return result, nil
		}

		if math.Abs(current-previous) < convergenceDelta {
			flatCount++
			if flatCount >= cfg.ConvergenceWindow {
				result.Converged = true
				l.logger.Info("score converged", "flat_iterations", flatCount)
				return result, nil
			}
		} else {
			flatCount = 0
		}

		var bestPractices string
		if iteration == 1 {
			focus := lowestCriterion(assessment.Scores, cfg.Criteria)
			bestPractices, err = l.analyzer.ResearchBestPractices(ctx, project.Type, focus)
			if err != nil {
				if errors.Is(err, domain.ErrBudgetExceeded) {
					result.BudgetExceeded = true
					return result, nil
				}
				l.logger.Warn("best-practices research failed", "error", err)
			}
		}

		suggestions, err := l.analyzer.Suggest(ctx, project, assessment, bestPractices)
		if err != nil && errors.Is(err, domain.ErrBudgetExceeded) {
			result.BudgetExceeded = true
			l.logger.Warn("token budget exceeded generating suggestions", "iteration", iteration)
			return result, nil
		}
		if err != nil {
			return result, err
		}
		if len(suggestions) == 0 {
			l.logger.Info("no suggestions generated, stopping")
			return result, nil
		}

		filesModified := l.applySuggestions(ctx, project, suggestions)

		record := domain.IterationRecord{
			Iteration:     iteration,
			ScoreBefore:   previous,
			ScoreAfter:    current,
			Suggestions:   len(suggestions),
			FilesModified: filesModified,
		}
		if err := l.recorder.SaveIteration(ctx, sessionID, record); err != nil {
			l.logger.Error("failed to save iteration record", "error", err)
		}
		result.Iterations = append(result.Iterations, record)

		previous = current
	}

	l.logger.Info("iteration cap reached", "final_score", result.FinalScore)
	return result, nil
}

// applySuggestions turns up to applyLimit suggestions into concrete file
// edits. Each suggestion gets its own code-generation call; failures there
// skip that suggestion rather than aborting the iteration.
func (l *Loop) applySuggestions(ctx context.Context, project *ports.ProjectContext, suggestions []domain.Suggestion) []string {
	limit := len(suggestions)
	if limit > applyLimit {
		limit = applyLimit
	}

	seen := make(map[string]bool)
	var modified []string
	for _, suggestion := range suggestions[:limit] {
		prompt := buildApplyPrompt(project, suggestion)
		resp, err := l.client.Complete(ctx, ports.CompletionRequest{Prompt: prompt, Temperature: 0.3})
		if err != nil {
			l.logger.Warn("code generation failed", "criterion", suggestion.Criterion, "error", err)
			continue
		}

		for _, block := range ExtractFileBlocks(resp.Text) {
			if err := l.workspace.WriteFile(block.Path, block.Code); err != nil {
				l.logger.Warn("file apply failed", "file", block.Path, "error", err)
				continue
			}
			rel := displayPath(l.workspace.Root(), block.Path)
			if !seen[rel] {
				seen[rel] = true
				modified = append(modified, rel)
			}
			l.logger.Info("file updated", "file", rel, "criterion", suggestion.Criterion)
		}
	}
	return modified
}

func buildApplyPrompt(project *ports.ProjectContext, suggestion domain.Suggestion) string {
	text := suggestion.Text
	if len(text) > maxSuggestionChars {
		text = text[:maxSuggestionChars]
	}
	return fmt.Sprintf(`Based on this improvement suggestion, provide the actual code changes needed.

Improvement Suggestion:
%s

Current Project Files:
%s

Provide the updated code for files that need changes. Format as:
FILE: path/to/file.ext
`+"```language\n// updated code here\n```"+`

Only include files that actually need changes.`, text, formatProjectFiles(project.Files))
}

func formatProjectFiles(files []ports.FileInfo) string {
	var b strings.Builder
	shown := files
	if len(shown) > maxPromptFiles {
		shown = shown[:maxPromptFiles]
	}
	for _, f := range shown {
		content := f.Content
		if len(content) > maxPromptFileChars {
			content = content[:maxPromptFileChars]
		}
		fmt.Fprintf(&b, "\n--- %s ---\n%s", f.Path, content)
	}
	return b.String()
}

// lowestCriterion returns the configured criterion with the worst score.
func lowestCriterion(scores map[string]float64, criteria []string) string {
	if len(criteria) == 0 {
		return "user_experience"
	}
	best := criteria[0]
	for _, c := range criteria[1:] {
		if scores[c] < scores[best] {
			best = c
		}
	}
	return best
}
