package loopwise

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/loopwise/loopwise/internal/browser"
	"github.com/loopwise/loopwise/internal/improve"
	"github.com/loopwise/loopwise/internal/project"
	"github.com/loopwise/loopwise/internal/runtime"
	"github.com/loopwise/loopwise/internal/selfimprove"
	"github.com/loopwise/loopwise/internal/workspace"
	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/graph"
)

// RunSequence loads the step graph at graphPath and executes it to
// completion inside dir, with browser and file collaborators attached and
// the post-session self-analysis hook registered. The session is returned
// even when the run ends early so callers can inspect it.
func (a *Agent) RunSequence(ctx context.Context, graphPath, dir string) (*domain.Session, error) {
	g, err := graph.Load(graphPath)
	if err != nil {
		return nil, fmt.Errorf("loading step graph: %w", err)
	}

	ws, err := workspace.New(dir)
	if err != nil {
		return nil, fmt.Errorf("opening workspace: %w", err)
	}

	br := browser.New(
		browser.WithHeadless(a.cfg.Headless),
		browser.WithLogger(a.logger),
	)
	defer br.Close()

	analyzer := selfimprove.New(a.client, a.recorder, selfimprove.WithLogger(a.logger))

	exec := runtime.New(g, a.client, a.recorder,
		runtime.WithConfigPath(graphPath),
		runtime.WithWorkspace(ws),
		runtime.WithBrowser(br),
		runtime.WithAnalysisHook(analyzer.Hook()),
		runtime.WithLogger(a.logger),
	)

	if _, err := exec.StartSession(ctx); err != nil {
		return nil, err
	}

	// Ctrl-C pauses at the next step boundary instead of killing the run.
	stop := exec.PauseOnInterrupt(ctx, os.Interrupt)
	defer stop()

	err = exec.Run(ctx)
	return exec.Session(), err
}

// Improve runs the quality convergence loop over the project at dir under a
// fresh session, and closes the session out when the loop returns.
func (a *Agent) Improve(ctx context.Context, dir string, cfg improve.Config) (*domain.LoopResult, error) {
	scanner, err := project.New(dir, project.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	ws, err := workspace.New(dir)
	if err != nil {
		return nil, fmt.Errorf("opening workspace: %w", err)
	}

	session := &domain.Session{
		ID:        uuid.NewString(),
		Status:    domain.StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := a.recorder.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	loop := improve.New(a.client, a.recorder, scanner, ws, improve.WithLogger(a.logger))
	result, err := loop.Run(ctx, session.ID, cfg)

	final := domain.StatusCompleted
	if err != nil {
		final = domain.StatusFailed
	}
	if serr := a.recorder.UpdateSessionStatus(ctx, session.ID, final); serr != nil {
		a.logger.Error("failed to finalize session", "session", session.ID, "error", serr)
	}
	return result, err
}

// SelfAnalyzer returns the post-session analyzer used for reviewing and
// applying stored improvement suggestions.
func (a *Agent) SelfAnalyzer() *selfimprove.Analyzer {
	return selfimprove.New(a.client, a.recorder, selfimprove.WithLogger(a.logger))
}
