// Package runtime drives a loaded step graph: it walks steps, sends their
// prompts through the budgeted client, evaluates branch rules against the
// responses, and records everything through the persistence sink.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/loopwise/loopwise/internal/llm"
	"github.com/loopwise/loopwise/internal/logging"
	"github.com/loopwise/loopwise/internal/metrics"
	"github.com/loopwise/loopwise/pkg/domain"
	"github.com/loopwise/loopwise/pkg/graph"
	"github.com/loopwise/loopwise/pkg/ports"
)

// AnalysisHook runs after a sequence completes naturally. It may create
// improvement suggestions; its failure never fails the run.
type AnalysisHook func(ctx context.Context, sessionID string) error

// Executor is the step-sequence state machine. One Executor serves one
// session; callers must not run it concurrently.
type Executor struct {
	graph    *graph.Graph
	client   *llm.Client
	recorder ports.Recorder

	browser   ports.Browser
	workspace ports.Workspace
	analyze   AnalysisHook

	vars       domain.Bindings
	configPath string
	logger     *slog.Logger

	session *domain.Session
	paused  atomic.Bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithBrowser attaches the browser collaborator for step browser actions.
func WithBrowser(b ports.Browser) Option {
	return func(e *Executor) { e.browser = b }
}

// WithWorkspace attaches the file collaborator for step file operations.
func WithWorkspace(w ports.Workspace) Option {
	return func(e *Executor) { e.workspace = w }
}

// WithAnalysisHook registers the post-completion analysis hook.
func WithAnalysisHook(hook AnalysisHook) Option {
	return func(e *Executor) { e.analyze = hook }
}

// WithConfigPath records the graph's source path on the session.
func WithConfigPath(path string) Option {
	return func(e *Executor) { e.configPath = path }
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Executor over a graph, client, and recorder.
func New(g *graph.Graph, client *llm.Client, recorder ports.Recorder, opts ...Option) *Executor {
	e := &Executor{
		graph:    g,
		client:   client,
		recorder: recorder,
		vars:     make(domain.Bindings),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Session returns the current session, nil before StartSession/Run.
func (e *Executor) Session() *domain.Session { return e.session }

// Vars returns the executor's variable bindings.
func (e *Executor) Vars() domain.Bindings { return e.vars }

// StartSession creates and persists a new session in Running state.
func (e *Executor) StartSession(ctx context.Context) (*domain.Session, error) {
	session := &domain.Session{
		ID:         uuid.NewString(),
		Status:     domain.StatusRunning,
		ConfigPath: e.configPath,
		StartedAt:  time.Now().UTC(),
	}
	if err := e.recorder.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	e.session = session
	e.paused.Store(false)
	e.logger.Info("session started", "session", session.ID)
	return session, nil
}

// Pause requests a cooperative pause. The executor observes it at the next
// step boundary, never mid-call.
func (e *Executor) Pause(ctx context.Context) error {
	if e.session == nil {
		return domain.ErrSessionNotFound
	}
	e.paused.Store(true)
	if err := e.recorder.UpdateSessionStatus(ctx, e.session.ID, domain.StatusPaused); err != nil {
		return err
	}
	e.session.Status = domain.StatusPaused
	return nil
}

// Resume clears the pause flag and marks the session running again.
func (e *Executor) Resume(ctx context.Context) error {
	if e.session == nil {
		return domain.ErrSessionNotFound
	}
	e.paused.Store(false)
	if err := e.recorder.UpdateSessionStatus(ctx, e.session.ID, domain.StatusRunning); err != nil {
		return err
	}
	e.session.Status = domain.StatusRunning
	return nil
}

// PauseOnInterrupt pauses the session when one of the given signals arrives,
// so an interrupted run stops cleanly at the next step boundary instead of
// dying mid-sequence. With no signals it watches os.Interrupt. The returned
// stop function releases the signal handler; callers defer it around Run.
func (e *Executor) PauseOnInterrupt(ctx context.Context, sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-ch:
			e.logger.Info("interrupt received, pausing session", "signal", sig.String())
			if err := e.Pause(ctx); err != nil {
				e.logger.Error("failed to pause on interrupt", "error", err)
			}
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}

// Run walks the graph from its entry step until the sequence ends, a send
// fails, or a pause is observed. A send failure ends the run early and
// leaves the session status untouched so it stays inspectable; only an
// unexpected internal failure marks the session Failed.
func (e *Executor) Run(ctx context.Context) (err error) {
	if e.session == nil {
		if _, err := e.StartSession(ctx); err != nil {
			return err
		}
	}

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("unexpected failure: %v", r)
			e.logError(ctx, "agent_error", msg)
			if serr := e.recorder.UpdateSessionStatus(ctx, e.session.ID, domain.StatusFailed); serr != nil {
				e.logger.Error("failed to mark session failed", "error", serr)
			} else {
				e.session.Status = domain.StatusFailed
			}
			metrics.Sessions.WithLabelValues(string(domain.StatusFailed)).Inc()
			err = fmt.Errorf("sequence aborted: %s", msg)
		}
	}()

	current, ok := e.graph.Start()
	if !ok {
		return domain.ErrNoSteps
	}

	stepNumber := 0
	for current != nil && !e.paused.Load() {
		stepNumber++
		step := current
		e.logger.Info("executing step", "step", step.ID, "number", stepNumber)

		e.runBrowserActions(ctx, step)

		promptText := e.vars.Substitute(step.Prompt)
		ref, lerr := e.recorder.LogPrompt(ctx, e.session.ID, promptText, step.ID, stepNumber)
		if lerr != nil {
			e.logger.Error("failed to log prompt", "step", step.ID, "error", lerr)
		}

		resp, serr := e.client.Send(ctx, promptText)
		if serr != nil {
			e.logError(ctx, "api_error", serr.Error())
			return fmt.Errorf("sequence ended at step %q: %w", step.ID, serr)
		}

		if lerr := e.recorder.LogResponse(ctx, e.session.ID, ref, resp.Text, resp.Model, resp.TokensUsed); lerr != nil {
			e.logger.Error("failed to log response", "step", step.ID, "error", lerr)
		}
		metrics.StepsExecuted.Inc()

		e.runFileOperations(ctx, step, resp.Text)

		current = e.resolveNext(step, resp.Text)
	}

	if e.paused.Load() {
		e.logger.Info("session paused", "session", e.session.ID)
		return nil
	}

	if err := e.recorder.UpdateSessionStatus(ctx, e.session.ID, domain.StatusCompleted); err != nil {
		e.logger.Error("failed to mark session completed", "error", err)
	} else {
		e.session.Status = domain.StatusCompleted
	}
	metrics.Sessions.WithLabelValues(string(domain.StatusCompleted)).Inc()
	e.logger.Info("session completed", "session", e.session.ID, "steps", stepNumber)

	if e.analyze != nil {
		if err := e.analyze(ctx, e.session.ID); err != nil {
			e.logError(ctx, "analysis_error", err.Error())
		}
	}
	return nil
}

// resolveNext picks the next step: first satisfied branch rule's "then" (an
// empty "then" on a fired rule terminates), an unsatisfied rule's "else" if
// present, the step's explicit next, then the positional successor. Unknown
// identifiers end the sequence rather than failing it.
func (e *Executor) resolveNext(step *domain.Step, response string) *domain.Step {
	for i := range step.Conditions {
		rule := &step.Conditions[i]
		if rule.Eval(response, e.vars) {
			if rule.Then == "" {
				return nil
			}
			return e.lookup(rule.Then)
		}
		if rule.Else != "" {
			return e.lookup(rule.Else)
		}
	}
	if step.Next != "" {
		return e.lookup(step.Next)
	}
	if next, ok := e.graph.After(step.ID); ok {
		return next
	}
	return nil
}

func (e *Executor) lookup(id string) *domain.Step {
	next, ok := e.graph.ByID(id)
	if !ok {
		e.logger.Warn("branch target not found, ending sequence", "target", id)
		return nil
	}
	return next
}

func (e *Executor) logError(ctx context.Context, kind, message string) {
	e.logger.Error(message, "kind", kind, "session", e.session.ID)
	if err := e.recorder.LogError(ctx, e.session.ID, kind, message); err != nil {
		e.logger.Error("failed to record error", "error", err)
	}
}
