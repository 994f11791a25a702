package loopwise

import (
	"fmt"
	"log/slog"

	"github.com/loopwise/loopwise/internal/adapters/file"
	"github.com/loopwise/loopwise/internal/adapters/memory"
	"github.com/loopwise/loopwise/internal/adapters/redis"
	"github.com/loopwise/loopwise/internal/config"
	"github.com/loopwise/loopwise/internal/llm"
	"github.com/loopwise/loopwise/internal/logging"
	"github.com/loopwise/loopwise/pkg/ports"
)

// Version is the release version reported by the CLI.
var Version = "0.1.0"

// budgetWarnFraction is the consumed fraction at which the client logs its
// one-time budget warning.
const budgetWarnFraction = 0.80

// Config is the runtime configuration consumed by New.
type Config = config.Config

// LoadConfig reads configuration from .env, the environment, and the
// optional config/agent_config.yaml overlay.
func LoadConfig() (*Config, error) {
	return config.Load()
}

// Agent bundles the wired collaborators: a budgeted client over the model
// transport and a persistence recorder. The CLI builds executors and loops
// on top of it.
type Agent struct {
	cfg       *config.Config
	logger    *slog.Logger
	transport ports.Completer
	recorder  ports.Recorder
	client    *llm.Client

	closer func() error
}

// Option defines a functional option for configuring the Agent.
type Option func(*Agent)

// WithLogger injects a structured logger. The default logs at the
// configured level to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTransport injects a custom model transport, bypassing the default
// Anthropic client. Used by tests and embedders.
func WithTransport(t ports.Completer) Option {
	return func(a *Agent) { a.transport = t }
}

// WithRecorder injects a custom persistence sink, bypassing the
// store selection in the configuration.
func WithRecorder(r ports.Recorder) Option {
	return func(a *Agent) { a.recorder = r }
}

// New validates the configuration and wires an Agent from it.
func New(cfg *config.Config, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Agent{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = logging.New(logging.ParseLevel(cfg.LogLevel))
	}
	if a.transport == nil {
		a.transport = llm.NewAnthropicTransport(cfg.APIKey, cfg.Model)
	}
	if a.recorder == nil {
		switch cfg.Store {
		case "file":
			a.recorder = file.New(cfg.StateDir)
		case "redis":
			store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			a.recorder = store
			a.closer = store.Close
		case "memory":
			a.recorder = memory.NewStore()
		default:
			return nil, fmt.Errorf("unknown store %q", cfg.Store)
		}
	}

	budget := llm.NewBudget(cfg.TokenBudget, budgetWarnFraction, true)
	a.client = llm.New(a.transport, llm.WithBudget(budget), llm.WithLogger(a.logger))
	return a, nil
}

// Config returns the configuration the Agent was built from.
func (a *Agent) Config() *config.Config { return a.cfg }

// Logger returns the Agent's structured logger.
func (a *Agent) Logger() *slog.Logger { return a.logger }

// Recorder returns the wired persistence sink.
func (a *Agent) Recorder() ports.Recorder { return a.recorder }

// Client returns the budgeted completion client.
func (a *Agent) Client() *llm.Client { return a.client }

// Close releases the recorder's backing connection, if it has one.
func (a *Agent) Close() error {
	if a.closer != nil {
		return a.closer()
	}
	return nil
}
