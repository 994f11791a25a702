// Package metrics exposes the engine's Prometheus collectors. Everything is
// registered on the default registry; the serve command mounts the handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APICalls counts completion calls by outcome: success, error, budget.
	APICalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loopwise_api_calls_total",
		Help: "Completion API calls by outcome.",
	}, []string{"outcome"})

	// APIRetries counts backoff retries across all calls.
	APIRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loopwise_api_retries_total",
		Help: "Completion API retry attempts.",
	})

	// TokensConsumed accumulates tokens charged against session budgets.
	TokensConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loopwise_tokens_consumed_total",
		Help: "Tokens consumed by confirmed successful API calls.",
	})

	// StepsExecuted counts sequence steps that completed a model call.
	StepsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loopwise_steps_executed_total",
		Help: "Sequence steps executed.",
	})

	// Iterations counts convergence-loop rounds.
	Iterations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loopwise_improve_iterations_total",
		Help: "Convergence loop iterations run.",
	})

	// Sessions counts sessions by final status.
	Sessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loopwise_sessions_total",
		Help: "Sessions by terminal status.",
	}, []string{"status"})
)

// Handler returns the HTTP handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
