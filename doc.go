/*
Package loopwise is a declarative prompt-sequence engine for LLM workflows: it
walks a YAML-defined graph of prompts with conditional branching, sends each
prompt through a budget-aware, retrying model client, and records every
exchange in a persistent session journal.

# Concept

A workflow is a list of steps. Each step carries a prompt (with {{variable}}
placeholders), optional branch rules evaluated against the model's response,
and optional browser or file side effects. The engine resolves the next step
from the first satisfied rule, an explicit next pointer, or document order,
and stops cleanly when the budget runs out or a rule names no successor.

On top of single runs, the convergence loop repeatedly assesses a project
against quality criteria, asks the model for targeted improvements, applies
the returned file edits, and stops on threshold, score convergence, or budget
exhaustion. Completed sessions are fed back through a self-analysis pass that
proposes configuration updates for operator review.

# Usage

Wire an Agent from configuration and run a sequence:

	package main

	import (
		"context"
		"log"

		"github.com/loopwise/loopwise"
	)

	func main() {
		cfg, err := loopwise.LoadConfig()
		if err != nil {
			log.Fatal(err)
		}

		agent, err := loopwise.New(cfg)
		if err != nil {
			log.Fatal(err)
		}
		defer agent.Close()

		session, err := agent.RunSequence(context.Background(), "config/prompts.yaml", ".")
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("session %s finished: %s", session.ID, session.Status)
	}
*/
package loopwise
