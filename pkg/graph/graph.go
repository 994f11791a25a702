// Package graph loads and indexes step sequences from YAML. The schema is a
// flat list of step records under a "steps" key; conditions are parsed into
// their closed variants once at load time, and each step's position is
// recorded so positional-successor lookups are O(1).
package graph

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/loopwise/loopwise/pkg/domain"
)

// Graph is an immutable, ordered collection of steps indexed by ID.
type Graph struct {
	steps []domain.Step
	index map[string]int
}

type document struct {
	Steps []domain.Step `yaml:"steps"`
}

// Load reads and parses a step graph from a YAML file.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read step graph: %w", err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid step graph %s: %w", path, err)
	}
	return g, nil
}

// Parse builds a graph from raw YAML bytes.
func Parse(data []byte) (*Graph, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	return New(doc.Steps)
}

// New builds a graph from already-decoded steps. Step IDs must be non-empty
// and unique. Conditions are compiled here so evaluation never re-parses.
func New(steps []domain.Step) (*Graph, error) {
	if len(steps) == 0 {
		return nil, domain.ErrNoSteps
	}
	index := make(map[string]int, len(steps))
	for i := range steps {
		id := steps[i].ID
		if id == "" {
			return nil, fmt.Errorf("step %d is missing an id", i)
		}
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("duplicate step id %q", id)
		}
		index[id] = i
		for j := range steps[i].Conditions {
			steps[i].Conditions[j].Compile()
		}
	}
	return &Graph{steps: steps, index: index}, nil
}

// Len returns the number of steps.
func (g *Graph) Len() int { return len(g.steps) }

// Steps returns the steps in declaration order. Callers must not mutate the
// returned slice.
func (g *Graph) Steps() []domain.Step { return g.steps }

// Start returns the entry step: the one flagged as start, else the first in
// declaration order. ok is false for an empty graph.
func (g *Graph) Start() (*domain.Step, bool) {
	for i := range g.steps {
		if g.steps[i].Start {
			return &g.steps[i], true
		}
	}
	if len(g.steps) == 0 {
		return nil, false
	}
	return &g.steps[0], true
}

// ByID looks up a step by identifier.
func (g *Graph) ByID(id string) (*domain.Step, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return &g.steps[i], true
}

// After returns the step positionally following the step with the given id,
// if any.
func (g *Graph) After(id string) (*domain.Step, bool) {
	i, ok := g.index[id]
	if !ok || i+1 >= len(g.steps) {
		return nil, false
	}
	return &g.steps[i+1], true
}
