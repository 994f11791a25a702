package graph

import "fmt"

// Validate lints the graph for issues that would silently truncate a run:
// branch rules or next fields pointing at unknown steps, and steps that are
// unreachable from the entry step. A nil return means the graph is clean.
func (g *Graph) Validate() []error {
	var issues []error

	check := func(stepID, field, target string) {
		if target == "" {
			return
		}
		if _, ok := g.index[target]; !ok {
			issues = append(issues, fmt.Errorf("step %q: %s references unknown step %q", stepID, field, target))
		}
	}

	for i := range g.steps {
		s := &g.steps[i]
		check(s.ID, "next", s.Next)
		for _, r := range s.Conditions {
			check(s.ID, "then", r.Then)
			check(s.ID, "else", r.Else)
		}
	}

	start, ok := g.Start()
	if !ok {
		return issues
	}

	// Reachability crawl over every edge a run could take, including the
	// implicit positional fallthrough.
	visited := make(map[string]bool, len(g.steps))
	queue := []string{start.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		s, ok := g.ByID(id)
		if !ok {
			continue
		}
		for _, r := range s.Conditions {
			if r.Then != "" {
				queue = append(queue, r.Then)
			}
			if r.Else != "" {
				queue = append(queue, r.Else)
			}
		}
		if s.Next != "" {
			queue = append(queue, s.Next)
		} else if succ, ok := g.After(id); ok {
			queue = append(queue, succ.ID)
		}
	}

	for i := range g.steps {
		if !visited[g.steps[i].ID] {
			issues = append(issues, fmt.Errorf("step %q is unreachable from %q", g.steps[i].ID, start.ID))
		}
	}

	return issues
}
