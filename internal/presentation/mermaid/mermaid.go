// Package mermaid renders a step graph as a Mermaid flowchart for
// inspection and documentation.
package mermaid

import (
	"fmt"
	"strings"

	"github.com/loopwise/loopwise/pkg/domain"
)

// terminalID is the synthetic sink for rules that end the sequence.
const terminalID = "__end__"

// Generate produces Mermaid flowchart syntax from the steps of a graph.
// Shapes carry semantics:
//   - entry step: ((circle))
//   - steps with browser or file side effects: [[subroutine]]
//   - everything else: [rectangle]
//
// Branch rules become labeled edges; else branches and terminations are
// dotted.
func Generate(steps []domain.Step) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	entry := entryIndex(steps)
	needsEnd := false

	for i, step := range steps {
		safeID := sanitizeID(step.ID)

		opener, closer := "[", "]"
		switch {
		case i == entry:
			opener, closer = "((", "))"
		case len(step.BrowserActions) > 0 || len(step.FileOperations) > 0:
			opener, closer = "[[", "]]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, step.ID, closer))

		explicit := false
		for _, rule := range step.Conditions {
			label := strings.ReplaceAll(rule.If, `"`, "'")
			target := sanitizeID(rule.Then)
			if rule.Then == "" {
				target = terminalID
				needsEnd = true
			}
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", safeID, label, target))
			if rule.Else != "" {
				sb.WriteString(fmt.Sprintf("    %s -. \"else\" .-> %s\n", safeID, sanitizeID(rule.Else)))
			}
			explicit = true
		}

		switch {
		case step.Next != "":
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeID(step.Next)))
		case !explicit && i+1 < len(steps):
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeID(steps[i+1].ID)))
		}
	}

	if needsEnd {
		sb.WriteString(fmt.Sprintf("    %s((\"end\"))\n", terminalID))
	}
	return sb.String()
}

func entryIndex(steps []domain.Step) int {
	for i, step := range steps {
		if step.Start {
			return i
		}
	}
	return 0
}

func sanitizeID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
