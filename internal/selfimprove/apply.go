package selfimprove

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/loopwise/loopwise/pkg/domain"
)

// Apply writes an approved improvement into the step-graph YAML at
// configPath. The improvement's changes must name a prompt_id, a field, and
// a new_value; the matching step's field is replaced and the document is
// re-marshalled in place. Pending or rejected improvements are refused.
func (a *Analyzer) Apply(ctx context.Context, improvementID int64, configPath string) error {
	improvement, err := a.recorder.GetImprovement(ctx, improvementID)
	if err != nil {
		return err
	}
	if improvement.Status != domain.ImprovementApproved {
		return fmt.Errorf("improvement %d is %s, not approved", improvementID, improvement.Status)
	}

	stepID, _ := improvement.Changes["prompt_id"].(string)
	field, _ := improvement.Changes["field"].(string)
	newValue, hasValue := improvement.Changes["new_value"]
	if stepID == "" || field == "" || !hasValue {
		return fmt.Errorf("improvement %d has no applicable changes", improvementID)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read step graph: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse step graph: %w", err)
	}

	if !updateStepField(&doc, stepID, field, newValue) {
		return fmt.Errorf("step %q not found in %s", stepID, configPath)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to re-marshal step graph: %w", err)
	}
	if err := os.WriteFile(configPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write step graph: %w", err)
	}

	a.logger.Info("improvement applied", "id", improvementID, "step", stepID, "field", field)
	return nil
}

// updateStepField walks the YAML document to the steps sequence, finds the
// entry whose id matches, and swaps the named field's value node. Returns
// false when no step matched.
func updateStepField(doc *yaml.Node, stepID, field string, newValue any) bool {
	root := doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return false
	}

	var steps *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "steps" {
			steps = root.Content[i+1]
			break
		}
	}
	if steps == nil || steps.Kind != yaml.SequenceNode {
		return false
	}

	for _, step := range steps.Content {
		if step.Kind != yaml.MappingNode || mapValue(step, "id") != stepID {
			continue
		}

		var valueNode yaml.Node
		if err := valueNode.Encode(newValue); err != nil {
			return false
		}

		for i := 0; i+1 < len(step.Content); i += 2 {
			if step.Content[i].Value == field {
				step.Content[i+1] = &valueNode
				return true
			}
		}

		// Field absent on this step; append it.
		step.Content = append(step.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: field},
			&valueNode)
		return true
	}
	return false
}

func mapValue(mapping *yaml.Node, key string) string {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1].Value
		}
	}
	return ""
}
