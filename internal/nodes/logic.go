package nodes

import (
	"context"
	"fmt"

	"go-jobflow/internal/domain"
)

// ConditionNode evaluates config.condition against its input and adds the
// outcome as "result". Outgoing connections gate on that field.
type ConditionNode struct{}

func (n *ConditionNode) Execute(_ context.Context, node domain.Node, input map[string]any, _ *domain.ExecutionContext) (map[string]any, error) {
	cond, err := parseCondition(node.Config["condition"])
	if err != nil {
		return nil, err
	}
	result := EvaluateCondition(cond, input)
	return merge(input, map[string]any{"result": result}), nil
}

func (n *ConditionNode) Metadata() Metadata {
	md := DefaultMetadata("CONDITION_IF")
	md.Name = "If Condition"
	md.Description = "Branch on a comparison against the input"
	md.Outputs = []string{"result"}
	md.Config = objectSchema(map[string]any{
		"condition": objectSchema(map[string]any{
			"field":    prop("string", "Input path to compare"),
			"operator": map[string]any{"type": "string", "enum": operatorEnum()},
		}, "field"),
	}, "condition")
	return md
}

func operatorEnum() []any {
	return []any{"==", "===", "!=", "!==", ">", ">=", "<", "<=", "contains", "startsWith", "endsWith"}
}

// SwitchNode tests config.cases in order. "result" is true when one
// matched, "matchedIndex" is its position or -1 and "branch" its label.
type SwitchNode struct{}

func (n *SwitchNode) Execute(_ context.Context, node domain.Node, input map[string]any, _ *domain.ExecutionContext) (map[string]any, error) {
	cases, ok := node.Config["cases"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: cases must be a list", domain.ErrInvalidNodeConfig)
	}
	matched, branch := -1, configString(node, "default", "default")
	for i, raw := range cases {
		cond, err := parseCondition(raw)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i, err)
		}
		if EvaluateCondition(cond, input) {
			matched = i
			if label, ok := raw.(map[string]any)["branch"].(string); ok && label != "" {
				branch = label
			} else {
				branch = fmt.Sprintf("case_%d", i)
			}
			break
		}
	}
	return merge(input, map[string]any{
		"result":       matched >= 0,
		"matchedIndex": matched,
		"branch":       branch,
	}), nil
}

func (n *SwitchNode) Metadata() Metadata {
	md := DefaultMetadata("CONDITION_SWITCH")
	md.Description = "Pick the first matching case"
	md.Outputs = []string{"result", "matchedIndex", "branch"}
	md.Config = objectSchema(map[string]any{
		"cases":   map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
		"default": prop("string", "Branch label when nothing matches"),
	}, "cases")
	return md
}

// LoopNode exposes a list field of the input as items and count.
type LoopNode struct{}

func (n *LoopNode) Execute(_ context.Context, node domain.Node, input map[string]any, _ *domain.ExecutionContext) (map[string]any, error) {
	path := configString(node, "itemsPath", configString(node, "field", "items"))
	items, ok := toList(GetValue(input, path, nil))
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a list", domain.ErrInvalidNodeConfig, path)
	}
	if limit := int(configNumber(node, "maxIterations", 0)); limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return merge(input, map[string]any{"items": items, "count": len(items)}), nil
}

func (n *LoopNode) Metadata() Metadata {
	md := DefaultMetadata("LOOP_FOR_EACH")
	md.Description = "Iterate over a list in the input"
	md.Outputs = []string{"items", "count"}
	md.Config = objectSchema(map[string]any{
		"itemsPath":     prop("string", "Input path of the list"),
		"maxIterations": map[string]any{"type": "integer", "minimum": 0},
	})
	return md
}
