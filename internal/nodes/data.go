package nodes

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go-jobflow/internal/domain"
)

// MergeNode overlays config.with and the variables named in
// config.variables onto the input.
type MergeNode struct{}

func (n *MergeNode) Execute(_ context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error) {
	out := merge(input, nil)
	if names, ok := node.Config["variables"].([]any); ok {
		for _, raw := range names {
			name := Stringify(raw)
			v, found := ec.Variable(name)
			if !found {
				continue
			}
			if m, ok := v.(map[string]any); ok {
				maps.Copy(out, m)
			} else {
				out[name] = v
			}
		}
	}
	if with, ok := RenderValue(node.Config["with"], input, ec).(map[string]any); ok {
		maps.Copy(out, with)
	}
	return out, nil
}

// SplitNode breaks a delimited string or a list into items.
type SplitNode struct{}

func (n *SplitNode) Execute(_ context.Context, node domain.Node, input map[string]any, _ *domain.ExecutionContext) (map[string]any, error) {
	value := pathValue(node, "field", "items", input)
	var items []any
	if s, ok := value.(string); ok {
		for _, part := range strings.Split(s, configString(node, "separator", ",")) {
			items = append(items, strings.TrimSpace(part))
		}
	} else if list, ok := toList(value); ok {
		items = list
	} else {
		return nil, fmt.Errorf("%w: cannot split %T", domain.ErrInvalidNodeConfig, value)
	}
	return merge(input, map[string]any{"items": items, "count": len(items)}), nil
}

// TransformNode builds a new object from config.mapping, whose keys are
// dotted target paths and values templates or input paths.
type TransformNode struct{}

func (n *TransformNode) Execute(_ context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error) {
	mapping, ok := node.Config["mapping"].(map[string]any)
	if !ok {
		return merge(input, nil), nil
	}
	out := map[string]any{}
	if keep, _ := node.Config["keepInput"].(bool); keep {
		out = cloneMap(input)
	}
	// Sorted targets apply "a" before "a.b" refines it.
	for _, target := range slices.Sorted(maps.Keys(mapping)) {
		source := mapping[target]
		if s, ok := source.(string); ok && !strings.Contains(s, "{{") {
			SetValue(out, target, cloneValue(GetValue(input, s, nil)))
			continue
		}
		SetValue(out, target, cloneValue(RenderValue(source, input, ec)))
	}
	return out, nil
}

func (n *TransformNode) Metadata() Metadata {
	md := DefaultMetadata("TRANSFORM_DATA")
	md.Description = "Reshape the input with a field mapping"
	md.Config = objectSchema(map[string]any{
		"mapping":   prop("object", "Target path to source path or template"),
		"keepInput": prop("boolean", "Start from a copy of the input"),
	})
	return md
}

// FilterNode keeps the list items matching config.condition.
type FilterNode struct{}

func (n *FilterNode) Execute(_ context.Context, node domain.Node, input map[string]any, _ *domain.ExecutionContext) (map[string]any, error) {
	items, ok := toList(pathValue(node, "field", "items", input))
	if !ok {
		return nil, fmt.Errorf("%w: filter field is not a list", domain.ErrInvalidNodeConfig)
	}
	cond, err := parseCondition(node.Config["condition"])
	if err != nil {
		return nil, err
	}
	kept := make([]any, 0, len(items))
	for _, item := range items {
		m, isMap := item.(map[string]any)
		if !isMap {
			m = map[string]any{"value": item}
		}
		if EvaluateCondition(cond, m) {
			kept = append(kept, item)
		}
	}
	return merge(input, map[string]any{"items": kept, "count": len(kept)}), nil
}

func (n *FilterNode) Metadata() Metadata {
	md := DefaultMetadata("FILTER_DATA")
	md.Description = "Keep list items matching a condition"
	md.Config = objectSchema(map[string]any{
		"field":     prop("string", "Input path of the list"),
		"condition": prop("object", "Condition applied to each item"),
	}, "condition")
	return md
}

// QueryNode extracts a single value from the input.
type QueryNode struct{}

func (n *QueryNode) Execute(_ context.Context, node domain.Node, input map[string]any, _ *domain.ExecutionContext) (map[string]any, error) {
	path := configString(node, "path", "")
	return merge(input, map[string]any{"result": GetValue(input, path, node.Config["default"])}), nil
}

// FileNode reads or writes a user file reference. File bodies live in the
// storage service; the node only passes references along.
type FileNode struct {
	Write bool
}

func (n *FileNode) Execute(_ context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error) {
	path := renderedString(node, "path", input, ec)
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", domain.ErrInvalidNodeConfig)
	}
	if n.Write {
		return merge(input, map[string]any{
			"file": map[string]any{"path": path, "content": RenderValue(node.Config["content"], input, ec)},
			"written": true,
		}), nil
	}
	return merge(input, map[string]any{"file": map[string]any{"path": path, "owner": ec.UserID.String()}}), nil
}
