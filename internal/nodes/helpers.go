package nodes

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"go-jobflow/internal/domain"
)

// GetValue walks a dotted path through nested maps and lists. Numeric
// segments index into lists. def is returned when any segment is missing.
func GetValue(data any, path string, def any) any {
	if path == "" {
		return data
	}
	current := data
	for _, key := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[key]
			if !ok {
				return def
			}
			current = next
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(v) {
				return def
			}
			current = v[i]
		default:
			return def
		}
	}
	if current == nil {
		return def
	}
	return current
}

// SetValue assigns value at a dotted path, creating intermediate maps.
func SetValue(obj map[string]any, path string, value any) {
	keys := strings.Split(path, ".")
	current := obj
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = value
}

var placeholder = regexp.MustCompile(`\{\{\s*(\$?[\w.\-]+)\s*\}\}`)

// lookup resolves a placeholder expression. "$name.rest" reads the variable
// bag, anything else reads the input.
func lookup(expr string, input map[string]any, ec *domain.ExecutionContext) any {
	if name, ok := strings.CutPrefix(expr, "$"); ok {
		if ec == nil {
			return nil
		}
		head, rest, _ := strings.Cut(name, ".")
		v, found := ec.Variable(head)
		if !found {
			return nil
		}
		return GetValue(v, rest, nil)
	}
	return GetValue(input, expr, nil)
}

// Render substitutes {{path}} and {{$variable.path}} placeholders. Missing
// values render as the empty string.
func Render(template string, input map[string]any, ec *domain.ExecutionContext) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		expr := placeholder.FindStringSubmatch(m)[1]
		return Stringify(lookup(expr, input, ec))
	})
}

// RenderValue renders strings, maps and lists recursively. A string that is
// exactly one placeholder resolves to the raw value so its type survives.
func RenderValue(v any, input map[string]any, ec *domain.ExecutionContext) any {
	switch t := v.(type) {
	case string:
		if m := placeholder.FindStringSubmatch(t); m != nil && m[0] == strings.TrimSpace(t) {
			return lookup(m[1], input, ec)
		}
		return Render(t, input, ec)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = RenderValue(item, input, ec)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = RenderValue(item, input, ec)
		}
		return out
	default:
		return v
	}
}

// Stringify formats a value for template output.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// merge returns a shallow copy of input overlaid with fields.
func merge(input map[string]any, fields map[string]any) map[string]any {
	out := make(map[string]any, len(input)+len(fields))
	maps.Copy(out, input)
	maps.Copy(out, fields)
	return out
}

// cloneMap copies input along with every nested map and list, so writes
// into the copy never reach the upstream node's output.
func cloneMap(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func configString(node domain.Node, key, def string) string {
	if s, ok := node.Config[key].(string); ok && s != "" {
		return s
	}
	return def
}

// renderedString reads a config key and renders it against the input.
func renderedString(node domain.Node, key string, input map[string]any, ec *domain.ExecutionContext) string {
	return Render(configString(node, key, ""), input, ec)
}

func configNumber(node domain.Node, key string, def float64) float64 {
	if f, ok := toFloat(node.Config[key]); ok {
		return f
	}
	return def
}

// pathValue reads the input at the path configured under key, falling back
// to defaultPath.
func pathValue(node domain.Node, key, defaultPath string, input map[string]any) any {
	return GetValue(input, configString(node, key, defaultPath), nil)
}

func toList(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil:
		return []any{}, true
	case []any:
		return t, true
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out, true
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out, true
	default:
		return nil, false
	}
}
