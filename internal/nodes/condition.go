package nodes

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"go-jobflow/internal/domain"
)

// EvaluateCondition tests cond against data. Unknown operators pass.
func EvaluateCondition(cond domain.Condition, data map[string]any) bool {
	return Compare(GetValue(data, cond.Field, nil), cond.Operator, cond.Value)
}

// Compare applies a comparison operator. Numbers compare numerically across
// integer and float representations.
func Compare(actual any, operator string, expected any) bool {
	switch operator {
	case "==", "===":
		return equal(actual, expected)
	case "!=", "!==":
		return !equal(actual, expected)
	case ">", ">=", "<", "<=":
		c, ok := order(actual, expected)
		if !ok {
			return false
		}
		switch operator {
		case ">":
			return c > 0
		case ">=":
			return c >= 0
		case "<":
			return c < 0
		default:
			return c <= 0
		}
	case "contains":
		if list, ok := toList(actual); ok && actual != nil {
			for _, item := range list {
				if equal(item, expected) {
					return true
				}
			}
			return false
		}
		return strings.Contains(Stringify(actual), Stringify(expected))
	case "startsWith":
		return strings.HasPrefix(Stringify(actual), Stringify(expected))
	case "endsWith":
		return strings.HasSuffix(Stringify(actual), Stringify(expected))
	default:
		return true
	}
}

func equal(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func order(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// parseCondition reads a {field, operator, value} map from node config.
func parseCondition(raw any) (domain.Condition, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return domain.Condition{}, fmt.Errorf("%w: condition must be an object", domain.ErrInvalidNodeConfig)
	}
	field, _ := m["field"].(string)
	if field == "" {
		return domain.Condition{}, fmt.Errorf("%w: condition.field is required", domain.ErrInvalidNodeConfig)
	}
	operator, _ := m["operator"].(string)
	if operator == "" {
		operator = "=="
	}
	return domain.Condition{Field: field, Operator: operator, Value: m["value"]}, nil
}
