package nodes

import (
	"testing"

	"go-jobflow/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		actual   any
		operator string
		expected any
		want     bool
	}{
		{"int equals float", 7, "==", 7.0, true},
		{"strict equals", "a", "===", "a", true},
		{"not equals", "a", "!=", "b", true},
		{"greater or equal", 8, ">=", 7, true},
		{"greater or equal boundary", 7.0, ">=", 7, true},
		{"less than false", 8, "<", 7, false},
		{"string order", "b", ">", "a", true},
		{"mixed types do not order", "8", ">", 7, false},
		{"missing value does not order", nil, ">=", 7, false},
		{"contains substring", "senior go engineer", "contains", "go", true},
		{"contains list item", []any{"go", "rust"}, "contains", "rust", true},
		{"startsWith", "https://jobs", "startsWith", "https", true},
		{"endsWith", "resume.pdf", "endsWith", ".doc", false},
		{"unknown operator passes", 1, "matches", 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.actual, tt.operator, tt.expected))
		})
	}
}

func TestEvaluateCondition_NestedField(t *testing.T) {
	cond := domain.Condition{Field: "analysis.score", Operator: ">=", Value: 7}

	assert.True(t, EvaluateCondition(cond, map[string]any{"analysis": map[string]any{"score": 8.5}}))
	assert.False(t, EvaluateCondition(cond, map[string]any{"analysis": map[string]any{"score": 3}}))
	assert.False(t, EvaluateCondition(cond, map[string]any{}))
}
