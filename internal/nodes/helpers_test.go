package nodes

import (
	"testing"
	"time"

	"go-jobflow/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newContext() *domain.ExecutionContext {
	return domain.NewExecutionContext(uuid.New(), uuid.New(), uuid.New(), nil, time.Now())
}

func TestGetValue(t *testing.T) {
	data := map[string]any{
		"job": map[string]any{
			"title": "Engineer",
			"tags":  []any{"go", "sql"},
		},
		"empty": nil,
	}

	tests := []struct {
		path string
		def  any
		want any
	}{
		{"job.title", nil, "Engineer"},
		{"job.tags.1", nil, "sql"},
		{"job.tags.9", "none", "none"},
		{"job.missing", 42, 42},
		{"empty", "fallback", "fallback"},
		{"job.title.deeper", "x", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, GetValue(data, tt.path, tt.def))
		})
	}
}

func TestSetValue_CreatesIntermediateMaps(t *testing.T) {
	out := map[string]any{"a": "scalar"}
	SetValue(out, "b.c.d", 1)
	SetValue(out, "a.x", 2)

	assert.Equal(t, map[string]any{
		"a": map[string]any{"x": 2},
		"b": map[string]any{"c": map[string]any{"d": 1}},
	}, out)
}

func TestRender(t *testing.T) {
	ec := newContext()
	ec.SetVariable("analysis", map[string]any{"score": 8})
	input := map[string]any{"company": "Acme", "job": map[string]any{"title": "SRE"}}

	got := Render("Apply to {{company}} as {{ job.title }} (score {{$analysis.score}}){{missing}}", input, ec)
	assert.Equal(t, "Apply to Acme as SRE (score 8)", got)
}

func TestRenderValue_PreservesTypeOfSinglePlaceholder(t *testing.T) {
	ec := newContext()
	input := map[string]any{"jobs": []any{"a", "b"}, "n": 3}

	got := RenderValue(map[string]any{
		"list":  "{{jobs}}",
		"count": "{{ n }}",
		"text":  "n={{n}}",
		"keep":  true,
	}, input, ec)

	assert.Equal(t, map[string]any{
		"list":  []any{"a", "b"},
		"count": 3,
		"text":  "n=3",
		"keep":  true,
	}, got)
}
