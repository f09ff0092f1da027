package nodes

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go-jobflow/internal/domain"

	"github.com/xeipuuv/gojsonschema"
)

// Executor is the contract every node type implements. Implementations must
// not mutate node.Config and must return an error on unrecoverable failure.
type Executor interface {
	Execute(ctx context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error)

func (f ExecutorFunc) Execute(ctx context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error) {
	return f(ctx, node, input, ec)
}

// Metadata describes a node type for builders and tooling. It has no effect
// on execution.
type Metadata struct {
	Type        domain.NodeType `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Icon        string          `json:"icon"`
	Color       string          `json:"color"`
	Inputs      []string        `json:"inputs"`
	Outputs     []string        `json:"outputs"`
	// Config is a JSON schema for node.Config. Empty means anything goes.
	Config map[string]any `json:"config,omitempty"`
}

// MetadataProvider is implemented by executors that describe themselves.
type MetadataProvider interface {
	Metadata() Metadata
}

type categoryStyle struct {
	icon  string
	color string
}

var categoryStyles = map[string]categoryStyle{
	"trigger":      {icon: "zap", color: "#3b82f6"},
	"ai":           {icon: "brain", color: "#a855f7"},
	"auto":         {icon: "send", color: "#eab308"},
	"resume":       {icon: "file-text", color: "#22c55e"},
	"cover":        {icon: "mail", color: "#14b8a6"},
	"job":          {icon: "briefcase", color: "#f97316"},
	"company":      {icon: "building", color: "#06b6d4"},
	"email":        {icon: "mail", color: "#ec4899"},
	"notification": {icon: "bell", color: "#ec4899"},
	"http":         {icon: "globe", color: "#ec4899"},
	"webhook":      {icon: "link", color: "#ec4899"},
	"condition":    {icon: "git-branch", color: "#6366f1"},
	"loop":         {icon: "repeat", color: "#6366f1"},
	"wait":         {icon: "clock", color: "#64748b"},
	"merge":        {icon: "database", color: "#8b5cf6"},
	"split":        {icon: "database", color: "#8b5cf6"},
	"transform":    {icon: "database", color: "#8b5cf6"},
	"filter":       {icon: "database", color: "#8b5cf6"},
	"query":        {icon: "database", color: "#8b5cf6"},
	"file":         {icon: "folder", color: "#8b5cf6"},
}

var defaultStyle = categoryStyle{icon: "box", color: "#6b7280"}

// DefaultMetadata synthesizes metadata from the tag alone. It is a pure
// function of t.
func DefaultMetadata(t domain.NodeType) Metadata {
	category := t.Category()
	style, ok := categoryStyles[category]
	if !ok {
		style = defaultStyle
	}
	name := displayName(t)
	return Metadata{
		Type:        t,
		Name:        name,
		Description: name + " node",
		Category:    category,
		Icon:        style.icon,
		Color:       style.color,
		Inputs:      []string{"input"},
		Outputs:     []string{"output"},
	}
}

// displayName turns WAIT_DELAY into "Wait Delay".
func displayName(t domain.NodeType) string {
	words := strings.Split(strings.ToLower(string(t)), "_")
	for i, w := range words {
		if w == "ai" || w == "http" {
			words[i] = strings.ToUpper(w)
			continue
		}
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// Registry maps node type tags to executors. It is filled once at start up
// and read concurrently by every run.
type Registry struct {
	mu        sync.RWMutex
	executors map[domain.NodeType]Executor
}

func NewRegistry() *Registry {
	return &Registry{executors: make(map[domain.NodeType]Executor)}
}

// Register associates t with e. The last registration for a tag wins.
func (r *Registry) Register(t domain.NodeType, e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[t] = e
}

func (r *Registry) Executor(t domain.NodeType) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[t]
	return e, ok
}

// Metadata returns the executor's own metadata when it provides one, or
// the default synthesized from the tag.
func (r *Registry) Metadata(t domain.NodeType) Metadata {
	e, ok := r.Executor(t)
	if ok {
		if p, ok := e.(MetadataProvider); ok {
			md := p.Metadata()
			md.Type = t
			if md.Category == "" {
				md.Category = t.Category()
			}
			return md
		}
	}
	return DefaultMetadata(t)
}

// Types lists the registered tags in sorted order.
func (r *Registry) Types() []domain.NodeType {
	r.mu.RLock()
	types := make([]domain.NodeType, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	r.mu.RUnlock()
	slices.Sort(types)
	return types
}

// AllMetadata describes every registered tag, sorted by tag.
func (r *Registry) AllMetadata() []Metadata {
	types := r.Types()
	out := make([]Metadata, 0, len(types))
	for _, t := range types {
		out = append(out, r.Metadata(t))
	}
	return out
}

// ValidateNode rejects unknown tags and configs that do not satisfy the
// type's config schema.
func (r *Registry) ValidateNode(node domain.Node) error {
	if _, ok := r.Executor(node.Type); !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownNodeType, node.Type)
	}
	schema := r.Metadata(node.Type).Config
	if len(schema) == 0 {
		return nil
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("%w: node %s: %v", domain.ErrInvalidNodeConfig, node.ID, err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return fmt.Errorf("%w: node %s: %s", domain.ErrInvalidNodeConfig, node.ID, strings.Join(errs, "; "))
	}
	return nil
}
