package engine

import (
	"fmt"

	"go-jobflow/internal/domain"
	"go-jobflow/internal/nodes"
)

// graph is the validated, indexed form of a workflow definition.
type graph struct {
	trigger  domain.Node
	nodes    map[string]domain.Node
	outgoing map[string][]domain.Connection
}

// buildGraph rejects definitions that cannot run: no nodes, no or several
// trigger nodes, unknown types, invalid configs, dangling connections and
// cycles.
func buildGraph(wf *domain.Workflow, registry *nodes.Registry) (*graph, error) {
	if len(wf.Nodes) == 0 {
		return nil, domain.ErrEmptyWorkflow
	}

	g := &graph{
		nodes:    make(map[string]domain.Node, len(wf.Nodes)),
		outgoing: make(map[string][]domain.Connection),
	}
	var triggers []string
	for _, n := range wf.Nodes {
		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %q", domain.ErrInvalidDefinition, n.ID)
		}
		if err := registry.ValidateNode(n); err != nil {
			return nil, err
		}
		g.nodes[n.ID] = n
		if n.IsEntry() {
			triggers = append(triggers, n.ID)
		}
	}

	switch len(triggers) {
	case 0:
		return nil, domain.ErrNoTriggerNode
	case 1:
		g.trigger = g.nodes[triggers[0]]
	default:
		return nil, fmt.Errorf("%w: %v", domain.ErrMultipleTriggerNodes, triggers)
	}

	for _, c := range wf.Connections {
		if _, ok := g.nodes[c.From]; !ok {
			return nil, fmt.Errorf("%w: from %q", domain.ErrInvalidConnection, c.From)
		}
		if _, ok := g.nodes[c.To]; !ok {
			return nil, fmt.Errorf("%w: to %q", domain.ErrInvalidConnection, c.To)
		}
		g.outgoing[c.From] = append(g.outgoing[c.From], c)
	}

	if cycle := g.findCycle(); cycle != "" {
		return nil, fmt.Errorf("%w: through node %q", domain.ErrCycleDetected, cycle)
	}
	return g, nil
}

// findCycle runs a colouring DFS from every node and returns a node on a
// cycle, or "".
func (g *graph) findCycle() string {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int, len(g.nodes))

	var visit func(id string) string
	visit = func(id string) string {
		state[id] = inProgress
		for _, c := range g.outgoing[id] {
			switch state[c.To] {
			case inProgress:
				return c.To
			case unvisited:
				if found := visit(c.To); found != "" {
					return found
				}
			}
		}
		state[id] = done
		return ""
	}

	for id := range g.nodes {
		if state[id] == unvisited {
			if found := visit(id); found != "" {
				return found
			}
		}
	}
	return ""
}
