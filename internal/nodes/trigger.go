package nodes

import (
	"context"
	"maps"

	"go-jobflow/internal/domain"
)

// TriggerNode is the entry point of a walk. It hands the run input to the
// first downstream node unchanged.
type TriggerNode struct {
	Tag         domain.NodeType
	Description string
}

func (n *TriggerNode) Execute(_ context.Context, _ domain.Node, input map[string]any, _ *domain.ExecutionContext) (map[string]any, error) {
	out := make(map[string]any, len(input))
	maps.Copy(out, input)
	return out, nil
}

func (n *TriggerNode) Metadata() Metadata {
	md := DefaultMetadata(n.Tag)
	md.Description = n.Description
	md.Inputs = []string{}
	return md
}
