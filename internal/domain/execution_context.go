package domain

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ExecutionContext is the transient state of one run. Only the goroutine
// walking the run mutates it; the cancellation flag is safe to set from any
// goroutine.
type ExecutionContext struct {
	ExecutionID uuid.UUID
	WorkflowID  uuid.UUID
	UserID      uuid.UUID

	Input     map[string]any
	Output    map[string]any
	Variables map[string]any

	CompletedNodes []string
	FailedNodes    []string
	CurrentNodeID  string
	StartTime      time.Time

	cancelled atomic.Bool
}

func NewExecutionContext(executionID, workflowID, userID uuid.UUID, input map[string]any, start time.Time) *ExecutionContext {
	if input == nil {
		input = map[string]any{}
	}
	return &ExecutionContext{
		ExecutionID:    executionID,
		WorkflowID:     workflowID,
		UserID:         userID,
		Input:          input,
		Output:         map[string]any{},
		Variables:      map[string]any{},
		CompletedNodes: []string{},
		FailedNodes:    []string{},
		StartTime:      start,
	}
}

func (c *ExecutionContext) SetVariable(name string, value any) {
	c.Variables[name] = value
}

func (c *ExecutionContext) Variable(name string) (any, bool) {
	v, ok := c.Variables[name]
	return v, ok
}

func (c *ExecutionContext) MarkCompleted(nodeID string) {
	c.CompletedNodes = append(c.CompletedNodes, nodeID)
}

func (c *ExecutionContext) MarkFailed(nodeID string) {
	c.FailedNodes = append(c.FailedNodes, nodeID)
}

func (c *ExecutionContext) Cancel() {
	c.cancelled.Store(true)
}

func (c *ExecutionContext) Cancelled() bool {
	return c.cancelled.Load()
}
