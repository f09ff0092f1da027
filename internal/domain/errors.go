package domain

import (
	"errors"
	"fmt"
)

var (
	ErrWorkflowNotFound         = errors.New("workflow not found")
	ErrExecutionNotFound        = errors.New("execution not found")
	ErrTaskNotFound             = errors.New("task not found")
	ErrWebhookNotFound          = errors.New("webhook not found")
	ErrInvalidWorkflowState     = errors.New("workflow is not in an executable state")
	ErrConcurrencyLimitExceeded = errors.New("maximum concurrent executions reached")
	ErrExecutionNotActive       = errors.New("execution is not active")
	ErrInvalidDefinition        = errors.New("invalid workflow definition")

	// Configuration errors, detected before a walk starts.
	ErrEmptyWorkflow        = errors.New("workflow has no nodes")
	ErrNoTriggerNode        = errors.New("no trigger node found in workflow")
	ErrMultipleTriggerNodes = errors.New("workflow has more than one trigger node")
	ErrUnknownNodeType      = errors.New("unknown node type")
	ErrInvalidConnection    = errors.New("connection references an unknown node")
	ErrInvalidNodeConfig    = errors.New("invalid node configuration")
	ErrCycleDetected        = errors.New("workflow graph contains a cycle")

	// Node execution errors.
	ErrTaskTimeout        = errors.New("background task timed out")
	ErrTaskFailed         = errors.New("background task failed")
	ErrExecutionCancelled = errors.New("execution cancelled")
)

var configurationErrors = []error{
	ErrEmptyWorkflow,
	ErrNoTriggerNode,
	ErrMultipleTriggerNodes,
	ErrUnknownNodeType,
	ErrInvalidConnection,
	ErrInvalidNodeConfig,
	ErrCycleDetected,
	ErrInvalidDefinition,
}

// IsConfigurationError reports whether err rejects a workflow definition
// before any node runs.
func IsConfigurationError(err error) bool {
	for _, target := range configurationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// NodeError attributes a failure to the node that produced it.
type NodeError struct {
	NodeID   string
	NodeType NodeType
	Err      error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (%s): %v", e.NodeID, e.NodeType, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// PanicError carries a recovered panic and the stack it was raised on.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
