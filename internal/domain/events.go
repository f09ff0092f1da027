package domain

import (
	"time"
)

type EventType string

const (
	EventExecutionStarted   EventType = "execution.started"
	EventExecutionCompleted EventType = "execution.completed"
	EventExecutionFailed    EventType = "execution.failed"
	EventExecutionCancelled EventType = "execution.cancelled"
	EventNodeCompleted      EventType = "node.completed"
	EventNodeFailed         EventType = "node.failed"
	EventTaskCompleted      EventType = "task.completed"
	EventTaskFailed         EventType = "task.failed"
)

// IsTerminal reports whether no further events follow for the execution.
func (t EventType) IsTerminal() bool {
	return t == EventExecutionCompleted || t == EventExecutionFailed || t == EventExecutionCancelled
}

// Event is published on the event bus by the executor and the task workers.
type Event struct {
	Type        EventType `json:"type"`
	ExecutionID string    `json:"executionId,omitempty"`
	WorkflowID  string    `json:"workflowId,omitempty"`
	TaskID      string    `json:"taskId,omitempty"`
	NodeID      string    `json:"nodeId,omitempty"`
	NodeType    NodeType  `json:"nodeType,omitempty"`
	Status      string    `json:"status,omitempty"`
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"durationMs,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
