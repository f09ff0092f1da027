package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ExecutionStatus string

const (
	ExecutionQueued    ExecutionStatus = "QUEUED"
	ExecutionRunning   ExecutionStatus = "RUNNING"
	ExecutionCompleted ExecutionStatus = "COMPLETED"
	ExecutionFailed    ExecutionStatus = "FAILED"
	ExecutionCancelled ExecutionStatus = "CANCELLED"
)

// ActiveExecutionStatuses count against a workflow's concurrency limit.
var ActiveExecutionStatuses = []ExecutionStatus{ExecutionQueued, ExecutionRunning}

func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed || s == ExecutionCancelled
}

type TriggerSource string

const (
	TriggeredManually   TriggerSource = "manual"
	TriggeredBySchedule TriggerSource = "schedule"
	TriggeredByWebhook  TriggerSource = "webhook"
	TriggeredByRetry    TriggerSource = "retry"
)

// ExecutionError is the failure detail attached to a FAILED or CANCELLED run.
type ExecutionError struct {
	Message  string   `json:"message"`
	NodeID   string   `json:"nodeId,omitempty"`
	NodeType NodeType `json:"nodeType,omitempty"`
	Stack    string   `json:"stack,omitempty"`
}

func (e ExecutionError) Value() (driver.Value, error) {
	return json.Marshal(e)
}

func (e *ExecutionError) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("execution error: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, e)
}

type WorkflowExecution struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key;" json:"id"`
	WorkflowID uuid.UUID       `gorm:"type:uuid;index;not null" json:"workflowId"`
	UserID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"userId"`
	Status     ExecutionStatus `gorm:"type:varchar(20);index;default:'QUEUED'" json:"status"`

	Input  datatypes.JSONMap `gorm:"type:jsonb" json:"input"`
	Output datatypes.JSONMap `gorm:"type:jsonb" json:"output,omitempty"`
	Error  *ExecutionError   `gorm:"type:jsonb" json:"error,omitempty"`

	CompletedNodes datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"completedNodes"`
	FailedNodes    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"failedNodes"`

	TriggeredBy TriggerSource     `gorm:"type:varchar(20);default:'manual'" json:"triggeredBy"`
	Attempt     int               `gorm:"default:0" json:"attempt"`
	RetryOf     *uuid.UUID        `gorm:"type:uuid" json:"retryOf,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`

	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	// Duration is the wall time of the walk in milliseconds.
	Duration int64 `gorm:"default:0" json:"duration"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// --- FACTORY ---
func NewExecution(wf *Workflow, userID uuid.UUID, input map[string]any, triggeredBy TriggerSource) *WorkflowExecution {
	if input == nil {
		input = map[string]any{}
	}
	if triggeredBy == "" {
		triggeredBy = TriggeredManually
	}
	now := time.Now()
	return &WorkflowExecution{
		ID:             uuid.New(),
		WorkflowID:     wf.ID,
		UserID:         userID,
		Status:         ExecutionQueued,
		Input:          input,
		CompletedNodes: []string{},
		FailedNodes:    []string{},
		TriggeredBy:    triggeredBy,
		Metadata: datatypes.JSONMap{
			"workflowName":    wf.Name,
			"workflowVersion": wf.UpdatedAt.UTC().Format(time.RFC3339Nano),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ExecutionResult is the terminal transition applied once a walk ends.
type ExecutionResult struct {
	Status         ExecutionStatus
	Output         map[string]any
	Error          *ExecutionError
	CompletedNodes []string
	FailedNodes    []string
	CompletedAt    time.Time
	Duration       time.Duration
}

type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogError LogLevel = "error"
)

// ExecutionLog is an append-only trace entry. Every node attempt produces a
// start entry and a completion or failure entry.
type ExecutionLog struct {
	ID          uuid.UUID         `gorm:"type:uuid;primary_key;" json:"id"`
	ExecutionID uuid.UUID         `gorm:"type:uuid;index;not null" json:"executionId"`
	NodeID      string            `gorm:"type:varchar(100);index" json:"nodeId"`
	NodeName    string            `gorm:"type:varchar(200)" json:"nodeName"`
	NodeType    NodeType          `gorm:"type:varchar(50)" json:"nodeType"`
	Level       LogLevel          `gorm:"type:varchar(10)" json:"level"`
	Message     string            `gorm:"type:text" json:"message"`
	Data        datatypes.JSONMap `gorm:"type:jsonb" json:"data,omitempty"`
	Timestamp   time.Time         `gorm:"index" json:"timestamp"`
}

// ExecutionDetails is the read model returned by status queries.
type ExecutionDetails struct {
	Execution WorkflowExecution `json:"execution"`
	Logs      []ExecutionLog    `json:"logs"`
}
