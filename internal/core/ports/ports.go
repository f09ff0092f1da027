package ports

import (
	"context"
	"time"

	"go-jobflow/internal/domain"

	"github.com/google/uuid"
)

// TaskQueue carries background task ids from submitters to the worker pool
type TaskQueue interface {
	// Push a Task UUID to the "To-Do" list
	Push(ctx context.Context, taskID string) error

	// Wait (Block) until a Task UUID is available or ctx is done
	Pop(ctx context.Context) (string, error)
}

// EventBus fans lifecycle events out to subscribers
type EventBus interface {
	Publish(ctx context.Context, event domain.Event) error

	// Subscribe returns a stream of every event published after the call.
	// The channel is closed once ctx is done.
	Subscribe(ctx context.Context) (<-chan domain.Event, error)
}

// WorkflowRepository stores workflow definitions and their run counters
type WorkflowRepository interface {
	Create(ctx context.Context, wf *domain.Workflow) error

	// GetByID returns domain.ErrWorkflowNotFound when absent
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)

	// RecordExecution atomically bumps totalExecutions, the success or
	// failure counter and lastExecutedAt
	RecordExecution(ctx context.Context, id uuid.UUID, succeeded bool, at time.Time) error
}

// ExecutionRepository stores workflow executions
type ExecutionRepository interface {
	// CreateIfBelowLimit inserts the execution only while fewer than limit
	// executions of the same workflow are QUEUED or RUNNING. The count and
	// the insert are one atomic step.
	CreateIfBelowLimit(ctx context.Context, exec *domain.WorkflowExecution, limit int) error

	// GetByID returns domain.ErrExecutionNotFound when absent
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowExecution, error)

	// MarkRunning moves a QUEUED execution to RUNNING
	MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error

	// Finish applies a terminal result if the execution is still QUEUED or
	// RUNNING and reports whether it did
	Finish(ctx context.Context, id uuid.UUID, result domain.ExecutionResult) (bool, error)

	// Cancel moves a QUEUED or RUNNING execution to CANCELLED and reports
	// whether it did
	Cancel(ctx context.Context, id uuid.UUID, at time.Time, reason string) (bool, error)

	ListByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]domain.WorkflowExecution, error)
}

// LogRepository stores per-node execution logs
type LogRepository interface {
	Append(ctx context.Context, entry *domain.ExecutionLog) error

	// ListByExecution returns entries in append order
	ListByExecution(ctx context.Context, executionID uuid.UUID) ([]domain.ExecutionLog, error)
}

// TaskRepository represents the background task repository operations
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error

	// The "Worker Poll" Query
	FindTaskByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// The "Claim" (Optimistic Locking)
	// "Set Status=RUNNING WHERE ID=? AND Version=?"
	ClaimTask(ctx context.Context, taskID uuid.UUID, workerID string, currentVersion int) error

	// Put a claimed task back to QUEUED with one more retry recorded
	IncrementRetryCount(ctx context.Context, taskID uuid.UUID, currentVersion int) error

	MarkCompleted(ctx context.Context, taskID uuid.UUID, output map[string]any) error
	MarkFailed(ctx context.Context, taskID uuid.UUID, errMessage string) error
}

// ScheduleRepository stores cron triggers
type ScheduleRepository interface {
	Create(ctx context.Context, s *domain.Schedule) error
	ListActive(ctx context.Context) ([]domain.Schedule, error)
	MarkRun(ctx context.Context, id uuid.UUID, at time.Time) error
}

// WebhookRepository stores webhook triggers
type WebhookRepository interface {
	Create(ctx context.Context, w *domain.Webhook) error

	// FindActiveByPath returns domain.ErrWebhookNotFound for unknown or
	// inactive paths
	FindActiveByPath(ctx context.Context, path string) (*domain.Webhook, error)

	RecordTrigger(ctx context.Context, id uuid.UUID, at time.Time) error
}

// TaskSubmitter hands long-running generation work to the worker pool
type TaskSubmitter interface {
	Submit(ctx context.Context, userID uuid.UUID, taskType domain.TaskType, input map[string]any) (*domain.Task, error)
	GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

type JobAnalysisRequest struct {
	JobURL         string `json:"jobUrl,omitempty"`
	JobDescription string `json:"jobDescription,omitempty"`
	ResumeID       string `json:"resumeId,omitempty"`
}

type JobAnalysis struct {
	Score          float64        `json:"score"`
	Recommendation string         `json:"recommendation"`
	Summary        string         `json:"summary,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
}

// JobAnalyzer scores a job posting against the user's profile
type JobAnalyzer interface {
	AnalyzeJob(ctx context.Context, userID uuid.UUID, req JobAnalysisRequest) (*JobAnalysis, error)
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatAgent answers a conversational prompt
type ChatAgent interface {
	Chat(ctx context.Context, userID uuid.UUID, message string, history []ChatMessage) (string, error)
}

// ContentGenerator produces the documents behind background tasks
type ContentGenerator interface {
	Generate(ctx context.Context, userID uuid.UUID, taskType domain.TaskType, input map[string]any) (map[string]any, error)
}
