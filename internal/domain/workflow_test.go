package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeType(t *testing.T) {
	tests := []struct {
		tag      NodeType
		trigger  bool
		category string
	}{
		{"TRIGGER_MANUAL", true, "trigger"},
		{"AI_AGENT_ANALYZE", false, "ai"},
		{"CONDITION_IF", false, "condition"},
		{"DELAY", false, "delay"},
	}
	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			assert.Equal(t, tt.trigger, tt.tag.IsTrigger())
			assert.Equal(t, tt.category, tt.tag.Category())
		})
	}
}

func TestNodeLabel(t *testing.T) {
	assert.Equal(t, "Score it", Node{Name: "Score it", Type: "AI_AGENT_ANALYZE"}.Label())
	assert.Equal(t, "From config", Node{Type: "DELAY", Config: map[string]any{"name": "From config"}}.Label())
	assert.Equal(t, "DELAY", Node{Type: "DELAY"}.Label())

	assert.True(t, Node{Type: "TRIGGER_WEBHOOK"}.IsEntry())
	assert.True(t, Node{Type: "MERGE_DATA", IsStart: true}.IsEntry())
	assert.False(t, Node{Type: "MERGE_DATA"}.IsEntry())
}

func TestNewWorkflowDefaults(t *testing.T) {
	wf := NewWorkflow(uuid.New(), "apply", []Node{{ID: "t", Type: "TRIGGER_MANUAL"}}, nil)

	assert.Equal(t, WorkflowDraft, wf.Status)
	assert.True(t, wf.CanExecute())
	assert.True(t, wf.RetryOnFailure)
	assert.Equal(t, DefaultMaxRetries, wf.RetryLimit())
	assert.Equal(t, 1, wf.ConcurrencyLimit())

	wf.MaxConcurrentExecutions = 0
	wf.MaxRetries = -1
	assert.Equal(t, DefaultMaxConcurrentExecutions, wf.ConcurrencyLimit())
	assert.Equal(t, 0, wf.RetryLimit())

	wf.Status = WorkflowArchived
	assert.False(t, wf.CanExecute())

	n, ok := wf.NodeByID("t")
	require.True(t, ok)
	assert.Equal(t, NodeType("TRIGGER_MANUAL"), n.Type)
	_, ok = wf.NodeByID("missing")
	assert.False(t, ok)
}

func TestWorkflowValidate(t *testing.T) {
	valid := func() *Workflow {
		return NewWorkflow(uuid.New(), "apply", []Node{{ID: "t", Type: "TRIGGER_MANUAL"}}, []Connection{})
	}
	require.NoError(t, valid().Validate())

	tests := map[string]func(*Workflow){
		"missing name":         func(w *Workflow) { w.Name = "" },
		"missing user":         func(w *Workflow) { w.UserID = uuid.Nil },
		"unknown status":       func(w *Workflow) { w.Status = "PAUSED" },
		"node without id":      func(w *Workflow) { w.Nodes = []Node{{Type: "TRIGGER_MANUAL"}} },
		"connection no to":     func(w *Workflow) { w.Connections = []Connection{{From: "t"}} },
		"negative max retries": func(w *Workflow) { w.MaxRetries = -2 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			wf := valid()
			mutate(wf)

			err := wf.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidDefinition)
			assert.True(t, IsConfigurationError(err))
		})
	}
}

func TestIsConfigurationError(t *testing.T) {
	assert.True(t, IsConfigurationError(fmt.Errorf("%w: through node %q", ErrCycleDetected, "a")))
	assert.True(t, IsConfigurationError(ErrNoTriggerNode))
	assert.False(t, IsConfigurationError(ErrConcurrencyLimitExceeded))
	assert.False(t, IsConfigurationError(&NodeError{NodeID: "a", NodeType: "DELAY", Err: ErrTaskTimeout}))
}

func TestNodeError(t *testing.T) {
	err := &NodeError{NodeID: "gen", NodeType: "RESUME_GENERATE", Err: ErrTaskFailed}

	assert.Equal(t, "node gen (RESUME_GENERATE): background task failed", err.Error())
	assert.True(t, errors.Is(err, ErrTaskFailed))
	assert.Equal(t, "panic: boom", (&PanicError{Value: "boom"}).Error())
}

func TestNewExecution(t *testing.T) {
	wf := NewWorkflow(uuid.New(), "apply", nil, nil)
	wf.UpdatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	user := uuid.New()

	exec := NewExecution(wf, user, nil, "")

	assert.Equal(t, ExecutionQueued, exec.Status)
	assert.Equal(t, wf.ID, exec.WorkflowID)
	assert.Equal(t, user, exec.UserID)
	assert.Equal(t, TriggeredManually, exec.TriggeredBy)
	assert.NotNil(t, exec.Input)
	assert.Empty(t, exec.CompletedNodes)
	assert.Equal(t, "apply", exec.Metadata["workflowName"])
	assert.Equal(t, "2026-03-01T12:00:00Z", exec.Metadata["workflowVersion"])

	assert.False(t, exec.Status.IsTerminal())
	assert.True(t, ExecutionCancelled.IsTerminal())
	assert.True(t, EventExecutionFailed.IsTerminal())
	assert.False(t, EventNodeFailed.IsTerminal())
}

func TestExecutionErrorValueScan(t *testing.T) {
	in := ExecutionError{Message: "boom", NodeID: "a", NodeType: "DELAY"}

	v, err := in.Value()
	require.NoError(t, err)

	var out ExecutionError
	require.NoError(t, out.Scan(v))
	assert.Equal(t, in, out)

	require.NoError(t, out.Scan(`{"message":"from text"}`))
	assert.Equal(t, "from text", out.Message)

	assert.NoError(t, out.Scan(nil))
	assert.Error(t, out.Scan(42))
}

func TestTask(t *testing.T) {
	task := NewTask(uuid.New(), TaskResumeGeneration, nil)

	assert.Equal(t, StatusPending, task.Status)
	assert.Equal(t, 1, task.Version)
	assert.NotNil(t, task.Input)
	assert.True(t, task.CanRetry())

	task.RetryCount = task.MaxRetries
	assert.False(t, task.CanRetry())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
}

func TestExecutionContext(t *testing.T) {
	ec := NewExecutionContext(uuid.New(), uuid.New(), uuid.New(), nil, time.Now())

	ec.SetVariable("analysis", map[string]any{"score": 8})
	v, ok := ec.Variable("analysis")
	require.True(t, ok)
	assert.Equal(t, 8, v.(map[string]any)["score"])

	ec.MarkCompleted("a")
	ec.MarkFailed("b")
	assert.Equal(t, []string{"a"}, ec.CompletedNodes)
	assert.Equal(t, []string{"b"}, ec.FailedNodes)

	assert.False(t, ec.Cancelled())
	ec.Cancel()
	assert.True(t, ec.Cancelled())
}
