package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-jobflow/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWorkflow(t *testing.T, s *Store, limit int) *domain.Workflow {
	t.Helper()
	wf := domain.NewWorkflow(uuid.New(), "memory", []domain.Node{{ID: "t", Type: "TRIGGER_MANUAL"}}, nil)
	wf.MaxConcurrentExecutions = limit
	require.NoError(t, s.Workflows().Create(context.Background(), wf))
	return wf
}

func TestExecutions_CreateIfBelowLimit_Concurrent(t *testing.T) {
	s := NewStore()
	wf := seedWorkflow(t, s, 3)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exec := domain.NewExecution(wf, wf.UserID, nil, domain.TriggeredManually)
			errs <- s.Executions().CreateIfBelowLimit(context.Background(), exec, wf.ConcurrencyLimit())
		}()
	}
	wg.Wait()
	close(errs)

	created, rejected := 0, 0
	for err := range errs {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, domain.ErrConcurrencyLimitExceeded)
			rejected++
		}
	}
	assert.Equal(t, 3, created)
	assert.Equal(t, 7, rejected)

	list, err := s.Executions().ListByWorkflow(context.Background(), wf.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestExecutions_TerminalStateSetOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	wf := seedWorkflow(t, s, 1)
	exec := domain.NewExecution(wf, wf.UserID, nil, domain.TriggeredManually)
	require.NoError(t, s.Executions().CreateIfBelowLimit(ctx, exec, 1))

	applied, err := s.Executions().Finish(ctx, exec.ID, domain.ExecutionResult{
		Status:         domain.ExecutionCompleted,
		Output:         map[string]any{"ok": true},
		CompletedNodes: []string{"t"},
		CompletedAt:    time.Now(),
		Duration:       15 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = s.Executions().Cancel(ctx, exec.ID, time.Now(), "Cancelled by user")
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := s.Executions().GetByID(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionCompleted, got.Status)
	assert.Equal(t, int64(15), got.Duration)
	assert.Equal(t, []string{"t"}, []string(got.CompletedNodes))
}

func TestExecutions_GetByID_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	wf := seedWorkflow(t, s, 1)
	exec := domain.NewExecution(wf, wf.UserID, map[string]any{"a": 1}, domain.TriggeredManually)
	require.NoError(t, s.Executions().CreateIfBelowLimit(ctx, exec, 1))

	got, err := s.Executions().GetByID(ctx, exec.ID)
	require.NoError(t, err)
	got.Input["a"] = 2

	again, err := s.Executions().GetByID(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Input["a"])
}

func TestWorkflows_RecordExecution(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	wf := seedWorkflow(t, s, 1)

	require.NoError(t, s.Workflows().RecordExecution(ctx, wf.ID, true, time.Now()))
	require.NoError(t, s.Workflows().RecordExecution(ctx, wf.ID, false, time.Now()))

	got, err := s.Workflows().GetByID(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.TotalExecutions)
	assert.Equal(t, int64(1), got.SuccessfulExecutions)
	assert.Equal(t, int64(1), got.FailedExecutions)

	assert.ErrorIs(t, s.Workflows().RecordExecution(ctx, uuid.New(), true, time.Now()), domain.ErrWorkflowNotFound)
}

func TestTasks_ClaimIsOptimistic(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	task := domain.NewTask(uuid.New(), domain.TaskCompanyResearch, nil)
	require.NoError(t, s.Tasks().Create(ctx, task))

	require.NoError(t, s.Tasks().ClaimTask(ctx, task.ID, "a", 1))
	assert.Error(t, s.Tasks().ClaimTask(ctx, task.ID, "b", 1))

	require.NoError(t, s.Tasks().IncrementRetryCount(ctx, task.ID, 2))
	got, err := s.Tasks().FindTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, 3, got.Version)
}

func TestWebhooks_FindActiveByPath(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Webhooks().Create(ctx, &domain.Webhook{Path: "live", IsActive: true}))
	require.NoError(t, s.Webhooks().Create(ctx, &domain.Webhook{Path: "off", IsActive: false}))

	hook, err := s.Webhooks().FindActiveByPath(ctx, "live")
	require.NoError(t, err)
	require.NoError(t, s.Webhooks().RecordTrigger(ctx, hook.ID, time.Now()))

	hook, err = s.Webhooks().FindActiveByPath(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, int64(1), hook.TotalTriggers)

	_, err = s.Webhooks().FindActiveByPath(ctx, "off")
	assert.ErrorIs(t, err, domain.ErrWebhookNotFound)
}
