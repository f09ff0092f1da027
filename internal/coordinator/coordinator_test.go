package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-jobflow/internal/core/memory"
	"go-jobflow/internal/domain"
	"go-jobflow/internal/engine"
	"go-jobflow/internal/logging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	workflowID  uuid.UUID
	userID      uuid.UUID
	input       map[string]any
	triggeredBy domain.TriggerSource
}

type stubRunner struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (r *stubRunner) ExecuteWorkflow(_ context.Context, workflowID, userID uuid.UUID, input map[string]any, triggeredBy domain.TriggerSource) (*engine.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{workflowID, userID, input, triggeredBy})
	if r.err != nil {
		return nil, r.err
	}
	return &engine.Handle{ExecutionID: uuid.New(), Status: domain.ExecutionQueued}, nil
}

func (r *stubRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newSchedule(expr, tz string) domain.Schedule {
	return domain.Schedule{
		ID:             uuid.New(),
		WorkflowID:     uuid.New(),
		UserID:         uuid.New(),
		CronExpression: expr,
		Timezone:       tz,
		Input:          map[string]any{"query": "golang"},
		IsActive:       true,
		CreatedAt:      time.Now(),
	}
}

func TestCronSpec(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		tz      string
		want    string
		wantErr bool
	}{
		{name: "defaults to UTC", expr: "0 9 * * 1-5", want: "CRON_TZ=UTC 0 9 * * 1-5"},
		{name: "explicit zone", expr: "*/5 * * * *", tz: "UTC", want: "CRON_TZ=UTC */5 * * * *"},
		{name: "bad expression", expr: "every day", wantErr: true},
		{name: "bad zone", expr: "0 9 * * *", tz: "Nowhere/Atlantis", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CronSpec(newSchedule(tt.expr, tt.tz))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFire(t *testing.T) {
	store := memory.NewStore()
	runner := &stubRunner{}
	c := NewCoordinator(store.Schedules(), runner, logging.Discard())

	s := newSchedule("0 9 * * *", "UTC")
	require.NoError(t, store.Schedules().Create(context.Background(), &s))

	c.Fire(context.Background(), s)

	require.Equal(t, 1, runner.count())
	got := runner.calls[0]
	assert.Equal(t, s.WorkflowID, got.workflowID)
	assert.Equal(t, s.UserID, got.userID)
	assert.Equal(t, domain.TriggeredBySchedule, got.triggeredBy)
	assert.Equal(t, "golang", got.input["query"])

	active, err := store.Schedules().ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.NotNil(t, active[0].LastRunAt)
}

func TestFire_RejectedRunIsNotStamped(t *testing.T) {
	store := memory.NewStore()
	runner := &stubRunner{err: errors.New("limit")}
	c := NewCoordinator(store.Schedules(), runner, logging.Discard())

	s := newSchedule("0 9 * * *", "UTC")
	require.NoError(t, store.Schedules().Create(context.Background(), &s))

	c.Fire(context.Background(), s)

	active, err := store.Schedules().ListActive(context.Background())
	require.NoError(t, err)
	assert.Nil(t, active[0].LastRunAt)
}

func TestStart_RegistersAndStops(t *testing.T) {
	store := memory.NewStore()
	runner := &stubRunner{}
	c := NewCoordinator(store.Schedules(), runner, logging.Discard())

	good := newSchedule("@every 20ms", "UTC")
	bad := newSchedule("not a cron", "UTC")
	require.NoError(t, store.Schedules().Create(context.Background(), &good))
	require.NoError(t, store.Schedules().Create(context.Background(), &bad))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return runner.count() > 0 }, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("coordinator did not stop")
	}
}
