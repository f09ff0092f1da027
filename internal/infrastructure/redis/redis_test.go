package redis

import (
	"context"
	"testing"
	"time"

	"go-jobflow/internal/domain"
	"go-jobflow/internal/logging"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), addr)
	assert.Error(t, err)
}

func TestRedisQueue_FIFO(t *testing.T) {
	q := NewRedisQueue(newTestClient(t))
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, "task-1"))
	require.NoError(t, q.Push(ctx, "task-2"))

	first, err := q.Pop(ctx)
	require.NoError(t, err)
	second, err := q.Pop(ctx)
	require.NoError(t, err)

	assert.Equal(t, "task-1", first)
	assert.Equal(t, "task-2", second)
}

func TestRedisQueue_PopHonoursContext(t *testing.T) {
	q := NewRedisQueue(newTestClient(t))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.Error(t, err)
}

func TestRedisEventBus_PublishSubscribe(t *testing.T) {
	bus := NewRedisEventBus(newTestClient(t), logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	sent := domain.Event{
		Type:        domain.EventExecutionFailed,
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		NodeID:      "apply",
		Error:       "boom",
	}
	require.NoError(t, bus.Publish(ctx, sent))

	select {
	case got := <-events:
		assert.Equal(t, sent.Type, got.Type)
		assert.Equal(t, sent.ExecutionID, got.ExecutionID)
		assert.Equal(t, "boom", got.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
