package service

import (
	"context"
	"testing"

	"go-jobflow/internal/core/memory"
	"go-jobflow/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskService_Submit(t *testing.T) {
	store := memory.NewStore()
	queue := memory.NewQueue(4)
	svc := NewTaskService(store.Tasks(), queue)

	task, err := svc.Submit(context.Background(), uuid.New(), domain.TaskCoverLetterGeneration, map[string]any{"jobId": "j1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, task.Status)

	id, err := queue.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, task.ID.String(), id)

	stored, err := svc.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, stored.Status)
	assert.Equal(t, "j1", stored.Input["jobId"])

	_, err = svc.GetTask(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
