package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"go-jobflow/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func getTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping repository tests")
	}

	db, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createWorkflow(t *testing.T, db *gorm.DB) *domain.Workflow {
	t.Helper()
	wf := domain.NewWorkflow(uuid.New(), "repo test", []domain.Node{
		{ID: "t", Type: "TRIGGER_MANUAL"},
	}, nil)
	require.NoError(t, NewWorkflowRepository(db).Create(context.Background(), wf))
	return wf
}

func TestWorkflowRepository_GetByID_NotFound(t *testing.T) {
	db := getTestDB(t)

	_, err := NewWorkflowRepository(db).GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestWorkflowRepository_RecordExecution(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()
	repo := NewWorkflowRepository(db)
	wf := createWorkflow(t, db)

	require.NoError(t, repo.RecordExecution(ctx, wf.ID, true, time.Now()))
	require.NoError(t, repo.RecordExecution(ctx, wf.ID, false, time.Now()))

	got, err := repo.GetByID(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.TotalExecutions)
	assert.Equal(t, int64(1), got.SuccessfulExecutions)
	assert.Equal(t, int64(1), got.FailedExecutions)
	assert.NotNil(t, got.LastExecutedAt)
	assert.Len(t, got.Nodes, 1)
}

func TestExecutionRepository_CreateIfBelowLimit(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()
	repo := NewExecutionRepository(db)
	wf := createWorkflow(t, db)

	first := domain.NewExecution(wf, wf.UserID, map[string]any{"score": 8}, domain.TriggeredManually)
	require.NoError(t, repo.CreateIfBelowLimit(ctx, first, 1))

	second := domain.NewExecution(wf, wf.UserID, nil, domain.TriggeredManually)
	err := repo.CreateIfBelowLimit(ctx, second, 1)
	assert.ErrorIs(t, err, domain.ErrConcurrencyLimitExceeded)

	_, err = repo.GetByID(ctx, second.ID)
	assert.ErrorIs(t, err, domain.ErrExecutionNotFound)
}

func TestExecutionRepository_FinishOnlyOnce(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()
	repo := NewExecutionRepository(db)
	wf := createWorkflow(t, db)

	exec := domain.NewExecution(wf, wf.UserID, nil, domain.TriggeredManually)
	require.NoError(t, repo.CreateIfBelowLimit(ctx, exec, 1))
	require.NoError(t, repo.MarkRunning(ctx, exec.ID, time.Now()))

	applied, err := repo.Cancel(ctx, exec.ID, time.Now(), "Cancelled by user")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.Finish(ctx, exec.ID, domain.ExecutionResult{
		Status:      domain.ExecutionCompleted,
		CompletedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := repo.GetByID(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionCancelled, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "Cancelled by user", got.Error.Message)
}

func TestTaskRepository_ClaimTask_VersionConflict(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()
	repo := NewTaskRepository(db)

	task := domain.NewTask(uuid.New(), domain.TaskResumeGeneration, map[string]any{"resumeId": "r1"})
	require.NoError(t, repo.Create(ctx, task))

	require.NoError(t, repo.ClaimTask(ctx, task.ID, "worker-a", task.Version))
	assert.Error(t, repo.ClaimTask(ctx, task.ID, "worker-b", task.Version))

	require.NoError(t, repo.MarkCompleted(ctx, task.ID, map[string]any{"content": "done"}))
	got, err := repo.FindTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "done", got.Output["content"])
}
