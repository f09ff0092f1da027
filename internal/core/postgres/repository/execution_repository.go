package repository

import (
	"context"
	"errors"
	"time"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type executionRepository struct {
	db *gorm.DB
}

// NewExecutionRepository creates a new instance of ExecutionRepository
func NewExecutionRepository(db *gorm.DB) ports.ExecutionRepository {
	return &executionRepository{db: db}
}

// CreateIfBelowLimit locks the workflow row so that concurrent triggers of
// the same workflow serialize on the count.
func (r *executionRepository) CreateIfBelowLimit(ctx context.Context, exec *domain.WorkflowExecution, limit int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wf domain.Workflow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", exec.WorkflowID).
			First(&wf).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrWorkflowNotFound
		}
		if err != nil {
			return err
		}

		var active int64
		if err := tx.Model(&domain.WorkflowExecution{}).
			Where("workflow_id = ? AND status IN ?", exec.WorkflowID, domain.ActiveExecutionStatuses).
			Count(&active).Error; err != nil {
			return err
		}
		if active >= int64(limit) {
			return domain.ErrConcurrencyLimitExceeded
		}

		return tx.Create(exec).Error
	})
}

func (r *executionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowExecution, error) {
	var exec domain.WorkflowExecution
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&exec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrExecutionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

func (r *executionRepository) MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.WorkflowExecution{}).
		Where("id = ? AND status = ?", id, domain.ExecutionQueued).
		Updates(map[string]interface{}{
			"status":     domain.ExecutionRunning,
			"started_at": startedAt,
		}).Error
}

// Finish only touches executions that are still QUEUED or RUNNING, so the
// terminal status is written exactly once even when cancel races the walk.
func (r *executionRepository) Finish(ctx context.Context, id uuid.UUID, res domain.ExecutionResult) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.WorkflowExecution{}).
		Where("id = ? AND status IN ?", id, domain.ActiveExecutionStatuses).
		Updates(map[string]interface{}{
			"status":          res.Status,
			"output":          datatypes.JSONMap(res.Output),
			"error":           res.Error,
			"completed_nodes": datatypes.JSONSlice[string](res.CompletedNodes),
			"failed_nodes":    datatypes.JSONSlice[string](res.FailedNodes),
			"completed_at":    res.CompletedAt,
			"duration":        res.Duration.Milliseconds(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *executionRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time, reason string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.WorkflowExecution{}).
		Where("id = ? AND status IN ?", id, domain.ActiveExecutionStatuses).
		Updates(map[string]interface{}{
			"status":       domain.ExecutionCancelled,
			"completed_at": at,
			"error":        &domain.ExecutionError{Message: reason},
			"duration": gorm.Expr(
				"COALESCE(CAST(EXTRACT(EPOCH FROM (?::timestamptz - started_at)) * 1000 AS BIGINT), 0)", at),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *executionRepository) ListByWorkflow(ctx context.Context, workflowID uuid.UUID) ([]domain.WorkflowExecution, error) {
	var executions []domain.WorkflowExecution
	err := r.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("created_at ASC").
		Find(&executions).Error
	return executions, err
}
