package repository

import (
	"context"
	"errors"
	"time"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type workflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository creates a new instance of WorkflowRepository
func NewWorkflowRepository(db *gorm.DB) ports.WorkflowRepository {
	return &workflowRepository{db: db}
}

func (r *workflowRepository) Create(ctx context.Context, wf *domain.Workflow) error {
	return r.db.WithContext(ctx).Create(wf).Error
}

func (r *workflowRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	var wf domain.Workflow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&wf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWorkflowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

// RecordExecution increments the counters in SQL so concurrent runs never
// lose an update. UpdateColumns leaves updated_at alone, which doubles as the
// workflow version stamped on executions.
func (r *workflowRepository) RecordExecution(ctx context.Context, id uuid.UUID, succeeded bool, at time.Time) error {
	updates := map[string]interface{}{
		"total_executions": gorm.Expr("total_executions + ?", 1),
		"last_executed_at": at,
	}
	if succeeded {
		updates["successful_executions"] = gorm.Expr("successful_executions + ?", 1)
	} else {
		updates["failed_executions"] = gorm.Expr("failed_executions + ?", 1)
	}

	return r.db.WithContext(ctx).
		Model(&domain.Workflow{}).
		Where("id = ?", id).
		UpdateColumns(updates).Error
}
