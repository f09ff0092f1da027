package repository

import (
	"context"
	"errors"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new instance of TaskRepository
func NewTaskRepository(db *gorm.DB) ports.TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) FindTaskByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) ClaimTask(ctx context.Context, taskID uuid.UUID, workerID string, currentVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND version = ?", taskID, currentVersion).
		Updates(map[string]interface{}{
			"status":    domain.StatusRunning,
			"worker_id": workerID,
			"version":   currentVersion + 1,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound // Task was already claimed by another worker
	}

	return nil
}

func (r *taskRepository) IncrementRetryCount(ctx context.Context, taskID uuid.UUID, currentVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND version = ?", taskID, currentVersion).
		Updates(map[string]interface{}{
			"status":      domain.StatusQueued,
			"retry_count": gorm.Expr("retry_count + ?", 1),
			"worker_id":   nil,
			"version":     currentVersion + 1,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *taskRepository) MarkCompleted(ctx context.Context, taskID uuid.UUID, output map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":  domain.StatusCompleted,
			"output":  datatypes.JSONMap(output),
			"version": gorm.Expr("version + ?", 1),
		}).Error
}

func (r *taskRepository) MarkFailed(ctx context.Context, taskID uuid.UUID, errMessage string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ?", taskID).
		Updates(map[string]interface{}{
			"status":  domain.StatusFailed,
			"error":   errMessage,
			"version": gorm.Expr("version + ?", 1),
		}).Error
}
