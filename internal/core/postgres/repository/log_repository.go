package repository

import (
	"context"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type logRepository struct {
	db *gorm.DB
}

// NewLogRepository creates a new instance of LogRepository
func NewLogRepository(db *gorm.DB) ports.LogRepository {
	return &logRepository{db: db}
}

func (r *logRepository) Append(ctx context.Context, entry *domain.ExecutionLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *logRepository) ListByExecution(ctx context.Context, executionID uuid.UUID) ([]domain.ExecutionLog, error) {
	var logs []domain.ExecutionLog
	err := r.db.WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("timestamp ASC").
		Find(&logs).Error
	return logs, err
}
