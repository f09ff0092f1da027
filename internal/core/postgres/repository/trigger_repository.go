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

type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository creates a new instance of ScheduleRepository
func NewScheduleRepository(db *gorm.DB) ports.ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, s *domain.Schedule) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *scheduleRepository) ListActive(ctx context.Context) ([]domain.Schedule, error) {
	var schedules []domain.Schedule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&schedules).Error
	return schedules, err
}

func (r *scheduleRepository) MarkRun(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Schedule{}).
		Where("id = ?", id).
		Update("last_run_at", at).Error
}

type webhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository creates a new instance of WebhookRepository
func NewWebhookRepository(db *gorm.DB) ports.WebhookRepository {
	return &webhookRepository{db: db}
}

func (r *webhookRepository) Create(ctx context.Context, w *domain.Webhook) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *webhookRepository) FindActiveByPath(ctx context.Context, path string) (*domain.Webhook, error) {
	var w domain.Webhook
	err := r.db.WithContext(ctx).
		Where("path = ? AND is_active = ?", path, true).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrWebhookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *webhookRepository) RecordTrigger(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Webhook{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"total_triggers":    gorm.Expr("total_triggers + ?", 1),
			"last_triggered_at": at,
		}).Error
}
