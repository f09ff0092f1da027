package repository

import (
	"go-jobflow/internal/domain"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates every table the stores use.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Workflow{},
		&domain.WorkflowExecution{},
		&domain.ExecutionLog{},
		&domain.Task{},
		&domain.Schedule{},
		&domain.Webhook{},
	)
}
