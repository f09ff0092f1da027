package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Schedule starts a workflow on a cron expression.
type Schedule struct {
	ID             uuid.UUID         `gorm:"type:uuid;primary_key;" json:"id" yaml:"id"`
	WorkflowID     uuid.UUID         `gorm:"type:uuid;index;not null" json:"workflowId" yaml:"workflowId"`
	UserID         uuid.UUID         `gorm:"type:uuid;index;not null" json:"userId" yaml:"userId"`
	CronExpression string            `gorm:"type:varchar(100);not null" json:"cronExpression" yaml:"cronExpression"`
	Timezone       string            `gorm:"type:varchar(64);default:'UTC'" json:"timezone" yaml:"timezone"`
	Input          datatypes.JSONMap `gorm:"type:jsonb" json:"input,omitempty" yaml:"input,omitempty"`
	IsActive       bool              `gorm:"default:true;index" json:"isActive" yaml:"isActive"`
	LastRunAt      *time.Time        `json:"lastRunAt,omitempty" yaml:"-"`

	CreatedAt time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}

// Webhook starts a workflow when its path receives a request.
type Webhook struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id" yaml:"id"`
	WorkflowID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"workflowId" yaml:"workflowId"`
	Path            string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"path" yaml:"path"`
	IsActive        bool       `gorm:"default:true" json:"isActive" yaml:"isActive"`
	TotalTriggers   int64      `gorm:"default:0" json:"totalTriggers" yaml:"-"`
	LastTriggeredAt *time.Time `json:"lastTriggeredAt,omitempty" yaml:"-"`

	CreatedAt time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"-"`
}
