package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TaskStatus string

const (
	StatusPending   TaskStatus = "PENDING"
	StatusQueued    TaskStatus = "QUEUED"
	StatusRunning   TaskStatus = "RUNNING"
	StatusCompleted TaskStatus = "COMPLETED"
	StatusFailed    TaskStatus = "FAILED"
)

func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// TaskType names a long-running generation job handled by the worker pool.
type TaskType string

const (
	TaskResumeGeneration      TaskType = "RESUME_GENERATION"
	TaskCoverLetterGeneration TaskType = "COVER_LETTER_GENERATION"
	TaskCompanyResearch       TaskType = "COMPANY_RESEARCH"
)

const DefaultTaskMaxRetries = 3

type Task struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"userId"`
	Type       TaskType   `gorm:"type:varchar(50);index;not null" json:"type"`
	Status     TaskStatus `gorm:"type:varchar(20);index;default:'PENDING'" json:"status"`
	RetryCount int        `gorm:"default:0" json:"retryCount"`
	MaxRetries int        `gorm:"default:3" json:"maxRetries"`
	WorkerID   *string    `gorm:"type:varchar(100);index" json:"workerId,omitempty"`
	Version    int        `gorm:"default:1" json:"version"`

	Input  datatypes.JSONMap `gorm:"type:jsonb" json:"input"`
	Output datatypes.JSONMap `gorm:"type:jsonb" json:"output,omitempty"`
	Error  string            `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewTask(userID uuid.UUID, taskType TaskType, input map[string]any) *Task {
	if input == nil {
		input = map[string]any{}
	}
	return &Task{
		ID:         uuid.New(),
		UserID:     userID,
		Type:       taskType,
		Status:     StatusPending,
		MaxRetries: DefaultTaskMaxRetries,
		Version:    1,
		Input:      input,
		CreatedAt:  time.Now(),
	}
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}
