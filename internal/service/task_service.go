package service

import (
	"context"
	"fmt"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"

	"github.com/google/uuid"
)

// TaskService hands background generation tasks to the worker pool.
type TaskService struct {
	repo  ports.TaskRepository
	queue ports.TaskQueue
}

func NewTaskService(repo ports.TaskRepository, queue ports.TaskQueue) *TaskService {
	return &TaskService{repo: repo, queue: queue}
}

// Submit stores the task as QUEUED and pushes its id on the queue.
func (s *TaskService) Submit(ctx context.Context, userID uuid.UUID, taskType domain.TaskType, input map[string]any) (*domain.Task, error) {
	task := domain.NewTask(userID, taskType, input)
	task.Status = domain.StatusQueued

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	if err := s.queue.Push(ctx, task.ID.String()); err != nil {
		return nil, fmt.Errorf("queue task %s: %w", task.ID, err)
	}
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.repo.FindTaskByID(ctx, id)
}

var _ ports.TaskSubmitter = (*TaskService)(nil)
