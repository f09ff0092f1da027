package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"
	"go-jobflow/internal/metrics"

	"github.com/google/uuid"
)

type Worker struct {
	workerID string
	queue    ports.TaskQueue
	repo     ports.TaskRepository
	eventBus ports.EventBus
	registry TaskRegistry
	metrics  *metrics.Recorder
	logger   *slog.Logger

	wg sync.WaitGroup
}

func NewWorker(q ports.TaskQueue, r ports.TaskRepository, bus ports.EventBus, reg TaskRegistry, m *metrics.Recorder, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()
	return &Worker{
		workerID: id,
		queue:    q,
		repo:     r,
		eventBus: bus,
		registry: reg,
		metrics:  m,
		logger:   logger.With("workerId", id),
	}
}

// ProcessNextTask handles exactly ONE task lifecycle
func (w *Worker) ProcessNextTask(ctx context.Context) {
	// 1. POP: Wait until a task is available
	taskIDStr, err := w.queue.Pop(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Error("Worker error popping from queue", "error", err)
		}
		return
	}

	// 2. FETCH: Get the full task data from the store
	taskID, err := uuid.Parse(taskIDStr)
	if err != nil {
		w.logger.Error("Worker failed to parse task ID", "taskId", taskIDStr, "error", err)
		return
	}

	task, err := w.repo.FindTaskByID(ctx, taskID)
	if err != nil {
		w.logger.Error("Worker failed to find task", "taskId", taskIDStr, "error", err)
		return
	}
	if task.Status != domain.StatusQueued && task.Status != domain.StatusPending {
		w.logger.Warn("Worker skipping task that is not waiting", "taskId", task.ID, "status", task.Status)
		return
	}
	logger := w.logger.With("taskId", task.ID, "taskType", task.Type)

	// 3. CLAIM: Attempt to claim the task with optimistic locking
	if err := w.repo.ClaimTask(ctx, task.ID, w.workerID, task.Version); err != nil {
		logger.Info("Worker failed to claim task, already claimed by another worker", "error", err)
		return
	}
	// Version was incremented by the claim
	task.Version++
	logger.Debug("Worker claimed task")

	// 4. EXECUTE: Find the right handler and run it
	handler, exists := w.registry[task.Type]
	if !exists {
		logger.Error("Worker unknown task type")
		w.fail(ctx, task, "unknown task type")
		return
	}

	output, err := handler(ctx, task)
	if err != nil {
		if task.CanRetry() {
			logger.Warn("Worker retrying task", "retry", task.RetryCount+1, "maxRetries", task.MaxRetries, "error", err)
			if retryErr := w.repo.IncrementRetryCount(ctx, task.ID, task.Version); retryErr != nil {
				logger.Error("Worker failed to increment retry count", "error", retryErr)
				return
			}
			if pushErr := w.queue.Push(ctx, task.ID.String()); pushErr != nil {
				logger.Error("Worker failed to push task back to queue", "error", pushErr)
			}
			return
		}

		logger.Error("Worker task exhausted all retries, marking as failed", "error", err)
		w.fail(ctx, task, err.Error())
		return
	}

	// 5. COMPLETE: Save output and publish event
	if err := w.repo.MarkCompleted(ctx, task.ID, output); err != nil {
		logger.Error("Worker failed to mark task completed", "error", err)
		return
	}
	w.metrics.TaskProcessed(string(task.Type), string(domain.StatusCompleted))
	w.publish(ctx, domain.Event{
		Type:   domain.EventTaskCompleted,
		TaskID: task.ID.String(),
		Status: string(domain.StatusCompleted),
	})
	logger.Info("Worker successfully finished task")
}

func (w *Worker) fail(ctx context.Context, task *domain.Task, msg string) {
	if err := w.repo.MarkFailed(ctx, task.ID, msg); err != nil {
		w.logger.Error("Worker failed to mark task failed", "taskId", task.ID, "error", err)
	}
	w.metrics.TaskProcessed(string(task.Type), string(domain.StatusFailed))
	w.publish(ctx, domain.Event{
		Type:   domain.EventTaskFailed,
		TaskID: task.ID.String(),
		Status: string(domain.StatusFailed),
		Error:  msg,
	})
}

func (w *Worker) publish(ctx context.Context, event domain.Event) {
	if w.eventBus == nil {
		return
	}
	if err := w.eventBus.Publish(context.WithoutCancel(ctx), event); err != nil {
		w.logger.Warn("Worker failed to publish event", "type", event.Type, "error", err)
	}
}

// StartPool launches multiple concurrent worker loops. Wait blocks until
// they have all returned after ctx is done.
func (w *Worker) StartPool(ctx context.Context, concurrency int) {
	w.logger.Info("Starting worker pool", "concurrency", concurrency)

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go func(threadID int) {
			defer w.wg.Done()
			for {
				select {
				case <-ctx.Done():
					w.logger.Debug("Worker thread shutting down", "thread", threadID)
					return
				default:
					w.ProcessNextTask(ctx)
				}
			}
		}(i)
	}
}

func (w *Worker) Wait() {
	w.wg.Wait()
}
