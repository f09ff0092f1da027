// Package memory keeps every store in process memory. It backs development
// mode and the engine and service tests.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"

	"github.com/google/uuid"
)

var errTaskConflict = errors.New("task version conflict")

type Store struct {
	mu         sync.RWMutex
	workflows  map[uuid.UUID]domain.Workflow
	executions map[uuid.UUID]domain.WorkflowExecution
	execOrder  []uuid.UUID
	logs       map[uuid.UUID][]domain.ExecutionLog
	tasks      map[uuid.UUID]domain.Task
	schedules  map[uuid.UUID]domain.Schedule
	webhooks   map[uuid.UUID]domain.Webhook
}

func NewStore() *Store {
	return &Store{
		workflows:  make(map[uuid.UUID]domain.Workflow),
		executions: make(map[uuid.UUID]domain.WorkflowExecution),
		logs:       make(map[uuid.UUID][]domain.ExecutionLog),
		tasks:      make(map[uuid.UUID]domain.Task),
		schedules:  make(map[uuid.UUID]domain.Schedule),
		webhooks:   make(map[uuid.UUID]domain.Webhook),
	}
}

func (s *Store) Workflows() ports.WorkflowRepository   { return workflowRepo{s} }
func (s *Store) Executions() ports.ExecutionRepository { return executionRepo{s} }
func (s *Store) Logs() ports.LogRepository             { return logRepo{s} }
func (s *Store) Tasks() ports.TaskRepository           { return taskRepo{s} }
func (s *Store) Schedules() ports.ScheduleRepository   { return scheduleRepo{s} }
func (s *Store) Webhooks() ports.WebhookRepository     { return webhookRepo{s} }

type workflowRepo struct{ *Store }

func (r workflowRepo) Create(_ context.Context, wf *domain.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wf.ID == uuid.Nil {
		wf.ID = uuid.New()
	}
	now := time.Now()
	if wf.CreatedAt.IsZero() {
		wf.CreatedAt = now
	}
	if wf.UpdatedAt.IsZero() {
		wf.UpdatedAt = now
	}
	r.workflows[wf.ID] = cloneWorkflow(*wf)
	return nil
}

func (r workflowRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	wf, ok := r.workflows[id]
	if !ok {
		return nil, domain.ErrWorkflowNotFound
	}
	wf = cloneWorkflow(wf)
	return &wf, nil
}

func (r workflowRepo) RecordExecution(_ context.Context, id uuid.UUID, succeeded bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	wf, ok := r.workflows[id]
	if !ok {
		return domain.ErrWorkflowNotFound
	}
	wf.TotalExecutions++
	if succeeded {
		wf.SuccessfulExecutions++
	} else {
		wf.FailedExecutions++
	}
	wf.LastExecutedAt = &at
	r.workflows[id] = wf
	return nil
}

type executionRepo struct{ *Store }

func (r executionRepo) CreateIfBelowLimit(_ context.Context, exec *domain.WorkflowExecution, limit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workflows[exec.WorkflowID]; !ok {
		return domain.ErrWorkflowNotFound
	}
	active := 0
	for _, e := range r.executions {
		if e.WorkflowID == exec.WorkflowID && !e.Status.IsTerminal() {
			active++
		}
	}
	if active >= limit {
		return domain.ErrConcurrencyLimitExceeded
	}
	r.executions[exec.ID] = cloneExecution(*exec)
	r.execOrder = append(r.execOrder, exec.ID)
	return nil
}

func (r executionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executions[id]
	if !ok {
		return nil, domain.ErrExecutionNotFound
	}
	e = cloneExecution(e)
	return &e, nil
}

func (r executionRepo) MarkRunning(_ context.Context, id uuid.UUID, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.executions[id]
	if !ok {
		return domain.ErrExecutionNotFound
	}
	if e.Status != domain.ExecutionQueued {
		return nil
	}
	e.Status = domain.ExecutionRunning
	e.StartedAt = &startedAt
	e.UpdatedAt = time.Now()
	r.executions[id] = e
	return nil
}

func (r executionRepo) Finish(_ context.Context, id uuid.UUID, res domain.ExecutionResult) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.executions[id]
	if !ok {
		return false, domain.ErrExecutionNotFound
	}
	if e.Status.IsTerminal() {
		return false, nil
	}
	completedAt := res.CompletedAt
	e.Status = res.Status
	e.Output = maps.Clone(res.Output)
	e.Error = res.Error
	e.CompletedNodes = slices.Clone(res.CompletedNodes)
	e.FailedNodes = slices.Clone(res.FailedNodes)
	e.CompletedAt = &completedAt
	e.Duration = res.Duration.Milliseconds()
	e.UpdatedAt = time.Now()
	r.executions[id] = e
	return true, nil
}

func (r executionRepo) Cancel(_ context.Context, id uuid.UUID, at time.Time, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.executions[id]
	if !ok {
		return false, domain.ErrExecutionNotFound
	}
	if e.Status.IsTerminal() {
		return false, nil
	}
	e.Status = domain.ExecutionCancelled
	e.CompletedAt = &at
	e.Error = &domain.ExecutionError{Message: reason}
	if e.StartedAt != nil {
		e.Duration = at.Sub(*e.StartedAt).Milliseconds()
	}
	e.UpdatedAt = time.Now()
	r.executions[id] = e
	return true, nil
}

func (r executionRepo) ListByWorkflow(_ context.Context, workflowID uuid.UUID) ([]domain.WorkflowExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.WorkflowExecution
	for _, id := range r.execOrder {
		if e := r.executions[id]; e.WorkflowID == workflowID {
			out = append(out, cloneExecution(e))
		}
	}
	return out, nil
}

type logRepo struct{ *Store }

func (r logRepo) Append(_ context.Context, entry *domain.ExecutionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	r.logs[entry.ExecutionID] = append(r.logs[entry.ExecutionID], *entry)
	return nil
}

func (r logRepo) ListByExecution(_ context.Context, executionID uuid.UUID) ([]domain.ExecutionLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.logs[executionID]), nil
}

type taskRepo struct{ *Store }

func (r taskRepo) Create(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = *task
	return nil
}

func (r taskRepo) FindTaskByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return &t, nil
}

func (r taskRepo) ClaimTask(_ context.Context, taskID uuid.UUID, workerID string, currentVersion int) error {
	return r.update(taskID, currentVersion, func(t *domain.Task) {
		t.Status = domain.StatusRunning
		t.WorkerID = &workerID
	})
}

func (r taskRepo) IncrementRetryCount(_ context.Context, taskID uuid.UUID, currentVersion int) error {
	return r.update(taskID, currentVersion, func(t *domain.Task) {
		t.Status = domain.StatusQueued
		t.RetryCount++
		t.WorkerID = nil
	})
}

func (r taskRepo) MarkCompleted(_ context.Context, taskID uuid.UUID, output map[string]any) error {
	return r.update(taskID, -1, func(t *domain.Task) {
		t.Status = domain.StatusCompleted
		t.Output = output
	})
}

func (r taskRepo) MarkFailed(_ context.Context, taskID uuid.UUID, errMessage string) error {
	return r.update(taskID, -1, func(t *domain.Task) {
		t.Status = domain.StatusFailed
		t.Error = errMessage
	})
}

// update applies fn when the stored version matches; a negative version
// skips the check.
func (r taskRepo) update(id uuid.UUID, version int, fn func(*domain.Task)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if version >= 0 && t.Version != version {
		return errTaskConflict
	}
	fn(&t)
	t.Version++
	t.UpdatedAt = time.Now()
	r.tasks[id] = t
	return nil
}

type scheduleRepo struct{ *Store }

func (r scheduleRepo) Create(_ context.Context, s *domain.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.schedules[s.ID] = *s
	return nil
}

func (r scheduleRepo) ListActive(_ context.Context) ([]domain.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Schedule
	for _, s := range r.schedules {
		if s.IsActive {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b domain.Schedule) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (r scheduleRepo) MarkRun(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[id]
	if !ok {
		return nil
	}
	s.LastRunAt = &at
	r.schedules[id] = s
	return nil
}

type webhookRepo struct{ *Store }

func (r webhookRepo) Create(_ context.Context, w *domain.Webhook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	r.webhooks[w.ID] = *w
	return nil
}

func (r webhookRepo) FindActiveByPath(_ context.Context, path string) (*domain.Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.webhooks {
		if w.Path == path && w.IsActive {
			return &w, nil
		}
	}
	return nil, domain.ErrWebhookNotFound
}

func (r webhookRepo) RecordTrigger(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.webhooks[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}
	w.TotalTriggers++
	w.LastTriggeredAt = &at
	r.webhooks[id] = w
	return nil
}

func cloneWorkflow(wf domain.Workflow) domain.Workflow {
	wf.Nodes = slices.Clone(wf.Nodes)
	wf.Connections = slices.Clone(wf.Connections)
	return wf
}

func cloneExecution(e domain.WorkflowExecution) domain.WorkflowExecution {
	e.Input = maps.Clone(e.Input)
	e.Output = maps.Clone(e.Output)
	e.Metadata = maps.Clone(e.Metadata)
	e.CompletedNodes = slices.Clone(e.CompletedNodes)
	e.FailedNodes = slices.Clone(e.FailedNodes)
	if e.Error != nil {
		errCopy := *e.Error
		e.Error = &errCopy
	}
	return e
}
