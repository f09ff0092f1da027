package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"
	"go-jobflow/internal/engine"
	"go-jobflow/internal/nodes"

	"github.com/google/uuid"
)

// Runner is the part of the executor the facade drives.
type Runner interface {
	ExecuteWorkflow(ctx context.Context, workflowID, userID uuid.UUID, input map[string]any, triggeredBy domain.TriggerSource) (*engine.Handle, error)
	GetExecutionStatus(ctx context.Context, executionID uuid.UUID) (*domain.ExecutionDetails, error)
	CancelExecution(ctx context.Context, executionID uuid.UUID) error
}

// TestNodeResult is the outcome of running one node outside a workflow.
type TestNodeResult struct {
	Success     bool           `json:"success"`
	ExecutionID string         `json:"executionId"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	Duration    int64          `json:"duration"`
	ExecutedAt  time.Time      `json:"executedAt"`
}

type WorkflowService interface {
	ExecuteWorkflow(ctx context.Context, workflowID, userID uuid.UUID, input map[string]any) (*engine.Handle, error)
	GetExecution(ctx context.Context, executionID, userID uuid.UUID) (*domain.ExecutionDetails, error)
	CancelExecution(ctx context.Context, executionID, userID uuid.UUID) error
	SubscribeExecution(ctx context.Context, executionID, userID uuid.UUID) (<-chan domain.Event, error)
	NodeCatalog() []nodes.Metadata
	TestNode(ctx context.Context, userID uuid.UUID, node domain.Node, input map[string]any) *TestNodeResult
	RegisterWebhook(ctx context.Context, workflowID, userID uuid.UUID) (*domain.Webhook, error)
	ExecuteViaWebhook(ctx context.Context, path string, input map[string]any) (*engine.Handle, error)
}

// The Implementation
type workflowService struct {
	workflows  ports.WorkflowRepository
	executions ports.ExecutionRepository
	webhooks   ports.WebhookRepository
	runner     Runner
	registry   *nodes.Registry
	bus        ports.EventBus
	logger     *slog.Logger
}

// Constructor
func NewWorkflowService(
	workflows ports.WorkflowRepository,
	executions ports.ExecutionRepository,
	webhooks ports.WebhookRepository,
	runner Runner,
	registry *nodes.Registry,
	bus ports.EventBus,
	logger *slog.Logger,
) WorkflowService {
	if logger == nil {
		logger = slog.Default()
	}
	return &workflowService{
		workflows:  workflows,
		executions: executions,
		webhooks:   webhooks,
		runner:     runner,
		registry:   registry,
		bus:        bus,
		logger:     logger,
	}
}

// ExecuteWorkflow starts a manual run. Workflows owned by someone else are
// reported as not found.
func (s *workflowService) ExecuteWorkflow(ctx context.Context, workflowID, userID uuid.UUID, input map[string]any) (*engine.Handle, error) {
	wf, err := s.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.UserID != userID {
		return nil, domain.ErrWorkflowNotFound
	}
	return s.runner.ExecuteWorkflow(ctx, workflowID, userID, input, domain.TriggeredManually)
}

func (s *workflowService) GetExecution(ctx context.Context, executionID, userID uuid.UUID) (*domain.ExecutionDetails, error) {
	if _, err := s.ownedExecution(ctx, executionID, userID); err != nil {
		return nil, err
	}
	return s.runner.GetExecutionStatus(ctx, executionID)
}

func (s *workflowService) CancelExecution(ctx context.Context, executionID, userID uuid.UUID) error {
	if _, err := s.ownedExecution(ctx, executionID, userID); err != nil {
		return err
	}
	return s.runner.CancelExecution(ctx, executionID)
}

// SubscribeExecution streams the lifecycle events of one execution. The
// stream closes after the terminal event or when ctx is done.
func (s *workflowService) SubscribeExecution(ctx context.Context, executionID, userID uuid.UUID) (<-chan domain.Event, error) {
	exec, err := s.ownedExecution(ctx, executionID, userID)
	if err != nil {
		return nil, err
	}
	if s.bus == nil {
		return nil, errors.New("event bus not configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	events, err := s.bus.Subscribe(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to events: %w", err)
	}
	// Re-read after subscribing so a run finishing in between is not missed.
	if current, err := s.executions.GetByID(ctx, executionID); err == nil {
		exec = current
	}

	out := make(chan domain.Event)
	go func() {
		defer close(out)
		defer cancel()

		// A run that finished before the subscription gets one synthetic
		// terminal event.
		if exec.Status.IsTerminal() {
			select {
			case out <- terminalEvent(exec):
			case <-ctx.Done():
			}
			return
		}

		id := executionID.String()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				if event.ExecutionID != id {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
				if event.Type.IsTerminal() {
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *workflowService) NodeCatalog() []nodes.Metadata {
	return s.registry.AllMetadata()
}

// TestNode runs a single node with a throw-away context. Failures are
// reported in the result, never as an error.
func (s *workflowService) TestNode(ctx context.Context, userID uuid.UUID, node domain.Node, input map[string]any) *TestNodeResult {
	start := time.Now()
	result := &TestNodeResult{
		ExecutionID: fmt.Sprintf("test_%d", start.UnixMilli()),
		ExecutedAt:  start.UTC(),
	}
	if input == nil {
		input = map[string]any{}
	}

	output, err := s.testNode(ctx, userID, node, input, start)
	result.Duration = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.Result = output
	return result
}

func (s *workflowService) testNode(ctx context.Context, userID uuid.UUID, node domain.Node, input map[string]any, start time.Time) (output map[string]any, err error) {
	if err := s.registry.ValidateNode(node); err != nil {
		return nil, err
	}
	executor, _ := s.registry.Executor(node.Type)

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	ec := domain.NewExecutionContext(uuid.Nil, uuid.Nil, userID, input, start)
	output, err = executor.Execute(ctx, node, input, ec)
	if err != nil {
		return nil, err
	}
	if output == nil {
		output = map[string]any{}
	}
	return output, nil
}

// RegisterWebhook creates an active webhook with a fresh random path.
func (s *workflowService) RegisterWebhook(ctx context.Context, workflowID, userID uuid.UUID) (*domain.Webhook, error) {
	wf, err := s.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.UserID != userID {
		return nil, domain.ErrWorkflowNotFound
	}
	path, err := NewWebhookPath()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	hook := &domain.Webhook{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		Path:       path,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.webhooks.Create(ctx, hook); err != nil {
		return nil, fmt.Errorf("create webhook: %w", err)
	}
	return hook, nil
}

// ExecuteViaWebhook starts the workflow behind an active webhook path as the
// workflow's owner. Only accepted runs count as triggers.
func (s *workflowService) ExecuteViaWebhook(ctx context.Context, path string, input map[string]any) (*engine.Handle, error) {
	hook, err := s.webhooks.FindActiveByPath(ctx, path)
	if err != nil {
		return nil, err
	}
	wf, err := s.workflows.GetByID(ctx, hook.WorkflowID)
	if err != nil {
		return nil, err
	}
	handle, err := s.runner.ExecuteWorkflow(ctx, wf.ID, wf.UserID, input, domain.TriggeredByWebhook)
	if err != nil {
		return nil, err
	}
	if err := s.webhooks.RecordTrigger(ctx, hook.ID, time.Now()); err != nil {
		s.logger.Warn("Failed to record webhook trigger", "webhookId", hook.ID, "error", err)
	}
	return handle, nil
}

func (s *workflowService) ownedExecution(ctx context.Context, executionID, userID uuid.UUID) (*domain.WorkflowExecution, error) {
	exec, err := s.executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if exec.UserID != userID {
		return nil, domain.ErrExecutionNotFound
	}
	return exec, nil
}

func terminalEvent(exec *domain.WorkflowExecution) domain.Event {
	event := domain.Event{
		ExecutionID: exec.ID.String(),
		WorkflowID:  exec.WorkflowID.String(),
		Status:      string(exec.Status),
		DurationMs:  exec.Duration,
		Timestamp:   exec.UpdatedAt,
	}
	switch exec.Status {
	case domain.ExecutionCompleted:
		event.Type = domain.EventExecutionCompleted
	case domain.ExecutionCancelled:
		event.Type = domain.EventExecutionCancelled
	default:
		event.Type = domain.EventExecutionFailed
	}
	if exec.Error != nil {
		event.NodeID = exec.Error.NodeID
		event.Error = exec.Error.Message
	}
	return event
}

// NewWebhookPath returns 16 random bytes, hex encoded.
func NewWebhookPath() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate webhook path: %w", err)
	}
	return hex.EncodeToString(b), nil
}
