package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"
	"go-jobflow/internal/metrics"
	"go-jobflow/internal/nodes"
	"go-jobflow/internal/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const cancelledByUser = "Cancelled by user"

// Handle is returned synchronously when a run has been queued.
type Handle struct {
	ExecutionID uuid.UUID              `json:"executionId"`
	Status      domain.ExecutionStatus `json:"status"`
	Message     string                 `json:"message"`
}

// Executor starts, tracks and cancels workflow runs. Each run walks its
// graph on its own goroutine; the trigger call only validates and queues.
type Executor struct {
	workflows  ports.WorkflowRepository
	executions ports.ExecutionRepository
	logs       ports.LogRepository
	registry   *nodes.Registry
	cfg        Config

	bus     ports.EventBus
	metrics *metrics.Recorder
	tracer  trace.Tracer
	logger  *slog.Logger
	now     func() time.Time

	active *activeTable

	// baseCtx outlives the trigger request and ends on Shutdown.
	baseCtx  context.Context
	stop     context.CancelFunc
	inflight sync.WaitGroup
}

type Option func(*Executor)

func WithEventBus(bus ports.EventBus) Option {
	return func(e *Executor) { e.bus = bus }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Executor) { e.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

func NewExecutor(
	workflows ports.WorkflowRepository,
	executions ports.ExecutionRepository,
	logs ports.LogRepository,
	registry *nodes.Registry,
	cfg Config,
	opts ...Option,
) *Executor {
	baseCtx, stop := context.WithCancel(context.Background())
	e := &Executor{
		workflows:  workflows,
		executions: executions,
		logs:       logs,
		registry:   registry,
		cfg:        cfg,
		tracer:     tracing.Tracer(),
		logger:     slog.Default(),
		now:        time.Now,
		active:     newActiveTable(),
		baseCtx:    baseCtx,
		stop:       stop,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.MaxNodeVisits <= 0 {
		e.cfg.MaxNodeVisits = DefaultConfig().MaxNodeVisits
	}
	return e
}

// ExecuteWorkflow validates the workflow, queues an execution and starts
// the walk in the background. Configuration and concurrency failures are
// returned here and never create a record.
func (e *Executor) ExecuteWorkflow(ctx context.Context, workflowID, userID uuid.UUID, input map[string]any, triggeredBy domain.TriggerSource) (*Handle, error) {
	wf, err := e.loadExecutable(ctx, workflowID)
	if err != nil {
		e.metrics.ExecutionRejected(rejectReason(err))
		return nil, err
	}
	return e.start(ctx, wf, userID, input, triggeredBy, 0, nil)
}

func (e *Executor) loadExecutable(ctx context.Context, workflowID uuid.UUID) (*domain.Workflow, error) {
	wf, err := e.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if !wf.CanExecute() {
		return nil, fmt.Errorf("%w: status %s", domain.ErrInvalidWorkflowState, wf.Status)
	}
	return wf, nil
}

func (e *Executor) start(
	ctx context.Context,
	wf *domain.Workflow,
	userID uuid.UUID,
	input map[string]any,
	triggeredBy domain.TriggerSource,
	attempt int,
	retryOf *uuid.UUID,
) (*Handle, error) {
	g, err := buildGraph(wf, e.registry)
	if err != nil {
		e.metrics.ExecutionRejected(rejectReason(err))
		return nil, err
	}

	exec := domain.NewExecution(wf, userID, input, triggeredBy)
	exec.Attempt = attempt
	exec.RetryOf = retryOf

	runCtx, cancel := context.WithCancel(e.baseCtx)
	r := &run{
		ctx:      runCtx,
		cancel:   cancel,
		ec:       domain.NewExecutionContext(exec.ID, wf.ID, userID, exec.Input, e.now()),
		workflow: wf,
		graph:    g,
		trigger:  exec.TriggeredBy,
		attempt:  attempt,
	}
	// Tracked before the insert commits so a cancel arriving right after
	// the commit always finds the run and stops it before its first node.
	e.active.add(r)
	if err := e.executions.CreateIfBelowLimit(ctx, exec, wf.ConcurrencyLimit()); err != nil {
		e.active.remove(exec.ID)
		cancel()
		e.metrics.ExecutionRejected(rejectReason(err))
		return nil, err
	}
	e.metrics.ExecutionStarted(string(exec.TriggeredBy))

	e.logger.Info("Workflow execution queued",
		"executionId", exec.ID,
		"workflowId", wf.ID,
		"triggeredBy", exec.TriggeredBy,
		"attempt", attempt)

	e.inflight.Add(1)
	go e.execute(r)

	return &Handle{
		ExecutionID: exec.ID,
		Status:      domain.ExecutionQueued,
		Message:     "Workflow execution started",
	}, nil
}

// GetExecutionStatus returns the execution record and its logs in order.
func (e *Executor) GetExecutionStatus(ctx context.Context, executionID uuid.UUID) (*domain.ExecutionDetails, error) {
	exec, err := e.executions.GetByID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	logs, err := e.logs.ListByExecution(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("list execution logs: %w", err)
	}
	return &domain.ExecutionDetails{Execution: *exec, Logs: logs}, nil
}

// CancelExecution flags an in-flight run, interrupts the node it is
// running and persists CANCELLED. Executions already terminal yield
// domain.ErrExecutionNotActive.
func (e *Executor) CancelExecution(ctx context.Context, executionID uuid.UUID) error {
	exec, err := e.executions.GetByID(ctx, executionID)
	if err != nil {
		return err
	}
	if exec.Status.IsTerminal() {
		return fmt.Errorf("%w: status %s", domain.ErrExecutionNotActive, exec.Status)
	}

	if r, ok := e.active.get(executionID); ok {
		r.ec.Cancel()
		r.cancel()
	}

	applied, err := e.executions.Cancel(ctx, executionID, e.now(), cancelledByUser)
	if err != nil {
		return fmt.Errorf("persist cancellation: %w", err)
	}
	if !applied {
		return domain.ErrExecutionNotActive
	}

	e.logger.Info("Workflow execution cancelled", "executionId", executionID, "workflowId", exec.WorkflowID)
	e.publish(ctx, domain.Event{
		Type:        domain.EventExecutionCancelled,
		ExecutionID: executionID.String(),
		WorkflowID:  exec.WorkflowID.String(),
		Status:      string(domain.ExecutionCancelled),
	})
	return nil
}

// IsActive reports whether the execution is still tracked in memory.
func (e *Executor) IsActive(executionID uuid.UUID) bool {
	_, ok := e.active.get(executionID)
	return ok
}

func (e *Executor) ActiveCount() int {
	return e.active.len()
}

// Wait blocks until every in-flight run and pending retry has finished.
func (e *Executor) Wait() {
	e.inflight.Wait()
}

// Shutdown cancels in-flight runs and pending retries, then waits for their
// goroutines or for ctx to end.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.stop()
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) publish(ctx context.Context, event domain.Event) {
	if e.bus == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now().UTC()
	}
	if err := e.bus.Publish(context.WithoutCancel(ctx), event); err != nil {
		e.logger.Warn("Failed to publish event", "type", event.Type, "executionId", event.ExecutionID, "error", err)
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrWorkflowNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidWorkflowState):
		return "invalid_state"
	case errors.Is(err, domain.ErrConcurrencyLimitExceeded):
		return "concurrency_limit"
	case domain.IsConfigurationError(err):
		return "configuration"
	default:
		return "error"
	}
}
