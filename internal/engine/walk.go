package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go-jobflow/internal/domain"
	"go-jobflow/internal/nodes"
	"go-jobflow/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// frame is a pending node visit on the walk's explicit stack.
type frame struct {
	nodeID string
	input  map[string]any
}

// execute drives one run from RUNNING to its terminal state.
func (e *Executor) execute(r *run) {
	defer e.inflight.Done()
	defer e.active.remove(r.ec.ExecutionID)
	defer r.cancel()

	ec := r.ec
	logger := e.logger.With("executionId", ec.ExecutionID, "workflowId", ec.WorkflowID)

	ctx, span := tracing.StartSpan(r.ctx, e.tracer, "workflow.execute",
		attribute.String(tracing.WorkflowIDKey, ec.WorkflowID.String()),
		attribute.String(tracing.ExecutionIDKey, ec.ExecutionID.String()),
		attribute.String(tracing.TriggerKey, string(r.trigger)),
	)
	defer span.End()

	// Persistence after the walk must survive cancellation of the run.
	store := context.WithoutCancel(ctx)

	started := e.now()
	if err := e.executions.MarkRunning(store, ec.ExecutionID, started); err != nil {
		logger.Error("Failed to mark execution running", "error", err)
	}
	logger.Info("Workflow execution started")
	e.publish(store, domain.Event{
		Type:        domain.EventExecutionStarted,
		ExecutionID: ec.ExecutionID.String(),
		WorkflowID:  ec.WorkflowID.String(),
		Status:      string(domain.ExecutionRunning),
	})

	output, walkErr := e.walk(ctx, r)
	finished := e.now()
	duration := finished.Sub(started)

	if ec.Cancelled() {
		// CancelExecution has already persisted the terminal state.
		logger.Info("Workflow execution stopped after cancellation", "duration", duration)
		e.metrics.ExecutionFinished(string(domain.ExecutionCancelled))
		return
	}

	result := domain.ExecutionResult{
		Status:         domain.ExecutionCompleted,
		Output:         output,
		CompletedNodes: ec.CompletedNodes,
		FailedNodes:    ec.FailedNodes,
		CompletedAt:    finished,
		Duration:       duration,
	}
	if walkErr != nil {
		result.Status = domain.ExecutionFailed
		result.Output = nil
		result.Error = executionError(walkErr)
		tracing.SetError(span, walkErr)
	}

	applied, err := e.executions.Finish(store, ec.ExecutionID, result)
	if err != nil {
		logger.Error("Failed to persist execution result", "status", result.Status, "error", err)
		return
	}
	if !applied {
		logger.Warn("Execution already terminal, result dropped", "status", result.Status)
		return
	}

	if err := e.workflows.RecordExecution(store, ec.WorkflowID, walkErr == nil, finished); err != nil {
		logger.Error("Failed to update workflow statistics", "error", err)
	}
	e.metrics.ExecutionFinished(string(result.Status))

	event := domain.Event{
		ExecutionID: ec.ExecutionID.String(),
		WorkflowID:  ec.WorkflowID.String(),
		Status:      string(result.Status),
		DurationMs:  duration.Milliseconds(),
	}
	if walkErr != nil {
		logger.Error("Workflow execution failed",
			"nodeId", result.Error.NodeID,
			"duration", duration,
			"error", walkErr)
		event.Type = domain.EventExecutionFailed
		event.NodeID = result.Error.NodeID
		event.Error = result.Error.Message
		e.publish(store, event)
		e.scheduleRetry(r)
		return
	}

	logger.Info("Workflow execution completed", "duration", duration, "nodes", len(ec.CompletedNodes))
	event.Type = domain.EventExecutionCompleted
	e.publish(store, event)
}

// walk visits nodes depth first from the trigger. Children are pushed in
// reverse declaration order so siblings run in declaration order, each
// branch finishing before the next starts. The output of the last leaf
// reached becomes the run output.
func (e *Executor) walk(ctx context.Context, r *run) (map[string]any, error) {
	g := r.graph
	ec := r.ec
	visits := make(map[string]int, len(g.nodes))
	stack := []frame{{nodeID: g.trigger.ID, input: ec.Input}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if ec.Cancelled() || ctx.Err() != nil {
			return nil, domain.ErrExecutionCancelled
		}

		node := g.nodes[f.nodeID]
		visits[node.ID]++
		if visits[node.ID] > e.cfg.MaxNodeVisits {
			ec.CurrentNodeID = node.ID
			return nil, &domain.NodeError{
				NodeID:   node.ID,
				NodeType: node.Type,
				Err:      fmt.Errorf("%w: node visited more than %d times", domain.ErrCycleDetected, e.cfg.MaxNodeVisits),
			}
		}

		output, err := e.executeNode(ctx, r, node, f.input)
		if err != nil {
			return nil, err
		}

		outgoing := g.outgoing[node.ID]
		if len(outgoing) == 0 {
			ec.Output = output
			continue
		}

		next := make([]frame, 0, len(outgoing))
		for _, c := range outgoing {
			if c.Condition != nil && !nodes.EvaluateCondition(*c.Condition, output) {
				e.logger.Debug("Connection condition not met",
					"executionId", ec.ExecutionID,
					"from", c.From,
					"to", c.To,
					"field", c.Condition.Field)
				continue
			}
			next = append(next, frame{nodeID: c.To, input: output})
		}
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}
	return ec.Output, nil
}

// executeNode runs a single node, logging its start and its outcome.
func (e *Executor) executeNode(ctx context.Context, r *run, node domain.Node, input map[string]any) (map[string]any, error) {
	ec := r.ec
	ec.CurrentNodeID = node.ID

	ctx, span := tracing.StartSpan(ctx, e.tracer, "node.execute",
		attribute.String(tracing.ExecutionIDKey, ec.ExecutionID.String()),
		attribute.String(tracing.NodeIDKey, node.ID),
		attribute.String(tracing.NodeTypeKey, string(node.Type)),
	)
	defer span.End()

	started := e.now()
	e.appendLog(ctx, ec, node, domain.LogInfo, fmt.Sprintf("Executing node: %s", node.Label()), map[string]any{
		"input":     input,
		"startTime": started.UTC().Format(time.RFC3339Nano),
	})

	output, err := e.invoke(ctx, node, input, ec)
	duration := e.now().Sub(started)
	e.metrics.NodeFinished(string(node.Type), err == nil, duration)

	if err != nil {
		ec.MarkFailed(node.ID)
		tracing.SetError(span, err)
		e.appendLog(ctx, ec, node, domain.LogError, fmt.Sprintf("Node failed: %s", node.Label()), map[string]any{
			"error":    err.Error(),
			"duration": duration.Milliseconds(),
			"success":  false,
		})
		e.publish(ctx, domain.Event{
			Type:        domain.EventNodeFailed,
			ExecutionID: ec.ExecutionID.String(),
			WorkflowID:  ec.WorkflowID.String(),
			NodeID:      node.ID,
			NodeType:    node.Type,
			Error:       err.Error(),
			DurationMs:  duration.Milliseconds(),
		})
		return nil, &domain.NodeError{NodeID: node.ID, NodeType: node.Type, Err: err}
	}

	if node.OutputVariable != "" {
		ec.SetVariable(node.OutputVariable, output)
	}
	ec.MarkCompleted(node.ID)
	e.appendLog(ctx, ec, node, domain.LogInfo, fmt.Sprintf("Node completed: %s", node.Label()), map[string]any{
		"output":   output,
		"duration": duration.Milliseconds(),
		"success":  true,
	})
	e.publish(ctx, domain.Event{
		Type:        domain.EventNodeCompleted,
		ExecutionID: ec.ExecutionID.String(),
		WorkflowID:  ec.WorkflowID.String(),
		NodeID:      node.ID,
		NodeType:    node.Type,
		DurationMs:  duration.Milliseconds(),
	})
	return output, nil
}

// invoke resolves the executor and turns a panic into an error.
func (e *Executor) invoke(ctx context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (output map[string]any, err error) {
	executor, ok := e.registry.Executor(node.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownNodeType, node.Type)
	}

	defer func() {
		if p := recover(); p != nil {
			err = &domain.PanicError{Value: p, Stack: string(debug.Stack())}
		}
	}()

	output, err = executor.Execute(ctx, node, input, ec)
	if err != nil {
		return nil, err
	}
	if output == nil {
		output = map[string]any{}
	}
	return output, nil
}

// appendLog writes a trace entry. Failures are reported and swallowed.
func (e *Executor) appendLog(ctx context.Context, ec *domain.ExecutionContext, node domain.Node, level domain.LogLevel, message string, data map[string]any) {
	entry := &domain.ExecutionLog{
		ExecutionID: ec.ExecutionID,
		NodeID:      node.ID,
		NodeName:    node.Label(),
		NodeType:    node.Type,
		Level:       level,
		Message:     message,
		Data:        data,
		Timestamp:   e.now(),
	}
	if err := e.logs.Append(context.WithoutCancel(ctx), entry); err != nil {
		e.logger.Error("Failed to write execution log",
			"executionId", ec.ExecutionID,
			"nodeId", node.ID,
			"error", err)
	}
}

func executionError(err error) *domain.ExecutionError {
	out := &domain.ExecutionError{Message: err.Error()}

	var nodeErr *domain.NodeError
	if errors.As(err, &nodeErr) {
		out.NodeID = nodeErr.NodeID
		out.NodeType = nodeErr.NodeType
		out.Message = nodeErr.Err.Error()
	}
	var panicErr *domain.PanicError
	if errors.As(err, &panicErr) {
		out.Stack = panicErr.Stack
	}
	return out
}
