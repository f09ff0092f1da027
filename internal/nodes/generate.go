package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"

	"github.com/google/uuid"
)

// GenerateNode hands a long-running generation job to the worker pool and
// blocks until the task finishes or the timeout elapses.
type GenerateNode struct {
	Tag          domain.NodeType
	TaskType     domain.TaskType
	ResultKey    string
	Description  string
	Tasks        ports.TaskSubmitter
	PollInterval time.Duration
	Timeout      time.Duration
}

func (n *GenerateNode) Execute(ctx context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error) {
	if n.Tasks == nil {
		return nil, fmt.Errorf("task queue: %w", errServiceUnavailable)
	}

	payload := map[string]any{
		"resumeId":       pathValue(node, "resumeIdPath", "resumeId", input),
		"jobDescription": pathValue(node, "jobDescriptionPath", "jobDescription", input),
		"jobUrl":         pathValue(node, "jobUrlPath", "jobUrl", input),
		"companyName":    pathValue(node, "companyNamePath", "companyName", input),
		"executionId":    ec.ExecutionID.String(),
		"nodeId":         node.ID,
	}
	if extra, ok := node.Config["options"].(map[string]any); ok {
		payload["options"] = RenderValue(extra, input, ec)
	}

	task, err := n.Tasks.Submit(ctx, ec.UserID, n.TaskType, payload)
	if err != nil {
		return nil, fmt.Errorf("submit %s task: %w", n.TaskType, err)
	}

	done, err := WaitForTask(ctx, n.Tasks, task.ID, n.PollInterval, n.Timeout)
	if err != nil {
		return nil, err
	}
	return merge(input, map[string]any{
		"taskId":    done.ID.String(),
		n.ResultKey: map[string]any(done.Output),
	}), nil
}

func (n *GenerateNode) Metadata() Metadata {
	md := DefaultMetadata(n.Tag)
	md.Description = n.Description
	md.Outputs = []string{"taskId", n.ResultKey}
	md.Config = objectSchema(map[string]any{
		"resumeIdPath":       prop("string", "Input path of the resume id"),
		"jobDescriptionPath": prop("string", "Input path of the job description"),
		"jobUrlPath":         prop("string", "Input path of the job URL"),
		"companyNamePath":    prop("string", "Input path of the company name"),
		"options":            prop("object", "Extra generation options, templated"),
	})
	return md
}

// WaitForTask polls the task every interval until it reaches a terminal
// status. A failed task yields domain.ErrTaskFailed and an elapsed timeout
// domain.ErrTaskTimeout. Cancelling ctx stops the wait with ctx's error.
func WaitForTask(ctx context.Context, tasks ports.TaskSubmitter, id uuid.UUID, interval, timeout time.Duration) (*domain.Task, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		task, err := tasks.GetTask(waitCtx, id)
		switch {
		case err == nil && task.Status == domain.StatusCompleted:
			return task, nil
		case err == nil && task.Status == domain.StatusFailed:
			return nil, fmt.Errorf("%w: %s: %s", domain.ErrTaskFailed, id, task.Error)
		case err != nil && waitCtx.Err() == nil:
			return nil, fmt.Errorf("poll task %s: %w", id, err)
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s after %s", domain.ErrTaskTimeout, id, timeout)
			}
			return nil, waitCtx.Err()
		case <-ticker.C:
		}
	}
}
