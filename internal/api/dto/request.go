package dto

import (
	"go-jobflow/internal/domain"

	"github.com/google/uuid"
)

type ExecuteWorkflowRequest struct {
	Input map[string]any `json:"input"`
}

type ExecuteWorkflowResponse struct {
	ExecutionID uuid.UUID              `json:"executionId"`
	Status      domain.ExecutionStatus `json:"status"`
	Message     string                 `json:"message"`
}

type TestNodeRequest struct {
	Node  domain.Node    `json:"node"`
	Input map[string]any `json:"input"`
}

type CancelExecutionResponse struct {
	ExecutionID uuid.UUID `json:"executionId"`
	Message     string    `json:"message"`
}

type WebhookResponse struct {
	ID         uuid.UUID `json:"id"`
	WorkflowID uuid.UUID `json:"workflowId"`
	Path       string    `json:"path"`
	URL        string    `json:"url"`
}
