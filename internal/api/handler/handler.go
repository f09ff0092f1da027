package handler

import (
	"errors"
	"io"
	"net/http"

	"go-jobflow/internal/api/dto"
	"go-jobflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserHeader carries the authenticated user id set by the gateway.
const UserHeader = "X-User-ID"

type WorkflowHandler struct {
	service service.WorkflowService
}

func NewWorkflowHandler(svc service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{service: svc}
}

func (h *WorkflowHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/workflows/:id/execute", h.ExecuteWorkflow)
	r.POST("/workflows/:id/webhooks", h.RegisterWebhook)
	r.GET("/executions/:id", h.GetExecution)
	r.POST("/executions/:id/cancel", h.CancelExecution)
	r.GET("/executions/:id/events", h.StreamExecution)
	r.GET("/nodes", h.NodeCatalog)
	r.POST("/nodes/test", h.TestNode)
	r.POST("/webhooks/:path", h.TriggerWebhook)
}

func (h *WorkflowHandler) ExecuteWorkflow(c *gin.Context) {
	userID, ok := userFrom(c)
	if !ok {
		return
	}
	workflowID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req dto.ExecuteWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}

	handle, err := h.service.ExecuteWorkflow(c.Request.Context(), workflowID, userID, req.Input)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.ExecuteWorkflowResponse{
		ExecutionID: handle.ExecutionID,
		Status:      handle.Status,
		Message:     handle.Message,
	})
}

func (h *WorkflowHandler) GetExecution(c *gin.Context) {
	userID, ok := userFrom(c)
	if !ok {
		return
	}
	executionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	details, err := h.service.GetExecution(c.Request.Context(), executionID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *WorkflowHandler) CancelExecution(c *gin.Context) {
	userID, ok := userFrom(c)
	if !ok {
		return
	}
	executionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.CancelExecution(c.Request.Context(), executionID, userID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CancelExecutionResponse{
		ExecutionID: executionID,
		Message:     "Execution cancelled",
	})
}

// StreamExecution sends the execution's lifecycle events as server-sent
// events until the run ends or the client goes away.
func (h *WorkflowHandler) StreamExecution(c *gin.Context) {
	userID, ok := userFrom(c)
	if !ok {
		return
	}
	executionID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	events, err := h.service.SubscribeExecution(c.Request.Context(), executionID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(string(event.Type), event)
			c.Writer.Flush()
			if event.Type.IsTerminal() {
				return
			}
		}
	}
}

func (h *WorkflowHandler) NodeCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nodes": h.service.NodeCatalog()})
}

func (h *WorkflowHandler) TestNode(c *gin.Context) {
	userID, ok := userFrom(c)
	if !ok {
		return
	}

	var req dto.TestNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Node.Type == "" {
		badRequest(c, "node.type is required")
		return
	}
	if req.Node.ID == "" {
		req.Node.ID = "test"
	}

	c.JSON(http.StatusOK, h.service.TestNode(c.Request.Context(), userID, req.Node, req.Input))
}

func (h *WorkflowHandler) RegisterWebhook(c *gin.Context) {
	userID, ok := userFrom(c)
	if !ok {
		return
	}
	workflowID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	hook, err := h.service.RegisterWebhook(c.Request.Context(), workflowID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.WebhookResponse{
		ID:         hook.ID,
		WorkflowID: hook.WorkflowID,
		Path:       hook.Path,
		URL:        "/api/v1/webhooks/" + hook.Path,
	})
}

// TriggerWebhook is unauthenticated; the path itself is the secret. The
// JSON body becomes the run input.
func (h *WorkflowHandler) TriggerWebhook(c *gin.Context) {
	input := map[string]any{}
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}

	handle, err := h.service.ExecuteViaWebhook(c.Request.Context(), c.Param("path"), input)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.ExecuteWorkflowResponse{
		ExecutionID: handle.ExecutionID,
		Status:      handle.Status,
		Message:     handle.Message,
	})
}

func userFrom(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetHeader(UserHeader))
	if err != nil {
		problemUnauthorized(c)
		return uuid.Nil, false
	}
	return id, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
