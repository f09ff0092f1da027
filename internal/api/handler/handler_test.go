package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-jobflow/internal/domain"
	"go-jobflow/internal/engine"
	"go-jobflow/internal/nodes"
	"go-jobflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	err     error
	handle  *engine.Handle
	input   map[string]any
	userID  uuid.UUID
	path    string
	details *domain.ExecutionDetails
	events  []domain.Event
}

func (s *stubService) ExecuteWorkflow(_ context.Context, _, userID uuid.UUID, input map[string]any) (*engine.Handle, error) {
	s.userID, s.input = userID, input
	return s.handle, s.err
}

func (s *stubService) GetExecution(context.Context, uuid.UUID, uuid.UUID) (*domain.ExecutionDetails, error) {
	return s.details, s.err
}

func (s *stubService) CancelExecution(context.Context, uuid.UUID, uuid.UUID) error {
	return s.err
}

func (s *stubService) SubscribeExecution(context.Context, uuid.UUID, uuid.UUID) (<-chan domain.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan domain.Event, len(s.events))
	for _, e := range s.events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func (s *stubService) NodeCatalog() []nodes.Metadata {
	return []nodes.Metadata{nodes.DefaultMetadata("TRIGGER_MANUAL")}
}

func (s *stubService) TestNode(_ context.Context, _ uuid.UUID, node domain.Node, input map[string]any) *service.TestNodeResult {
	return &service.TestNodeResult{Success: true, ExecutionID: "test_1", Result: map[string]any{"type": string(node.Type), "in": input["x"]}}
}

func (s *stubService) RegisterWebhook(_ context.Context, workflowID, _ uuid.UUID) (*domain.Webhook, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Webhook{ID: uuid.New(), WorkflowID: workflowID, Path: "abc123"}, nil
}

func (s *stubService) ExecuteViaWebhook(_ context.Context, path string, input map[string]any) (*engine.Handle, error) {
	s.path, s.input = path, input
	return s.handle, s.err
}

func newRouter(svc service.WorkflowService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewWorkflowHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(r *gin.Engine, method, path, body string, user *uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set(UserHeader, user.String())
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestExecuteWorkflow_Accepted(t *testing.T) {
	user := uuid.New()
	execID := uuid.New()
	svc := &stubService{handle: &engine.Handle{ExecutionID: execID, Status: domain.ExecutionQueued, Message: "Workflow execution started"}}
	r := newRouter(svc)

	rec := do(r, http.MethodPost, "/api/v1/workflows/"+uuid.NewString()+"/execute", `{"input":{"jobUrl":"https://x"}}`, &user)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, execID.String(), body["executionId"])
	assert.Equal(t, "QUEUED", body["status"])
	assert.Equal(t, user, svc.userID)
	assert.Equal(t, "https://x", svc.input["jobUrl"])
}

func TestExecuteWorkflow_EmptyBody(t *testing.T) {
	user := uuid.New()
	svc := &stubService{handle: &engine.Handle{ExecutionID: uuid.New(), Status: domain.ExecutionQueued}}

	rec := do(newRouter(svc), http.MethodPost, "/api/v1/workflows/"+uuid.NewString()+"/execute", "", &user)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	user := uuid.New()
	tests := []struct {
		err      error
		wantCode int
		wantType string
	}{
		{domain.ErrWorkflowNotFound, http.StatusNotFound, "workflow_not_found"},
		{domain.ErrInvalidWorkflowState, http.StatusConflict, "invalid_workflow_state"},
		{domain.ErrConcurrencyLimitExceeded, http.StatusConflict, "concurrency_limit_exceeded"},
		{fmt.Errorf("%w: through node %q", domain.ErrCycleDetected, "a"), http.StatusUnprocessableEntity, "invalid_workflow"},
		{domain.ErrNoTriggerNode, http.StatusUnprocessableEntity, "invalid_workflow"},
		{fmt.Errorf("database is down"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.wantType, func(t *testing.T) {
			r := newRouter(&stubService{err: tt.err})

			rec := do(r, http.MethodPost, "/api/v1/workflows/"+uuid.NewString()+"/execute", `{}`, &user)

			assert.Equal(t, tt.wantCode, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.EqualValues(t, tt.wantCode, body["status"])
			if tt.wantCode == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "database is down")
			}
		})
	}
}

func TestMissingUser(t *testing.T) {
	rec := do(newRouter(&stubService{}), http.MethodGet, "/api/v1/executions/"+uuid.NewString(), "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvalidID(t *testing.T) {
	user := uuid.New()

	rec := do(newRouter(&stubService{}), http.MethodGet, "/api/v1/executions/not-a-uuid", "", &user)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelExecution(t *testing.T) {
	user := uuid.New()

	rec := do(newRouter(&stubService{}), http.MethodPost, "/api/v1/executions/"+uuid.NewString()+"/cancel", "", &user)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(newRouter(&stubService{err: domain.ErrExecutionNotActive}), http.MethodPost, "/api/v1/executions/"+uuid.NewString()+"/cancel", "", &user)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetExecution(t *testing.T) {
	user := uuid.New()
	exec := domain.WorkflowExecution{ID: uuid.New(), Status: domain.ExecutionCompleted}
	svc := &stubService{details: &domain.ExecutionDetails{Execution: exec}}

	rec := do(newRouter(svc), http.MethodGet, "/api/v1/executions/"+exec.ID.String(), "", &user)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), exec.ID.String())
	assert.Contains(t, rec.Body.String(), "COMPLETED")
}

func TestStreamExecution(t *testing.T) {
	user := uuid.New()
	svc := &stubService{events: []domain.Event{
		{Type: domain.EventNodeCompleted, ExecutionID: "e1", NodeID: "t"},
		{Type: domain.EventExecutionCompleted, ExecutionID: "e1"},
	}}

	rec := do(newRouter(svc), http.MethodGet, "/api/v1/executions/"+uuid.NewString()+"/events", "", &user)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "event:node.completed")
	assert.Contains(t, body, "event:execution.completed")
	assert.Less(t, strings.Index(body, "node.completed"), strings.Index(body, "execution.completed"))
}

func TestNodeCatalogAndTestNode(t *testing.T) {
	user := uuid.New()
	r := newRouter(&stubService{})

	rec := do(r, http.MethodGet, "/api/v1/nodes", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "TRIGGER_MANUAL")

	rec = do(r, http.MethodPost, "/api/v1/nodes/test", `{"node":{"type":"MERGE_DATA"},"input":{"x":1}}`, &user)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])

	rec = do(r, http.MethodPost, "/api/v1/nodes/test", `{"node":{}}`, &user)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhooks(t *testing.T) {
	user := uuid.New()
	svc := &stubService{handle: &engine.Handle{ExecutionID: uuid.New(), Status: domain.ExecutionQueued}}
	r := newRouter(svc)

	rec := do(r, http.MethodPost, "/api/v1/workflows/"+uuid.NewString()+"/webhooks", "", &user)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/v1/webhooks/abc123")

	rec = do(r, http.MethodPost, "/api/v1/webhooks/abc123", `{"candidate":"ada"}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "abc123", svc.path)
	assert.Equal(t, "ada", svc.input["candidate"])

	rec = do(newRouter(&stubService{err: domain.ErrWebhookNotFound}), http.MethodPost, "/api/v1/webhooks/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
