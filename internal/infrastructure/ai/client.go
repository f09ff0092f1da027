// Package ai talks to the analysis and content-generation service.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"
	"go-jobflow/internal/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Client calls the AI service over HTTP. It implements JobAnalyzer,
// ChatAgent and ContentGenerator.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewClient returns a client with a 60-second timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		tracer:     tracing.Tracer(),
	}
}

type analyzeRequest struct {
	UserID uuid.UUID `json:"userId"`
	ports.JobAnalysisRequest
}

type chatRequest struct {
	UserID  uuid.UUID           `json:"userId"`
	Message string              `json:"message"`
	History []ports.ChatMessage `json:"history,omitempty"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type generateRequest struct {
	UserID uuid.UUID      `json:"userId"`
	Type   string         `json:"type"`
	Input  map[string]any `json:"input"`
}

func (c *Client) AnalyzeJob(ctx context.Context, userID uuid.UUID, req ports.JobAnalysisRequest) (*ports.JobAnalysis, error) {
	var out ports.JobAnalysis
	if err := c.post(ctx, "/api/jobs/analyze", analyzeRequest{UserID: userID, JobAnalysisRequest: req}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Chat(ctx context.Context, userID uuid.UUID, message string, history []ports.ChatMessage) (string, error) {
	var out chatResponse
	if err := c.post(ctx, "/api/chat", chatRequest{UserID: userID, Message: message, History: history}, &out); err != nil {
		return "", err
	}
	return out.Reply, nil
}

func (c *Client) Generate(ctx context.Context, userID uuid.UUID, taskType domain.TaskType, input map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if err := c.post(ctx, "/api/generate", generateRequest{UserID: userID, Type: string(taskType), Input: input}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	ctx, span := tracing.StartSpan(ctx, c.tracer, "ai.request", attribute.String("http.route", path))
	defer span.End()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		tracing.SetError(span, err)
		return fmt.Errorf("ai service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("ai service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		tracing.SetError(span, err)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ai response: %w", err)
	}
	return nil
}

var (
	_ ports.JobAnalyzer      = (*Client)(nil)
	_ ports.ChatAgent        = (*Client)(nil)
	_ ports.ContentGenerator = (*Client)(nil)
)
