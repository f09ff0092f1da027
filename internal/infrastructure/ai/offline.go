package ai

import (
	"context"
	"fmt"
	"hash/fnv"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"

	"github.com/google/uuid"
)

// Offline answers every request locally with deterministic placeholder
// content. It backs development mode when no AI service is configured.
type Offline struct{}

func (Offline) AnalyzeJob(_ context.Context, _ uuid.UUID, req ports.JobAnalysisRequest) (*ports.JobAnalysis, error) {
	key := req.JobURL + req.JobDescription
	if key == "" {
		return nil, fmt.Errorf("%w: job url or description is required", domain.ErrInvalidNodeConfig)
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	score := float64(h.Sum32()%11) // 0..10

	recommendation := "skip"
	if score >= 7 {
		recommendation = "apply"
	}
	return &ports.JobAnalysis{
		Score:          score,
		Recommendation: recommendation,
		Summary:        "offline analysis",
	}, nil
}

func (Offline) Chat(_ context.Context, _ uuid.UUID, message string, _ []ports.ChatMessage) (string, error) {
	return "You said: " + message, nil
}

func (Offline) Generate(_ context.Context, _ uuid.UUID, taskType domain.TaskType, input map[string]any) (map[string]any, error) {
	return map[string]any{
		"type":    string(taskType),
		"content": fmt.Sprintf("Draft %s", taskType),
		"input":   input,
	}, nil
}

var (
	_ ports.JobAnalyzer      = Offline{}
	_ ports.ChatAgent        = Offline{}
	_ ports.ContentGenerator = Offline{}
)
