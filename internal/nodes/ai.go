package nodes

import (
	"context"
	"errors"
	"fmt"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"
)

var errServiceUnavailable = errors.New("service not configured")

// AnalyzeJobNode scores a job posting through the analysis service.
type AnalyzeJobNode struct {
	Analyzer ports.JobAnalyzer
}

func (n *AnalyzeJobNode) Execute(ctx context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error) {
	if n.Analyzer == nil {
		return nil, fmt.Errorf("job analyzer: %w", errServiceUnavailable)
	}
	req := ports.JobAnalysisRequest{
		JobURL:         Stringify(pathValue(node, "jobUrlPath", "jobUrl", input)),
		JobDescription: Stringify(pathValue(node, "jobDescriptionPath", "jobDescription", input)),
		ResumeID:       Stringify(pathValue(node, "resumeIdPath", "resumeId", input)),
	}
	if req.JobURL == "" && req.JobDescription == "" {
		return nil, fmt.Errorf("%w: job url or description is required", domain.ErrInvalidNodeConfig)
	}

	analysis, err := n.Analyzer.AnalyzeJob(ctx, ec.UserID, req)
	if err != nil {
		return nil, fmt.Errorf("analyze job: %w", err)
	}

	minScore := configNumber(node, "minScore", 7)
	return merge(input, map[string]any{
		"score":          analysis.Score,
		"match":          analysis.Score >= minScore,
		"recommendation": analysis.Recommendation,
		"analysis": map[string]any{
			"summary": analysis.Summary,
			"details": analysis.Details,
		},
	}), nil
}

func (n *AnalyzeJobNode) Metadata() Metadata {
	md := DefaultMetadata("AI_AGENT_ANALYZE")
	md.Name = "Analyze Job"
	md.Description = "Score a job posting against the user's profile"
	md.Outputs = []string{"score", "match", "recommendation", "analysis"}
	md.Config = objectSchema(map[string]any{
		"jobUrlPath":         prop("string", "Input path of the job URL"),
		"jobDescriptionPath": prop("string", "Input path of the job description"),
		"resumeIdPath":       prop("string", "Input path of the resume id"),
		"minScore":           map[string]any{"type": "number", "minimum": 0, "maximum": 10},
	})
	return md
}

// ChatNode sends a templated message to the conversational service.
type ChatNode struct {
	Agent ports.ChatAgent
}

func (n *ChatNode) Execute(ctx context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error) {
	if n.Agent == nil {
		return nil, fmt.Errorf("chat agent: %w", errServiceUnavailable)
	}
	message := renderedString(node, "message", input, ec)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidNodeConfig)
	}

	var history []ports.ChatMessage
	if raw, ok := toList(pathValue(node, "historyPath", "history", input)); ok {
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			history = append(history, ports.ChatMessage{Role: Stringify(m["role"]), Content: Stringify(m["content"])})
		}
	}

	reply, err := n.Agent.Chat(ctx, ec.UserID, message, history)
	if err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	return merge(input, map[string]any{"message": message, "reply": reply}), nil
}

func (n *ChatNode) Metadata() Metadata {
	md := DefaultMetadata("AI_AGENT_CHAT")
	md.Name = "AI Chat"
	md.Description = "Ask the career assistant a question"
	md.Outputs = []string{"reply"}
	md.Config = objectSchema(map[string]any{
		"message":     prop("string", "Message template"),
		"historyPath": prop("string", "Input path of prior messages"),
	}, "message")
	return md
}
