package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-jobflow/internal/domain"

	"github.com/google/uuid"
)

// The nodes in this file stand in for services owned by other parts of the
// platform. They validate and render their config, then report what they
// would have done.

type AutoApplyNode struct{}

func (n *AutoApplyNode) Execute(_ context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error) {
	jobURL := Stringify(pathValue(node, "jobUrlPath", "jobUrl", input))
	if jobURL == "" {
		return nil, fmt.Errorf("%w: job url is required", domain.ErrInvalidNodeConfig)
	}
	return merge(input, map[string]any{
		"applied":       true,
		"applicationId": uuid.NewString(),
		"status":        "SUBMITTED",
		"jobUrl":        jobURL,
		"appliedAt":     time.Now().UTC().Format(time.RFC3339),
	}), nil
}

func (n *AutoApplyNode) Metadata() Metadata {
	md := DefaultMetadata("AUTO_APPLY_SINGLE")
	md.Description = "Submit an application for one job"
	md.Outputs = []string{"applied", "applicationId", "status"}
	md.Config = objectSchema(map[string]any{
		"jobUrlPath": prop("string", "Input path of the job URL"),
		"resumeId":   prop("string", "Resume to attach"),
	})
	return md
}

type BulkApplyNode struct{}

func (n *BulkApplyNode) Execute(_ context.Context, node domain.Node, input map[string]any, _ *domain.ExecutionContext) (map[string]any, error) {
	jobs, ok := toList(pathValue(node, "jobsPath", "jobs", input))
	if !ok {
		return nil, fmt.Errorf("%w: jobs must be a list", domain.ErrInvalidNodeConfig)
	}
	limit := int(configNumber(node, "maxApplications", float64(len(jobs))))
	if limit < len(jobs) {
		jobs = jobs[:limit]
	}
	applications := make([]any, 0, len(jobs))
	for _, job := range jobs {
		applications = append(applications, map[string]any{
			"applicationId": uuid.NewString(),
			"job":           job,
			"status":        "SUBMITTED",
		})
	}
	return merge(input, map[string]any{
		"applications": applications,
		"count":        len(applications),
	}), nil
}

func (n *BulkApplyNode) Metadata() Metadata {
	md := DefaultMetadata("AUTO_APPLY_BULK")
	md.Description = "Submit applications for a list of jobs"
	md.Outputs = []string{"applications", "count"}
	md.Config = objectSchema(map[string]any{
		"jobsPath":        prop("string", "Input path of the job list"),
		"maxApplications": map[string]any{"type": "integer", "minimum": 0},
	})
	return md
}

// JobTrackerNode records or updates an application in the job tracker.
type JobTrackerNode struct {
	Action string
}

func (n *JobTrackerNode) Execute(_ context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error) {
	entry := map[string]any{
		"company": Render(configString(node, "company", "{{company}}"), input, ec),
		"title":   Render(configString(node, "title", "{{title}}"), input, ec),
		"status":  configString(node, "status", "SAVED"),
	}
	id := Stringify(pathValue(node, "jobIdPath", "jobId", input))
	if n.Action == "update" {
		if id == "" {
			return nil, fmt.Errorf("%w: job id is required to update", domain.ErrInvalidNodeConfig)
		}
	} else {
		id = uuid.NewString()
	}
	entry["id"] = id
	return merge(input, map[string]any{"jobId": id, "trackedJob": entry}), nil
}

// JobSearchNode renders a search query.
type JobSearchNode struct{}

func (n *JobSearchNode) Execute(_ context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error) {
	query := renderedString(node, "query", input, ec)
	return merge(input, map[string]any{
		"query":    query,
		"location": renderedString(node, "location", input, ec),
		"jobs":     []any{},
		"count":    0,
	}), nil
}

// MessageNode covers email and in-app notifications.
type MessageNode struct {
	Channel string
}

func (n *MessageNode) Execute(_ context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error) {
	message := map[string]any{
		"to":      renderedString(node, "to", input, ec),
		"subject": renderedString(node, "subject", input, ec),
		"body":    renderedString(node, "body", input, ec),
	}
	if n.Channel == "email" && message["to"] == "" {
		return nil, fmt.Errorf("%w: recipient is required", domain.ErrInvalidNodeConfig)
	}
	return merge(input, map[string]any{
		"sent":    true,
		"channel": n.Channel,
		n.Channel: message,
		"sentAt":  time.Now().UTC().Format(time.RFC3339),
	}), nil
}

// RequestNode prepares an outbound HTTP call or webhook delivery.
type RequestNode struct {
	Tag domain.NodeType
}

func (n *RequestNode) Execute(_ context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error) {
	url := renderedString(node, "url", input, ec)
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", domain.ErrInvalidNodeConfig)
	}
	request := map[string]any{
		"method":  strings.ToUpper(configString(node, "method", "POST")),
		"url":     url,
		"headers": RenderValue(node.Config["headers"], input, ec),
		"body":    RenderValue(node.Config["body"], input, ec),
	}
	return merge(input, map[string]any{"request": request, "status": "prepared"}), nil
}

func (n *RequestNode) Metadata() Metadata {
	md := DefaultMetadata(n.Tag)
	md.Description = "Call an external HTTP endpoint"
	md.Outputs = []string{"request", "status"}
	md.Config = objectSchema(map[string]any{
		"url":     prop("string", "Target URL template"),
		"method":  map[string]any{"type": "string", "enum": []any{"GET", "POST", "PUT", "PATCH", "DELETE", "get", "post", "put", "patch", "delete"}},
		"headers": prop("object", "Header templates"),
	}, "url")
	return md
}
