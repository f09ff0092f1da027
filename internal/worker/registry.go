package worker

import (
	"context"
	"fmt"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"
)

// TaskHandler is the blueprint for any function that does background work
type TaskHandler func(ctx context.Context, task *domain.Task) (map[string]any, error)

// TaskRegistry holds the handler for every task type the pool accepts
type TaskRegistry map[domain.TaskType]TaskHandler

// InitRegistry wires every generation task type to the content generator
func InitRegistry(gen ports.ContentGenerator) TaskRegistry {
	registry := make(TaskRegistry)

	generate := func(ctx context.Context, task *domain.Task) (map[string]any, error) {
		if gen == nil {
			return nil, fmt.Errorf("no content generator configured for %s", task.Type)
		}
		return gen.Generate(ctx, task.UserID, task.Type, task.Input)
	}

	registry[domain.TaskResumeGeneration] = generate
	registry[domain.TaskCoverLetterGeneration] = generate
	registry[domain.TaskCompanyResearch] = generate

	return registry
}
