// Package seed loads workflow definitions and their triggers from YAML.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// File is the document layout of a seed file.
type File struct {
	Workflows []domain.Workflow `yaml:"workflows"`
	Schedules []domain.Schedule `yaml:"schedules"`
	Webhooks  []domain.Webhook  `yaml:"webhooks"`
}

// Stores are the repositories a seed is written to.
type Stores struct {
	Workflows ports.WorkflowRepository
	Schedules ports.ScheduleRepository
	Webhooks  ports.WebhookRepository
}

// Parse decodes a seed document and fills defaults. Every workflow must pass
// field validation and every trigger must name a workflow in the document.
func Parse(data []byte) (*File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("seed: document is empty")
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}

	now := time.Now()
	workflows := make(map[uuid.UUID]*domain.Workflow, len(f.Workflows))
	for i := range f.Workflows {
		wf := &f.Workflows[i]
		if wf.ID == uuid.Nil {
			wf.ID = uuid.New()
		}
		if wf.Status == "" {
			wf.Status = domain.WorkflowDraft
		}
		wf.CreatedAt, wf.UpdatedAt = now, now
		if err := wf.Validate(); err != nil {
			return nil, fmt.Errorf("seed: workflow %q: %w", wf.Name, err)
		}
		workflows[wf.ID] = wf
	}

	for i := range f.Schedules {
		s := &f.Schedules[i]
		wf, ok := workflows[s.WorkflowID]
		if !ok {
			return nil, fmt.Errorf("seed: schedule %d references unknown workflow %s", i, s.WorkflowID)
		}
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if s.UserID == uuid.Nil {
			s.UserID = wf.UserID
		}
		if s.Timezone == "" {
			s.Timezone = "UTC"
		}
		s.CreatedAt, s.UpdatedAt = now, now
	}

	for i := range f.Webhooks {
		w := &f.Webhooks[i]
		if _, ok := workflows[w.WorkflowID]; !ok {
			return nil, fmt.Errorf("seed: webhook %q references unknown workflow %s", w.Path, w.WorkflowID)
		}
		if w.Path == "" {
			return nil, fmt.Errorf("seed: webhook %d has no path", i)
		}
		if w.ID == uuid.Nil {
			w.ID = uuid.New()
		}
		w.CreatedAt, w.UpdatedAt = now, now
	}
	return &f, nil
}

// LoadFile reads and parses a seed file from disk.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Apply writes the seed's records to the stores.
func (f *File) Apply(ctx context.Context, stores Stores) error {
	for i := range f.Workflows {
		if err := stores.Workflows.Create(ctx, &f.Workflows[i]); err != nil {
			return fmt.Errorf("seed: create workflow %q: %w", f.Workflows[i].Name, err)
		}
	}
	for i := range f.Schedules {
		if err := stores.Schedules.Create(ctx, &f.Schedules[i]); err != nil {
			return fmt.Errorf("seed: create schedule %s: %w", f.Schedules[i].ID, err)
		}
	}
	for i := range f.Webhooks {
		if err := stores.Webhooks.Create(ctx, &f.Webhooks[i]); err != nil {
			return fmt.Errorf("seed: create webhook %q: %w", f.Webhooks[i].Path, err)
		}
	}
	return nil
}
