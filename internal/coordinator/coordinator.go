// Package coordinator fires workflows from their cron schedules.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/domain"
	"go-jobflow/internal/engine"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Runner starts workflow executions.
type Runner interface {
	ExecuteWorkflow(ctx context.Context, workflowID, userID uuid.UUID, input map[string]any, triggeredBy domain.TriggerSource) (*engine.Handle, error)
}

type Coordinator struct {
	schedules ports.ScheduleRepository
	runner    Runner
	logger    *slog.Logger
	now       func() time.Time

	cron *cron.Cron

	mu      sync.Mutex
	entries map[uuid.UUID]cron.EntryID
	// runCtx is the Start context; jobs fired before Start use Background.
	runCtx context.Context
}

func NewCoordinator(schedules ports.ScheduleRepository, runner Runner, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		schedules: schedules,
		runner:    runner,
		logger:    logger,
		now:       time.Now,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		entries: make(map[uuid.UUID]cron.EntryID),
		runCtx:  context.Background(),
	}
}

// CronSpec is the schedule's expression qualified with its timezone.
func CronSpec(s domain.Schedule) (string, error) {
	tz := s.Timezone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "", fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	spec := fmt.Sprintf("CRON_TZ=%s %s", tz, s.CronExpression)
	if _, err := cron.ParseStandard(spec); err != nil {
		return "", fmt.Errorf("invalid cron expression %q: %w", s.CronExpression, err)
	}
	return spec, nil
}

// Register adds the schedule to the cron table, replacing an earlier entry
// for the same schedule.
func (c *Coordinator) Register(s domain.Schedule) error {
	spec, err := CronSpec(s)
	if err != nil {
		return err
	}

	entryID, err := c.cron.AddFunc(spec, func() {
		c.mu.Lock()
		ctx := c.runCtx
		c.mu.Unlock()
		c.Fire(ctx, s)
	})
	if err != nil {
		return fmt.Errorf("add cron job for schedule %s: %w", s.ID, err)
	}

	c.mu.Lock()
	if old, ok := c.entries[s.ID]; ok {
		c.cron.Remove(old)
	}
	c.entries[s.ID] = entryID
	c.mu.Unlock()

	c.logger.Info("Registered schedule", "scheduleId", s.ID, "workflowId", s.WorkflowID, "cron", spec)
	return nil
}

// Fire starts one scheduled run and stamps the schedule's last run.
func (c *Coordinator) Fire(ctx context.Context, s domain.Schedule) {
	logger := c.logger.With("scheduleId", s.ID, "workflowId", s.WorkflowID)

	handle, err := c.runner.ExecuteWorkflow(ctx, s.WorkflowID, s.UserID, maps.Clone(s.Input), domain.TriggeredBySchedule)
	if err != nil {
		logger.Warn("Scheduled run rejected", "error", err)
		return
	}
	if err := c.schedules.MarkRun(ctx, s.ID, c.now()); err != nil {
		logger.Error("Failed to record schedule run", "error", err)
	}
	logger.Info("Scheduled run started", "executionId", handle.ExecutionID)
}

// Start registers every active schedule and runs the cron loop until ctx is
// done. Schedules that fail to register are logged and skipped.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	c.runCtx = ctx
	c.mu.Unlock()

	schedules, err := c.schedules.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list schedules: %w", err)
	}
	for _, s := range schedules {
		if err := c.Register(s); err != nil {
			c.logger.Error("Skipping schedule", "scheduleId", s.ID, "error", err)
		}
	}

	c.cron.Start()
	c.logger.Info("Coordinator started", "schedules", len(c.cron.Entries()))

	<-ctx.Done()
	c.logger.Info("Coordinator shutting down...")
	<-c.cron.Stop().Done()
	return nil
}
