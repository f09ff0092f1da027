package main

import (
	"context"
	"fmt"
	"log/slog"

	"go-jobflow/internal/core/memory"
	"go-jobflow/internal/core/ports"
	"go-jobflow/internal/core/postgres/repository"
	"go-jobflow/internal/infrastructure/ai"
	"go-jobflow/internal/infrastructure/eventbus"
	redisinfra "go-jobflow/internal/infrastructure/redis"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// memoryDatabase selects the in-process stores.
const memoryDatabase = "memory"

type stores struct {
	workflows  ports.WorkflowRepository
	executions ports.ExecutionRepository
	logs       ports.LogRepository
	tasks      ports.TaskRepository
	schedules  ports.ScheduleRepository
	webhooks   ports.WebhookRepository

	close func() error
}

func newStores(databaseURL string, logger *slog.Logger) (*stores, error) {
	if databaseURL == "" || databaseURL == memoryDatabase {
		logger.Warn("Using in-memory stores, state is lost on restart")
		s := memory.NewStore()
		return &stores{
			workflows:  s.Workflows(),
			executions: s.Executions(),
			logs:       s.Logs(),
			tasks:      s.Tasks(),
			schedules:  s.Schedules(),
			webhooks:   s.Webhooks(),
			close:      func() error { return nil },
		}, nil
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	return &stores{
		workflows:  repository.NewWorkflowRepository(db),
		executions: repository.NewExecutionRepository(db),
		logs:       repository.NewLogRepository(db),
		tasks:      repository.NewTaskRepository(db),
		schedules:  repository.NewScheduleRepository(db),
		webhooks:   repository.NewWebhookRepository(db),
		close:      sqlDB.Close,
	}, nil
}

type transport struct {
	queue ports.TaskQueue
	bus   ports.EventBus
	close func() error
}

// newTransport connects the task queue and the event bus to Redis, or keeps
// both in process when no address is given.
func newTransport(ctx context.Context, redisAddr string, logger *slog.Logger) (*transport, error) {
	if redisAddr == "" {
		bus := eventbus.NewGoChannelBus(logger)
		return &transport{
			queue: memory.NewQueue(0),
			bus:   bus,
			close: bus.Close,
		}, nil
	}

	client, err := redisinfra.NewRedisClient(ctx, redisAddr)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &transport{
		queue: redisinfra.NewRedisQueue(client),
		bus:   redisinfra.NewRedisEventBus(client, logger),
		close: client.Close,
	}, nil
}

type aiService interface {
	ports.JobAnalyzer
	ports.ChatAgent
	ports.ContentGenerator
}

func newAIService(baseURL string, logger *slog.Logger) aiService {
	if baseURL == "" {
		logger.Warn("No AI service configured, using offline responses")
		return ai.Offline{}
	}
	return ai.NewClient(baseURL)
}
