package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-jobflow/internal/api/handler"
	"go-jobflow/internal/coordinator"
	"go-jobflow/internal/engine"
	"go-jobflow/internal/logging"
	"go-jobflow/internal/metrics"
	"go-jobflow/internal/nodes"
	"go-jobflow/internal/seed"
	"go-jobflow/internal/service"
	"go-jobflow/internal/tracing"
	"go-jobflow/internal/worker"

	"github.com/gin-gonic/gin"
	cli "github.com/urfave/cli/v3"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cmd := &cli.Command{
		Name:  "jobflow-server",
		Usage: "Run workflows, background tasks and schedules behind the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "HTTP listen address",
				Value:   ":8080",
				Sources: cli.EnvVars("HTTP_ADDR"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres connection URL, or \"memory\" for in-process stores",
				Value:   memoryDatabase,
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the task queue and event bus; empty keeps both in process",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "ai-service-url",
				Usage:   "Base URL of the AI service; empty uses offline responses",
				Sources: cli.EnvVars("AI_SERVICE_URL"),
			},
			&cli.IntFlag{
				Name:    "worker-concurrency",
				Usage:   "Number of background task workers",
				Value:   4,
				Sources: cli.EnvVars("WORKER_CONCURRENCY"),
			},
			&cli.DurationFlag{
				Name:    "task-poll-interval",
				Usage:   "How often generator nodes poll their background task",
				Value:   time.Second,
				Sources: cli.EnvVars("TASK_POLL_INTERVAL"),
			},
			&cli.DurationFlag{
				Name:    "task-timeout",
				Usage:   "How long generator nodes wait for their background task",
				Value:   5 * time.Minute,
				Sources: cli.EnvVars("TASK_TIMEOUT"),
			},
			&cli.DurationFlag{
				Name:    "retry-backoff",
				Usage:   "Base delay before a failed execution is retried",
				Value:   2 * time.Second,
				Sources: cli.EnvVars("RETRY_BACKOFF"),
			},
			&cli.StringFlag{
				Name:    "seed-file",
				Usage:   "YAML file of workflows, schedules and webhooks loaded at startup",
				Sources: cli.EnvVars("SEED_FILE"),
			},
			&cli.BoolFlag{
				Name:    "otlp",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTLP_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logging.WithModule("server").Error("Server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	logging.Setup(command.String("log-level"), command.String("log-format"))
	logger := logging.WithModule("server")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if command.Bool("otlp") {
		shutdownTracing, err := tracing.Setup(ctx, "jobflow")
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("Failed to flush traces", "error", err)
			}
		}()
	}

	st, err := newStores(command.String("database-url"), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	tr, err := newTransport(ctx, command.String("redis-addr"), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := tr.close(); err != nil {
			logger.Error("Failed to close transport", "error", err)
		}
	}()

	if path := command.String("seed-file"); path != "" {
		f, err := seed.LoadFile(path)
		if err != nil {
			return err
		}
		if err := f.Apply(ctx, seed.Stores{Workflows: st.workflows, Schedules: st.schedules, Webhooks: st.webhooks}); err != nil {
			return err
		}
		logger.Info("Seed loaded", "workflows", len(f.Workflows), "schedules", len(f.Schedules), "webhooks", len(f.Webhooks))
	}

	recorder := metrics.NewRecorder()
	aiSvc := newAIService(command.String("ai-service-url"), logger)
	tasks := service.NewTaskService(st.tasks, tr.queue)

	cfg := engine.DefaultConfig()
	cfg.PollInterval = command.Duration("task-poll-interval")
	cfg.TaskTimeout = command.Duration("task-timeout")
	cfg.RetryBaseDelay = command.Duration("retry-backoff")

	registry := nodes.NewDefaultRegistry(nodes.Dependencies{
		Analyzer:     aiSvc,
		Chat:         aiSvc,
		Tasks:        tasks,
		PollInterval: cfg.PollInterval,
		TaskTimeout:  cfg.TaskTimeout,
	})

	executor := engine.NewExecutor(st.workflows, st.executions, st.logs, registry, cfg,
		engine.WithEventBus(tr.bus),
		engine.WithMetrics(recorder),
		engine.WithLogger(logging.WithModule("engine")),
	)

	workers := worker.NewWorker(tr.queue, st.tasks, tr.bus, worker.InitRegistry(aiSvc), recorder, logging.WithModule("worker"))
	workers.StartPool(ctx, int(command.Int("worker-concurrency")))

	schedules := coordinator.NewCoordinator(st.schedules, executor, logging.WithModule("coordinator"))
	coordinatorDone := make(chan error, 1)
	go func() { coordinatorDone <- schedules.Start(ctx) }()

	workflows := service.NewWorkflowService(st.workflows, st.executions, st.webhooks, executor, registry, tr.bus, logging.WithModule("service"))

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(recorder.Handler()))
	handler.NewWorkflowHandler(workflows).RegisterRoutes(router.Group("/api/v1"))

	srv := &http.Server{
		Addr:              command.String("addr"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("HTTP server failed", "error", err)
		}
		stop()
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	if err := executor.Shutdown(shutdownCtx); err != nil {
		logger.Error("Executor shutdown failed", "error", err)
	}
	workers.Wait()
	if err := <-coordinatorDone; err != nil {
		logger.Error("Coordinator stopped with error", "error", err)
	}
	return nil
}
