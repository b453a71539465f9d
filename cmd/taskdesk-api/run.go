package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dukex/taskdesk/pkg/cmd"
	"github.com/dukex/taskdesk/pkg/log"
	"github.com/dukex/taskdesk/pkg/otelhelper"
	"github.com/urfave/cli/v3"
)

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("api")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Initializing taskdesk API")

	if command.Bool("otel") {
		tracerProvider, err := otelhelper.Setup(ctx, "taskdesk-api")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		defer func() {
			err := tracerProvider.Shutdown(context.WithoutCancel(ctx))
			if err != nil {
				logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		err := persistence.Close(context.WithoutCancel(ctx))
		if err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	redisClient, err := cmd.NewRedisClient(ctx, logger, command.String("redis-url"))
	if err != nil {
		return err
	}

	if redisClient != nil {
		defer func() {
			err := redisClient.Close()
			if err != nil {
				logger.Error("Failed to close redis client", "error", err)
			}
		}()
	}

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
	if err != nil {
		return err
	}

	defer func() {
		err := eventBus.Close()
		if err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	api, err := NewAPI(logger, persistence, eventBus, redisClient, Config{
		FormIdleTimeout:  command.Duration("form-idle-timeout"),
		StepFetchTimeout: command.Duration("step-fetch-timeout"),
		SweepSchedule:    command.String("form-sweep-schedule"),
	})
	if err != nil {
		return err
	}

	err = api.Start(ctx, int(command.Int("port")))
	if err != nil {
		logger.Error("API server stopped with error", "error", err)

		return err
	}

	logger.Info("API server stopped")

	return nil
}
