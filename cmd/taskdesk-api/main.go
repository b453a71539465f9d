// Package main provides the taskdesk API server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dukex/taskdesk/pkg/services"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	cmd := &cli.Command{
		Name:                  "taskdesk-api",
		Usage:                 "Assign office tasks to users and workflow steps",
		EnableShellCompletion: true,
		Flags:                 flags(),
		Action:                run,
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence (file:// or postgres://)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers, used with --event-bus=kafka",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL of the workflow step cache; empty disables the cache",
			Sources: cli.EnvVars("REDIS_URL"),
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
		&cli.DurationFlag{
			Name:    "form-idle-timeout",
			Usage:   "Discard assignment forms untouched for this long",
			Value:   services.DefaultFormIdleTimeout,
			Sources: cli.EnvVars("FORM_IDLE_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:    "form-sweep-schedule",
			Usage:   "Cron schedule of the idle form sweep",
			Value:   services.DefaultSweepSchedule,
			Sources: cli.EnvVars("FORM_SWEEP_SCHEDULE"),
		},
		&cli.DurationFlag{
			Name:    "step-fetch-timeout",
			Usage:   "Timeout of a single workflow step fetch",
			Value:   services.DefaultStepFetchTimeout,
			Sources: cli.EnvVars("STEP_FETCH_TIMEOUT"),
		},
		&cli.BoolFlag{
			Name:    "otel",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
	}
}
