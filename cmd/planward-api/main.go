package main

import (
	"context"
	"os"

	"github.com/planward/planward/pkg/cmd"
	"github.com/planward/planward/pkg/log"
	"github.com/planward/planward/pkg/otelhelper"
	"github.com/planward/planward/pkg/planner"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9090

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "planward-api",
		Usage:                 "Create and manage AI-assisted planning sessions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file://, postgres:// or redis://)",
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
				Name:    "agent-url",
				Usage:   "Base URL of the OpenAI-compatible agent endpoint",
				Sources: cli.EnvVars("AGENT_URL"),
			},
			&cli.StringFlag{
				Name:    "agent-key",
				Usage:   "API key for the agent endpoint",
				Sources: cli.EnvVars("AGENT_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "agent-model",
				Usage:   "Model identifier requested from the agent endpoint",
				Sources: cli.EnvVars("AGENT_MODEL"),
			},
			&cli.StringFlag{
				Name:    "memory-url",
				Usage:   "Base URL of the memory service (empty disables memory)",
				Sources: cli.EnvVars("MEMORY_URL"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Usage:   "How long an untouched session is kept before cleanup",
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.StringFlag{
				Name:    "janitor-schedule",
				Usage:   "Cron schedule for the session cleanup pass",
				Sources: cli.EnvVars("JANITOR_SCHEDULE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Planward API")

			if command.Bool("tracing") {
				tracerProvider, err := otelhelper.InitTracing(ctx, "planward-api")
				if err != nil {
					return err
				}

				defer func() {
					if err := tracerProvider.Shutdown(context.WithoutCancel(ctx)); err != nil {
						logger.ErrorContext(ctx, "Failed to shut down tracer provider", "error", err)
					}
				}()
			}

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"), command.Duration("session-ttl"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			manager := planner.NewManager(planner.Dependencies{
				Agent:       cmd.NewAgent(logger, command.String("agent-url"), command.String("agent-key"), command.String("agent-model")),
				Memory:      cmd.NewMemory(command.String("memory-url"), logger),
				Persistence: persistence,
				EventBus:    eventBus,
				Logger:      logger,
			}, planner.ManagerConfig{
				SessionTTL:      command.Duration("session-ttl"),
				JanitorSchedule: command.String("janitor-schedule"),
			})

			api := NewAPI(logger, manager)

			err := api.Start(ctx, command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
