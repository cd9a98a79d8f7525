package main

import (
	"context"
	"time"

	"github.com/journeykit/journey/pkg/cmd"
	"github.com/journeykit/journey/pkg/config"
	"github.com/journeykit/journey/pkg/engine"
	"github.com/journeykit/journey/pkg/log"
	"github.com/journeykit/journey/pkg/models"
	"github.com/journeykit/journey/pkg/notifier"
	"github.com/journeykit/journey/pkg/registry"
	"github.com/journeykit/journey/pkg/services"
	"github.com/journeykit/journey/pkg/timer"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort        = 9090
	defaultQuietPeriod = 24 * time.Hour
)

func RunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Start the engine and the API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus transport (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.DurationFlag{
				Name:    "quiet-period",
				Usage:   "Inactivity duration before the reminder step fires",
				Value:   defaultQuietPeriod,
				Sources: cli.EnvVars("QUIET_PERIOD"),
			},
			&cli.BoolFlag{
				Name:    "demo",
				Usage:   "Shorten the quiet period for demos",
				Sources: cli.EnvVars("DEMO_MODE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg := config.Config{
				Port:        int(command.Int("port")),
				EventBus:    command.String("event-bus"),
				QuietPeriod: command.Duration("quiet-period"),
				Demo:        command.Bool("demo"),
				LogLevel:    command.String("log-level"),
			}

			log.Setup(cfg.LogLevel)

			logger := log.WithModule("journey")
			logger.Info("Initializing journey server",
				"event_bus", cfg.EventBus, "quiet_period", cfg.EffectiveQuietPeriod(), "demo", cfg.Demo)

			eventBus, err := cmd.NewEventBus(cfg.EventBus, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			customerRegistry := registry.New()
			timers := timer.NewManager(log.WithModule("timer"))
			defer timers.StopAll()

			dispatcher := notifier.NewDispatcher(log.WithModule("notifier"), eventBus)
			catalog := models.DefaultSteps(cfg.EffectiveQuietPeriod())

			workflowEngine := engine.New(
				log.WithModule("engine"),
				eventBus,
				customerRegistry,
				timers,
				dispatcher,
				catalog,
			)
			if err := workflowEngine.Start(ctx); err != nil {
				return err
			}

			customers := services.NewCustomers(log.WithModule("services"), eventBus, customerRegistry, timers)

			api := NewAPI(log.WithModule("api"), customers)

			return api.Start(cfg.Port)
		},
	}
}
