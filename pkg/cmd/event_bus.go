// Package cmd wires shared infrastructure for the binaries.
package cmd

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/journeykit/journey/pkg/channels/gochannel"
	"github.com/journeykit/journey/pkg/channels/kafka"
	"github.com/journeykit/journey/pkg/eventbus"
)

// NewEventBus creates an event bus for the provider. A broker transport that
// cannot connect degrades to the in-process channel instead of aborting
// startup, with a warning so the degradation is visible.
func NewEventBus(provider string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, "journey")
		if err == nil {
			return eventbus.NewWatermillEventBus(pub, sub, logger), nil
		}

		logger.Warn("Kafka transport unavailable, falling back to in-process channel", "error", err)

		fallthrough
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, err
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, err
		}

		logger.Warn("Unknown event bus provider, using in-process channel", "provider", provider)

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	}
}
