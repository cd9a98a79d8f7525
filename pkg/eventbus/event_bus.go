// Package eventbus provides the publish/subscribe abstraction the journey
// engine runs on. Transports plug in behind the EventBus interface; delivery
// is asynchronous relative to Publish, except that events sharing a key (the
// customer id) are handed to handlers in publish order.
package eventbus

import (
	"context"
	"errors"

	"github.com/journeykit/journey/pkg/events"
)

// ErrNotConnected is returned by Publish once the bus is closed or before a
// transport is attached.
var ErrNotConnected = errors.New("event bus is not connected")

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
