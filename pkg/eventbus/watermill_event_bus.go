package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/journeykit/journey/pkg/events"
)

type WatermillEventBus struct {
	logger     *slog.Logger
	publisher  message.Publisher
	subscriber message.Subscriber
	handlers   map[events.EventType]EventHandler
	dispatcher *keyDispatcher
	closed     atomic.Bool
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillEventBus {
	return &WatermillEventBus{
		logger:     logger,
		publisher:  pub,
		subscriber: sub,
		handlers:   make(map[events.EventType]EventHandler),
		dispatcher: newKeyDispatcher(),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	if eb.closed.Load() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.TopicFor(event.GetType()), msg)
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.handlers[eventType] = handler

	return nil
}

// Subscribe consumes every topic. Each message is acked only after its
// handler ran (or was found terminal), so broker transports keep their
// at-least-once contract. Handler errors are logged here and never propagate:
// one bad message must not block the ones behind it.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	for _, topic := range events.AllTopics() {
		messages, err := eb.subscriber.Subscribe(ctx, topic)
		if err != nil {
			return err
		}

		go eb.consume(ctx, topic, messages)
	}

	return nil
}

func (eb *WatermillEventBus) consume(ctx context.Context, topic string, messages <-chan *message.Message) {
	for msg := range messages {
		eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))
		key := msg.Metadata.Get(events.EventMetadataKey)

		handler, exists := eb.handlers[eventType]
		if !exists {
			msg.Ack()

			continue
		}

		event := newEvent(eventType)
		if event == nil {
			eb.logger.Warn("Discarding message with unknown event type",
				"topic", topic, "event_type", string(eventType))
			msg.Ack()

			continue
		}

		if err := json.Unmarshal(msg.Payload, event); err != nil {
			eb.logger.Error("Discarding undecodable message",
				"topic", topic, "event_type", string(eventType), "error", err)
			msg.Ack()

			continue
		}

		// Same-key events stay in publish order; distinct keys run
		// concurrently.
		eb.dispatcher.enqueue(key, func() {
			defer msg.Ack()

			if err := handler(ctx, event); err != nil {
				eb.logger.Error("Event handler failed",
					"topic", topic, "event_type", string(eventType), "key", key, "error", err)
			}
		})
	}
}

func (eb *WatermillEventBus) Close() error {
	if eb.closed.Swap(true) {
		return nil
	}

	err := eb.publisher.Close()

	if serr := eb.subscriber.Close(); err == nil {
		err = serr
	}

	eb.dispatcher.stop()

	return err
}

// newEvent returns a fresh payload struct for the type tag, or nil for types
// outside the closed enumeration.
func newEvent(eventType events.EventType) any {
	switch eventType {
	case events.CustomerSignedUpEvent:
		return &events.CustomerSignedUp{}
	case events.ProductVisitedEvent:
		return &events.ProductVisited{}
	case events.CustomerInactiveEvent:
		return &events.CustomerInactive{}
	case events.WorkflowTriggeredEvent:
		return &events.WorkflowTriggered{}
	case events.WorkflowStepCompletedEvent:
		return &events.WorkflowStepCompleted{}
	case events.EmailRequestedEvent:
		return &events.EmailRequested{}
	case events.EmailSentEvent:
		return &events.EmailSent{}
	default:
		return nil
	}
}

const keyQueueBuffer = 64

// keyDispatcher serializes handler execution per key while letting distinct
// keys proceed concurrently. Events with an empty key share one queue. A
// key's queue and goroutine live until stop; the key space is bounded by the
// customer population, so idle workers are never reaped.
type keyDispatcher struct {
	mu      sync.Mutex
	queues  map[string]chan func()
	wg      sync.WaitGroup
	stopped bool
}

func newKeyDispatcher() *keyDispatcher {
	return &keyDispatcher{queues: make(map[string]chan func())}
}

// enqueue holds the lock across the channel send so stop cannot close a
// queue mid-send. The queues are buffered, so the send only blocks when a
// key's handler has fallen far behind.
func (d *keyDispatcher) enqueue(key string, task func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	queue, exists := d.queues[key]
	if !exists {
		queue = make(chan func(), keyQueueBuffer)
		d.queues[key] = queue

		d.wg.Add(1)

		go func() {
			defer d.wg.Done()

			for fn := range queue {
				fn()
			}
		}()
	}

	queue <- task
}

func (d *keyDispatcher) stop() {
	d.mu.Lock()

	if d.stopped {
		d.mu.Unlock()

		return
	}

	d.stopped = true
	for _, queue := range d.queues {
		close(queue)
	}

	d.mu.Unlock()

	d.wg.Wait()
}
