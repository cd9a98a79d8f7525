package notifier_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/journeykit/journey/pkg/channels/gochannel"
	"github.com/journeykit/journey/pkg/eventbus"
	"github.com/journeykit/journey/pkg/events"
	"github.com/journeykit/journey/pkg/models"
	"github.com/journeykit/journey/pkg/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emailCapture struct {
	mu        sync.Mutex
	requested []*events.EmailRequested
	sent      []*events.EmailSent
}

func (c *emailCapture) register(t *testing.T, bus eventbus.EventBus) {
	t.Helper()

	err := bus.Handle(events.EmailRequestedEvent, func(_ context.Context, event any) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.requested = append(c.requested, event.(*events.EmailRequested))

		return nil
	})
	require.NoError(t, err)

	err = bus.Handle(events.EmailSentEvent, func(_ context.Context, event any) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.sent = append(c.sent, event.(*events.EmailSent))

		return nil
	})
	require.NoError(t, err)
}

func (c *emailCapture) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.sent)
}

func setupDispatcher(t *testing.T) (*notifier.Dispatcher, *emailCapture) {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(slog.Default()))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, slog.Default())
	t.Cleanup(func() { _ = bus.Close() })

	capture := &emailCapture{}
	capture.register(t, bus)
	require.NoError(t, bus.Subscribe(t.Context()))

	return notifier.NewDispatcher(slog.Default(), bus).WithMaxLatency(0), capture
}

func testCustomer() *models.Customer {
	return &models.Customer{
		ID:       "c-1",
		Email:    "alice@x.com",
		Name:     "Alice",
		Workflow: models.NewWorkflowState(),
	}
}

func TestDispatcher_WelcomeEmail(t *testing.T) {
	dispatcher, capture := setupDispatcher(t)

	err := dispatcher.Dispatch(t.Context(), models.ActionSendWelcome, testCustomer(), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return capture.sentCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	capture.mu.Lock()
	defer capture.mu.Unlock()

	require.Len(t, capture.requested, 1)
	assert.Equal(t, "alice@x.com", capture.requested[0].Data.To)

	sent := capture.sent[0]
	assert.Equal(t, "c-1", sent.Data.CustomerID)
	assert.Equal(t, models.ActionSendWelcome, sent.Data.Action)
	assert.Equal(t, "Welcome aboard, Alice!", sent.Data.Subject)
	assert.Contains(t, sent.Data.Body, "Thanks for signing up with alice@x.com")
	assert.False(t, sent.Data.SentAt.IsZero())
}

func TestDispatcher_DiscountEmailCarriesCategory(t *testing.T) {
	dispatcher, capture := setupDispatcher(t)

	err := dispatcher.Dispatch(t.Context(), models.ActionSendDiscount, testCustomer(), map[string]any{
		"product_id": "P1",
		"category":   "Shoes",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return capture.sentCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	capture.mu.Lock()
	defer capture.mu.Unlock()

	sent := capture.sent[0]
	assert.Equal(t, "A Shoes discount just for you", sent.Data.Subject)
	assert.Contains(t, sent.Data.Body, "browsing Shoes")
}

func TestDispatcher_UnknownAction(t *testing.T) {
	dispatcher, capture := setupDispatcher(t)

	err := dispatcher.Dispatch(t.Context(), "send_carrier_pigeon", testCustomer(), nil)
	require.ErrorIs(t, err, notifier.ErrUnknownAction)

	// Nothing was published for the failed dispatch.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, capture.sentCount())
}
