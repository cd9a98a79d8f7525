package services_test

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
	"github.com/journeykit/journey/pkg/registry"
	"github.com/journeykit/journey/pkg/services"
	"github.com/journeykit/journey/pkg/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	bus       eventbus.EventBus
	registry  *registry.Registry
	timers    *timer.Manager
	customers *services.Customers

	mu        sync.Mutex
	published []eventbus.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.Default()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, logger)
	t.Cleanup(func() { _ = bus.Close() })

	f := &fixture{
		bus:      bus,
		registry: registry.New(),
		timers:   timer.NewManager(logger),
	}
	t.Cleanup(f.timers.StopAll)

	capture := func(_ context.Context, event any) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.published = append(f.published, event.(eventbus.Event))

		return nil
	}
	require.NoError(t, bus.Handle(events.CustomerSignedUpEvent, capture))
	require.NoError(t, bus.Handle(events.ProductVisitedEvent, capture))
	require.NoError(t, bus.Handle(events.CustomerInactiveEvent, capture))
	require.NoError(t, bus.Subscribe(t.Context()))

	f.customers = services.NewCustomers(logger, bus, f.registry, f.timers)

	return f
}

func (f *fixture) publishedTypes() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()

	types := make([]events.EventType, 0, len(f.published))
	for _, event := range f.published {
		types = append(types, event.GetType())
	}

	return types
}

func (f *fixture) seedCustomer(t *testing.T, id string) {
	t.Helper()

	require.NoError(t, f.registry.Create(&models.Customer{
		ID:       id,
		Email:    id + "@example.com",
		Name:     "Customer " + id,
		Workflow: models.NewWorkflowState(),
	}))
}

func TestCustomers_SignUpPublishesEvent(t *testing.T) {
	f := newFixture(t)

	customer, err := f.customers.SignUp(t.Context(), services.SignUpInput{
		Email: "alice@x.com",
		Name:  "Alice",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, customer.ID)
	assert.Equal(t, "alice@x.com", customer.Email)
	assert.Equal(t, 1, customer.Workflow.CurrentStep)
	assert.False(t, customer.SignedUpAt.IsZero())

	require.Eventually(t, func() bool {
		return len(f.publishedTypes()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, events.CustomerSignedUpEvent, f.publishedTypes()[0])
}

func TestCustomers_RecordVisit(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, "c-1")

	visit, err := f.customers.RecordVisit(t.Context(), "c-1", services.VisitInput{
		ProductID: "P1",
		Category:  "Shoes",
	})
	require.NoError(t, err)
	assert.Equal(t, "c-1", visit.CustomerID)
	assert.Equal(t, "Shoes", visit.Category)
	assert.False(t, visit.VisitedAt.IsZero())

	require.Eventually(t, func() bool {
		types := f.publishedTypes()

		return len(types) == 1 && types[0] == events.ProductVisitedEvent
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCustomers_SignUpRejectsIncompleteInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.customers.SignUp(t.Context(), services.SignUpInput{Name: "Alice"})
	require.ErrorIs(t, err, services.ErrInvalidRequest)
	assert.True(t, services.IsValidationError(err))
	assert.Empty(t, f.publishedTypes())
}

func TestCustomers_RecordVisitRejectsIncompleteInput(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, "c-1")

	_, err := f.customers.RecordVisit(t.Context(), "c-1", services.VisitInput{ProductID: "P1"})
	require.ErrorIs(t, err, services.ErrInvalidRequest)
	assert.True(t, services.IsValidationError(err))
	assert.Empty(t, f.publishedTypes())
}

func TestCustomers_RecordVisitUnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.customers.RecordVisit(t.Context(), "missing", services.VisitInput{
		ProductID: "P1",
		Category:  "Shoes",
	})
	require.ErrorIs(t, err, services.ErrCustomerNotFound)
	assert.True(t, services.IsNotFound(err))
}

func TestCustomers_GetAndList(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, "c-1")
	f.seedCustomer(t, "c-2")

	customer, err := f.customers.Get("c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1@example.com", customer.Email)

	_, err = f.customers.Get("missing")
	require.ErrorIs(t, err, services.ErrCustomerNotFound)

	customers := f.customers.List()
	require.Len(t, customers, 2)
	assert.Equal(t, "c-1", customers[0].ID)
	assert.Equal(t, "c-2", customers[1].ID)
}

func TestCustomers_WorkflowStatusReflectsTimer(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, "c-1")

	status, err := f.customers.WorkflowStatus("c-1")
	require.NoError(t, err)
	assert.Equal(t, 1, status.CurrentStep)
	assert.Empty(t, status.CompletedSteps)
	assert.False(t, status.HasActiveReminder)

	f.timers.Schedule("c-1", time.Hour, func() {})

	status, err = f.customers.WorkflowStatus("c-1")
	require.NoError(t, err)
	assert.True(t, status.HasActiveReminder)

	_, err = f.customers.WorkflowStatus("missing")
	require.ErrorIs(t, err, services.ErrCustomerNotFound)
}

func TestCustomers_ForceInactivity(t *testing.T) {
	f := newFixture(t)
	f.seedCustomer(t, "c-1")

	require.NoError(t, f.customers.ForceInactivity(t.Context(), "c-1"))

	require.Eventually(t, func() bool {
		types := f.publishedTypes()

		return len(types) == 1 && types[0] == events.CustomerInactiveEvent
	}, 2*time.Second, 10*time.Millisecond)

	f.mu.Lock()
	inactive := f.published[0].(*events.CustomerInactive)
	f.mu.Unlock()
	assert.Equal(t, events.InactiveReasonForced, inactive.Data.Reason)

	require.ErrorIs(t, f.customers.ForceInactivity(t.Context(), "missing"), services.ErrCustomerNotFound)
}
