// Package engine drives the per-customer engagement state machine. It
// consumes lifecycle events from the bus, mutates the registry, invokes the
// notification dispatcher and republishes workflow progress events.
//
// Concurrency: the bus serializes same-key deliveries, so handlers for one
// customer never overlap and the idempotency-gate check through the
// completion write behaves as one atomic unit. Distinct customers run
// concurrently.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/journeykit/journey/pkg/eventbus"
	"github.com/journeykit/journey/pkg/events"
	"github.com/journeykit/journey/pkg/models"
	"github.com/journeykit/journey/pkg/registry"
	"github.com/journeykit/journey/pkg/timer"
)

const reminderStepID = 3

// NotificationDispatcher renders and simulates delivery of one notification.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, action string, customer *models.Customer, contextData map[string]any) error
}

type Engine struct {
	logger     *slog.Logger
	bus        eventbus.EventBus
	registry   *registry.Registry
	timers     *timer.Manager
	dispatcher NotificationDispatcher
	catalog    *models.StepCatalog

	// baseCtx outlives individual event handlers; timer callbacks publish
	// with it because the triggering handler's context is long gone.
	baseCtx context.Context
}

func New(
	logger *slog.Logger,
	bus eventbus.EventBus,
	reg *registry.Registry,
	timers *timer.Manager,
	dispatcher NotificationDispatcher,
	catalog *models.StepCatalog,
) *Engine {
	return &Engine{
		logger:     logger,
		bus:        bus,
		registry:   reg,
		timers:     timers,
		dispatcher: dispatcher,
		catalog:    catalog,
	}
}

// Start registers the lifecycle handlers and begins consuming the bus.
func (e *Engine) Start(ctx context.Context) error {
	e.baseCtx = ctx

	handlers := map[events.EventType]eventbus.EventHandler{
		events.CustomerSignedUpEvent: e.handleSignup,
		events.ProductVisitedEvent:   e.handleProductVisit,
		events.CustomerInactiveEvent: e.handleInactive,
	}

	for eventType, handler := range handlers {
		if err := e.bus.Handle(eventType, handler); err != nil {
			return fmt.Errorf("register handler for %s: %w", eventType, err)
		}
	}

	return e.bus.Subscribe(ctx)
}

func (e *Engine) handleSignup(ctx context.Context, event any) error {
	ev, ok := event.(*events.CustomerSignedUp)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, events.CustomerSignedUpEvent)
	}

	customer := &models.Customer{
		ID:             ev.Data.CustomerID,
		Email:          ev.Data.Email,
		Name:           ev.Data.Name,
		SignedUpAt:     ev.Data.SignedUpAt,
		LastActivityAt: ev.Data.SignedUpAt,
		Preferences:    ev.Data.Preferences,
		Metadata:       make(map[string]any),
		Workflow:       models.NewWorkflowState(),
	}

	if err := e.registry.Create(customer); err != nil {
		if !errors.Is(err, registry.ErrCustomerAlreadyExists) {
			return err
		}

		// Replayed signup. The welcome gate below keeps it idempotent.
		e.logger.Debug("Customer already registered", "customer_id", customer.ID)
	}

	e.runStep(ctx, customer.ID, models.TriggerSignup, nil)

	e.armInactivityTimer(customer.ID)

	return nil
}

func (e *Engine) handleProductVisit(ctx context.Context, event any) error {
	ev, ok := event.(*events.ProductVisited)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, events.ProductVisitedEvent)
	}

	customerID := ev.Data.CustomerID

	err := e.registry.Update(customerID, func(c *models.Customer) {
		c.LastActivityAt = ev.Data.VisitedAt

		if c.Metadata == nil {
			c.Metadata = make(map[string]any)
		}

		c.Metadata[models.MetadataLastVisitProduct] = ev.Data.ProductID
		c.Metadata[models.MetadataLastVisitCategory] = ev.Data.Category
		c.Metadata[models.MetadataLastVisitAt] = ev.Data.VisitedAt.Format(time.RFC3339)
	})
	if errors.Is(err, registry.ErrCustomerNotFound) {
		e.logger.Warn("Discarding product visit for unknown customer", "customer_id", customerID)

		return nil
	} else if err != nil {
		return err
	}

	e.runStep(ctx, customerID, models.TriggerProductVisit, map[string]any{
		"product_id": ev.Data.ProductID,
		"category":   ev.Data.Category,
	})

	// Any activity resets the inactivity clock, even when the discount step
	// is already done. Schedule replaces the pending timer atomically.
	e.armInactivityTimer(customerID)

	return nil
}

func (e *Engine) handleInactive(ctx context.Context, event any) error {
	ev, ok := event.(*events.CustomerInactive)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, events.CustomerInactiveEvent)
	}

	customerID := ev.Data.CustomerID

	customer, exists := e.registry.Get(customerID)
	if !exists {
		e.logger.Warn("Discarding inactivity event for unknown customer",
			"customer_id", customerID, "reason", ev.Data.Reason)

		return nil
	}

	// A visit can land between the timer firing and this handler running; by
	// the time we get here the visit handler has already re-armed the clock.
	// Re-check recency so the stale fire neither sends the reminder nor
	// cancels the replacement timer. Forced inactivity skips the check.
	if ev.Data.Reason == events.InactiveReasonTimer && !e.quietPeriodElapsed(customer) {
		e.logger.Debug("Discarding stale inactivity event",
			"customer_id", customerID, "last_activity_at", customer.LastActivityAt)

		return nil
	}

	// The forced path may still have a live timer; the timer-fired path has
	// already cleared its own entry.
	e.timers.Cancel(customerID)

	e.runStep(ctx, customerID, models.TriggerInactivity, nil)

	return nil
}

// quietPeriodElapsed reports whether the customer has gone a full quiet
// period without activity.
func (e *Engine) quietPeriodElapsed(customer *models.Customer) bool {
	step, ok := e.catalog.ByID(reminderStepID)
	if !ok || step.Delay <= 0 {
		return true
	}

	return time.Since(customer.LastActivityAt) >= step.Delay
}

// runStep executes the catalog step fired by the trigger: idempotency gate,
// synchronous dispatch, completion write, progress events. Dispatch failures
// are terminal for this occurrence; the step stays incomplete and will only
// run again if the trigger recurs.
func (e *Engine) runStep(ctx context.Context, customerID, trigger string, contextData map[string]any) {
	step, ok := e.catalog.ByTrigger(trigger)
	if !ok {
		return
	}

	customer, exists := e.registry.Get(customerID)
	if !exists {
		e.logger.Warn("Discarding event for unknown customer",
			"customer_id", customerID, "trigger", trigger)

		return
	}

	if customer.Workflow.IsCompleted(step.ID) {
		e.logger.Debug("Step already completed, skipping dispatch",
			"customer_id", customerID, "step", step.Name)

		return
	}

	e.publish(ctx, customerID, events.WorkflowTriggered{
		BaseEvent: events.NewBase(e.bus.GenerateID(), events.WorkflowTriggeredEvent),
		Data: events.TriggerData{
			CustomerID: customerID,
			StepID:     step.ID,
			StepName:   step.Name,
			Action:     step.Action,
		},
	})

	if err := e.dispatcher.Dispatch(ctx, step.Action, customer, contextData); err != nil {
		e.logger.Error("Notification dispatch failed, step remains incomplete",
			"customer_id", customerID, "step", step.Name, "action", step.Action, "error", err)

		return
	}

	completedAt := time.Now().UTC()

	err := e.registry.Update(customerID, func(c *models.Customer) {
		if !c.Workflow.MarkCompleted(step.ID, completedAt) {
			return
		}

		switch step.ID {
		case 1:
			c.Workflow.WelcomeSent = true
		case 2:
			c.Workflow.DiscountSent = true
		case reminderStepID:
			c.Workflow.ReminderSent = true
		}
	})
	if err != nil {
		e.logger.Error("Failed to record step completion",
			"customer_id", customerID, "step", step.Name, "error", err)

		return
	}

	e.publish(ctx, customerID, events.WorkflowStepCompleted{
		BaseEvent: events.NewBase(e.bus.GenerateID(), events.WorkflowStepCompletedEvent),
		Data: events.StepCompletedData{
			CustomerID:  customerID,
			StepID:      step.ID,
			StepName:    step.Name,
			Action:      step.Action,
			CompletedAt: completedAt,
		},
	})

	e.logger.Info("Workflow step completed",
		"customer_id", customerID, "step", step.Name, "current_step", step.ID+1)
}

func (e *Engine) armInactivityTimer(customerID string) {
	step, ok := e.catalog.ByID(reminderStepID)
	if !ok || step.Delay <= 0 {
		return
	}

	e.timers.Schedule(customerID, step.Delay, func() {
		e.onInactivityTimerFired(customerID)
	})
}

// onInactivityTimerFired re-validates the scheduling condition: the customer
// may have completed the reminder, been active again or vanished between
// arming and firing. A stale fire is a silent no-op. Fresh fires go through
// the bus so the timer path and externally forced inactivity share one
// handling path; the serialized handler repeats the recency check because a
// visit can still overtake the published event.
func (e *Engine) onInactivityTimerFired(customerID string) {
	customer, exists := e.registry.Get(customerID)
	if !exists || customer.Workflow.IsCompleted(reminderStepID) || !e.quietPeriodElapsed(customer) {
		return
	}

	e.publish(e.baseCtx, customerID, events.CustomerInactive{
		BaseEvent: events.NewBase(e.bus.GenerateID(), events.CustomerInactiveEvent),
		Data: events.InactiveData{
			CustomerID: customerID,
			Reason:     events.InactiveReasonTimer,
			DetectedAt: time.Now().UTC(),
		},
	})
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if err := e.bus.Publish(ctx, key, event); err != nil {
		e.logger.Error("Failed to publish event",
			"event_type", event.GetType(), "key", key, "error", err)
	}
}
