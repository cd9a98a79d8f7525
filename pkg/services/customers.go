package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/journeykit/journey/pkg/eventbus"
	"github.com/journeykit/journey/pkg/events"
	"github.com/journeykit/journey/pkg/models"
	"github.com/journeykit/journey/pkg/registry"
	"github.com/journeykit/journey/pkg/timer"
)

type SignUpInput struct {
	Email       string
	Name        string
	Preferences map[string]any
}

type VisitInput struct {
	ProductID   string
	ProductName string
	Category    string
}

// Customers publishes lifecycle events into the bus and reads registry/timer
// state for queries. It never mutates the registry: the engine is the single
// writer, this service only constructs envelopes and publishes.
type Customers struct {
	logger   *slog.Logger
	bus      eventbus.EventBus
	registry *registry.Registry
	timers   *timer.Manager
}

func NewCustomers(logger *slog.Logger, bus eventbus.EventBus, reg *registry.Registry, timers *timer.Manager) *Customers {
	return &Customers{
		logger:   logger,
		bus:      bus,
		registry: reg,
		timers:   timers,
	}
}

// SignUp constructs the customer envelope and publishes the signup event. The
// registry entry appears once the engine consumes the event; the returned
// customer is the envelope, not a registry read.
func (s *Customers) SignUp(ctx context.Context, input SignUpInput) (*models.Customer, error) {
	if input.Email == "" || input.Name == "" {
		return nil, fmt.Errorf("%w: email and name are required", ErrInvalidRequest)
	}

	now := time.Now().UTC()

	customer := &models.Customer{
		ID:             s.bus.GenerateID(),
		Email:          input.Email,
		Name:           input.Name,
		SignedUpAt:     now,
		LastActivityAt: now,
		Preferences:    input.Preferences,
		Metadata:       make(map[string]any),
		Workflow:       models.NewWorkflowState(),
	}

	event := events.CustomerSignedUp{
		BaseEvent: events.NewBase(s.bus.GenerateID(), events.CustomerSignedUpEvent),
		Data: events.SignupData{
			CustomerID:  customer.ID,
			Email:       customer.Email,
			Name:        customer.Name,
			Preferences: customer.Preferences,
			SignedUpAt:  customer.SignedUpAt,
		},
	}

	if err := s.bus.Publish(ctx, customer.ID, event); err != nil {
		return nil, fmt.Errorf("publish signup event: %w", err)
	}

	s.logger.Info("Customer signup accepted", "customer_id", customer.ID, "email", customer.Email)

	return customer, nil
}

// RecordVisit publishes a product visit for an existing customer.
func (s *Customers) RecordVisit(ctx context.Context, customerID string, input VisitInput) (*models.VisitRecord, error) {
	if input.ProductID == "" || input.Category == "" {
		return nil, fmt.Errorf("%w: product_id and category are required", ErrInvalidRequest)
	}

	if _, exists := s.registry.Get(customerID); !exists {
		return nil, ErrCustomerNotFound
	}

	visit := &models.VisitRecord{
		CustomerID:  customerID,
		ProductID:   input.ProductID,
		ProductName: input.ProductName,
		Category:    input.Category,
		VisitedAt:   time.Now().UTC(),
	}

	event := events.ProductVisited{
		BaseEvent: events.NewBase(s.bus.GenerateID(), events.ProductVisitedEvent),
		Data: events.VisitData{
			CustomerID:  visit.CustomerID,
			ProductID:   visit.ProductID,
			ProductName: visit.ProductName,
			Category:    visit.Category,
			VisitedAt:   visit.VisitedAt,
		},
	}

	if err := s.bus.Publish(ctx, customerID, event); err != nil {
		return nil, fmt.Errorf("publish visit event: %w", err)
	}

	return visit, nil
}

func (s *Customers) Get(customerID string) (*models.Customer, error) {
	customer, exists := s.registry.Get(customerID)
	if !exists {
		return nil, ErrCustomerNotFound
	}

	return customer, nil
}

func (s *Customers) List() []*models.Customer {
	return s.registry.List()
}

// WorkflowStatus assembles the status view, including the timer presence
// check backing "has active reminder".
func (s *Customers) WorkflowStatus(customerID string) (*models.WorkflowStatus, error) {
	customer, exists := s.registry.Get(customerID)
	if !exists {
		return nil, ErrCustomerNotFound
	}

	return &models.WorkflowStatus{
		CustomerID:        customer.ID,
		CurrentStep:       customer.Workflow.CurrentStep,
		CompletedSteps:    customer.Workflow.CompletedList(),
		WelcomeSent:       customer.Workflow.WelcomeSent,
		DiscountSent:      customer.Workflow.DiscountSent,
		ReminderSent:      customer.Workflow.ReminderSent,
		LastNotifiedAt:    customer.Workflow.LastNotifiedAt,
		HasActiveReminder: s.timers.Pending(customerID),
	}, nil
}

// ForceInactivity is the demo hook behind the advance-time endpoint: it
// publishes a customer-inactive event so the forced path runs through the
// same handler as a real timer fire.
func (s *Customers) ForceInactivity(ctx context.Context, customerID string) error {
	if _, exists := s.registry.Get(customerID); !exists {
		return ErrCustomerNotFound
	}

	event := events.CustomerInactive{
		BaseEvent: events.NewBase(s.bus.GenerateID(), events.CustomerInactiveEvent),
		Data: events.InactiveData{
			CustomerID: customerID,
			Reason:     events.InactiveReasonForced,
			DetectedAt: time.Now().UTC(),
		},
	}

	if err := s.bus.Publish(ctx, customerID, event); err != nil {
		return fmt.Errorf("publish inactivity event: %w", err)
	}

	return nil
}
