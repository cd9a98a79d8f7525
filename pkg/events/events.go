// Package events defines the closed event vocabulary and topic routing for
// the engagement journey.
package events

import "time"

type EventType string

// Topics. Customer lifecycle, workflow progress and notification traffic are
// routed separately so observers can subscribe to just the stream they need.
const (
	CustomersTopic     = "journey.customers"
	WorkflowTopic      = "journey.workflow"
	NotificationsTopic = "journey.notifications"
)

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Customer lifecycle events.
	CustomerSignedUpEvent EventType = "customer.signup"
	ProductVisitedEvent   EventType = "customer.product_visit"
	CustomerInactiveEvent EventType = "customer.inactive"

	// Workflow progress events.
	WorkflowTriggeredEvent     EventType = "workflow.trigger"
	WorkflowStepCompletedEvent EventType = "workflow.step"

	// Notification events.
	EmailRequestedEvent EventType = "notification.email_request"
	EmailSentEvent      EventType = "notification.email_sent"
)

// TopicFor maps an event type onto its topic.
func TopicFor(eventType EventType) string {
	switch eventType {
	case CustomerSignedUpEvent, ProductVisitedEvent, CustomerInactiveEvent:
		return CustomersTopic
	case WorkflowTriggeredEvent, WorkflowStepCompletedEvent:
		return WorkflowTopic
	case EmailRequestedEvent, EmailSentEvent:
		return NotificationsTopic
	default:
		return CustomersTopic
	}
}

// AllTopics lists every topic the bus consumes.
func AllTopics() []string {
	return []string{CustomersTopic, WorkflowTopic, NotificationsTopic}
}

// BaseEvent is the wire envelope shared by every event: id, type and an
// RFC 3339 timestamp at the top level, the typed payload under "data".
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBase(id string, eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        id,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

type SignupData struct {
	CustomerID  string         `json:"customer_id"`
	Email       string         `json:"email"`
	Name        string         `json:"name"`
	Preferences map[string]any `json:"preferences,omitempty"`
	SignedUpAt  time.Time      `json:"signed_up_at"`
}

type CustomerSignedUp struct {
	BaseEvent

	Data SignupData `json:"data"`
}

func (e CustomerSignedUp) GetType() EventType {
	return CustomerSignedUpEvent
}

type VisitData struct {
	CustomerID  string    `json:"customer_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Category    string    `json:"category"`
	VisitedAt   time.Time `json:"visited_at"`
}

type ProductVisited struct {
	BaseEvent

	Data VisitData `json:"data"`
}

func (e ProductVisited) GetType() EventType {
	return ProductVisitedEvent
}

// Inactivity reasons carried by CustomerInactive events.
const (
	InactiveReasonTimer  = "timer"
	InactiveReasonForced = "forced"
)

type InactiveData struct {
	CustomerID string    `json:"customer_id"`
	Reason     string    `json:"reason"`
	DetectedAt time.Time `json:"detected_at"`
}

type CustomerInactive struct {
	BaseEvent

	Data InactiveData `json:"data"`
}

func (e CustomerInactive) GetType() EventType {
	return CustomerInactiveEvent
}

type TriggerData struct {
	CustomerID string `json:"customer_id"`
	StepID     int    `json:"step_id"`
	StepName   string `json:"step_name"`
	Action     string `json:"action"`
}

// WorkflowTriggered is published when a step passes its idempotency gate,
// before the notification dispatch begins.
type WorkflowTriggered struct {
	BaseEvent

	Data TriggerData `json:"data"`
}

func (e WorkflowTriggered) GetType() EventType {
	return WorkflowTriggeredEvent
}

type StepCompletedData struct {
	CustomerID  string    `json:"customer_id"`
	StepID      int       `json:"step_id"`
	StepName    string    `json:"step_name"`
	Action      string    `json:"action"`
	CompletedAt time.Time `json:"completed_at"`
}

// WorkflowStepCompleted is republished by the engine after a step finishes,
// for observability and testing consumers.
type WorkflowStepCompleted struct {
	BaseEvent

	Data StepCompletedData `json:"data"`
}

func (e WorkflowStepCompleted) GetType() EventType {
	return WorkflowStepCompletedEvent
}

type EmailRequestData struct {
	CustomerID string `json:"customer_id"`
	Action     string `json:"action"`
	To         string `json:"to"`
}

type EmailRequested struct {
	BaseEvent

	Data EmailRequestData `json:"data"`
}

func (e EmailRequested) GetType() EventType {
	return EmailRequestedEvent
}

type EmailSentData struct {
	CustomerID string    `json:"customer_id"`
	Action     string    `json:"action"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sent_at"`
}

type EmailSent struct {
	BaseEvent

	Data EmailSentData `json:"data"`
}

func (e EmailSent) GetType() EventType {
	return EmailSentEvent
}
