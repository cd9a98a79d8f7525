package models

import "time"

// Trigger kinds mirror the lifecycle event types that advance the journey.
// They are plain strings here so the events package can depend on models
// without a cycle.
const (
	TriggerSignup       = "signup"
	TriggerProductVisit = "product_visit"
	TriggerInactivity   = "inactivity"
)

// Notification action identifiers resolved by the dispatcher.
const (
	ActionSendWelcome  = "send_welcome_email"
	ActionSendDiscount = "send_discount_email"
	ActionSendReminder = "send_reminder_email"
)

// WorkflowStep is a static catalog entry describing one journey stage.
// The catalog is loaded once at startup and immutable for the process
// lifetime. Delay is only meaningful for the inactivity step.
type WorkflowStep struct {
	ID          int           `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Trigger     string        `json:"trigger"`
	Action      string        `json:"action"`
	Delay       time.Duration `json:"delay,omitempty"`
}

// StepCatalog holds the ordered step definitions.
type StepCatalog struct {
	steps []WorkflowStep
}

// DefaultSteps builds the three-step engagement catalog. quietPeriod is the
// inactivity delay applied to the reminder step.
func DefaultSteps(quietPeriod time.Duration) *StepCatalog {
	return &StepCatalog{steps: []WorkflowStep{
		{
			ID:          1,
			Name:        "welcome",
			Description: "Send a welcome email right after signup",
			Trigger:     TriggerSignup,
			Action:      ActionSendWelcome,
		},
		{
			ID:          2,
			Name:        "discount",
			Description: "Send a category discount after a product page visit",
			Trigger:     TriggerProductVisit,
			Action:      ActionSendDiscount,
		},
		{
			ID:          3,
			Name:        "reminder",
			Description: "Send a come-back reminder after a quiet period",
			Trigger:     TriggerInactivity,
			Action:      ActionSendReminder,
			Delay:       quietPeriod,
		},
	}}
}

func (c *StepCatalog) Steps() []WorkflowStep {
	return c.steps
}

// ByTrigger returns the step fired by the given trigger kind.
func (c *StepCatalog) ByTrigger(trigger string) (WorkflowStep, bool) {
	for _, step := range c.steps {
		if step.Trigger == trigger {
			return step, true
		}
	}

	return WorkflowStep{}, false
}

func (c *StepCatalog) ByID(id int) (WorkflowStep, bool) {
	for _, step := range c.steps {
		if step.ID == id {
			return step, true
		}
	}

	return WorkflowStep{}, false
}
