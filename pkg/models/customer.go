// Package models defines the core domain models for the customer engagement journey.
package models

import (
	"sort"
	"time"
)

// Metadata keys written by the workflow engine on product visits.
const (
	MetadataLastVisitProduct  = "last_visit_product"
	MetadataLastVisitCategory = "last_visit_category"
	MetadataLastVisitAt       = "last_visit_at"
)

// Customer is the per-customer journey entity. It is created when a signup
// event is consumed and from then on mutated only by the workflow engine
// through the registry.
type Customer struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"            validate:"required,email"`
	Name           string         `json:"name"             validate:"required"`
	SignedUpAt     time.Time      `json:"signed_up_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	Preferences    map[string]any `json:"preferences,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Workflow       WorkflowState  `json:"workflow"`
}

// Clone returns a deep copy so registry readers never alias engine-owned state.
func (c *Customer) Clone() *Customer {
	clone := *c
	clone.Preferences = cloneMap(c.Preferences)
	clone.Metadata = cloneMap(c.Metadata)
	clone.Workflow = *c.Workflow.Clone()

	return &clone
}

// WorkflowState tracks a customer's position in the engagement journey.
// CurrentStep is a monotonic high-water mark: it never decreases and is
// always at least max(completed)+1.
type WorkflowState struct {
	CurrentStep    int          `json:"current_step"`
	Completed      map[int]bool `json:"completed_steps"`
	WelcomeSent    bool         `json:"welcome_sent"`
	DiscountSent   bool         `json:"discount_sent"`
	ReminderSent   bool         `json:"reminder_sent"`
	LastNotifiedAt *time.Time   `json:"last_notified_at,omitempty"`
}

func NewWorkflowState() WorkflowState {
	return WorkflowState{
		CurrentStep: 1,
		Completed:   make(map[int]bool),
	}
}

func (w *WorkflowState) Clone() *WorkflowState {
	clone := *w

	clone.Completed = make(map[int]bool, len(w.Completed))
	for id := range w.Completed {
		clone.Completed[id] = true
	}

	if w.LastNotifiedAt != nil {
		at := *w.LastNotifiedAt
		clone.LastNotifiedAt = &at
	}

	return &clone
}

func (w *WorkflowState) IsCompleted(stepID int) bool {
	return w.Completed[stepID]
}

// MarkCompleted records the step as done and advances the high-water mark.
// It reports false when the step was already in the completed set.
func (w *WorkflowState) MarkCompleted(stepID int, at time.Time) bool {
	if w.Completed[stepID] {
		return false
	}

	w.Completed[stepID] = true
	if next := stepID + 1; next > w.CurrentStep {
		w.CurrentStep = next
	}

	w.LastNotifiedAt = &at

	return true
}

// CompletedList returns the completed step ids in ascending order.
func (w *WorkflowState) CompletedList() []int {
	ids := make([]int, 0, len(w.Completed))
	for id := range w.Completed {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids
}

// VisitRecord is the boundary view returned when a product visit is accepted.
type VisitRecord struct {
	CustomerID  string    `json:"customer_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Category    string    `json:"category"`
	VisitedAt   time.Time `json:"visited_at"`
}

// WorkflowStatus is the boundary view assembled for workflow status queries.
type WorkflowStatus struct {
	CustomerID        string     `json:"customer_id"`
	CurrentStep       int        `json:"current_step"`
	CompletedSteps    []int      `json:"completed_steps"`
	WelcomeSent       bool       `json:"welcome_sent"`
	DiscountSent      bool       `json:"discount_sent"`
	ReminderSent      bool       `json:"reminder_sent"`
	LastNotifiedAt    *time.Time `json:"last_notified_at,omitempty"`
	HasActiveReminder bool       `json:"has_active_reminder"`
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	clone := make(map[string]any, len(m))
	for k, v := range m {
		clone[k] = v
	}

	return clone
}
