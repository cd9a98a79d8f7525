// Package web provides the HTTP boundary for the journey API.
package web

import (
	"time"

	"github.com/journeykit/journey/pkg/models"
)

// SignUpRequest is the body for creating a customer.
type SignUpRequest struct {
	Email       string         `json:"email"                 validate:"required,email"`
	Name        string         `json:"name"                  validate:"required,min=2"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// VisitRequest is the body for recording a product page visit.
type VisitRequest struct {
	ProductID   string `json:"product_id"             validate:"required"`
	ProductName string `json:"product_name,omitempty"`
	Category    string `json:"category"               validate:"required"`
}

// WorkflowStatusResponse mirrors models.WorkflowStatus for the wire.
type WorkflowStatusResponse struct {
	CustomerID        string `json:"customer_id"`
	CurrentStep       int    `json:"current_step"`
	CompletedSteps    []int  `json:"completed_steps"`
	WelcomeSent       bool   `json:"welcome_sent"`
	DiscountSent      bool   `json:"discount_sent"`
	ReminderSent      bool   `json:"reminder_sent"`
	LastNotifiedAt    string `json:"last_notified_at,omitempty"`
	HasActiveReminder bool   `json:"has_active_reminder"`
}

func TransformWorkflowStatus(status *models.WorkflowStatus) WorkflowStatusResponse {
	response := WorkflowStatusResponse{
		CustomerID:        status.CustomerID,
		CurrentStep:       status.CurrentStep,
		CompletedSteps:    status.CompletedSteps,
		WelcomeSent:       status.WelcomeSent,
		DiscountSent:      status.DiscountSent,
		ReminderSent:      status.ReminderSent,
		HasActiveReminder: status.HasActiveReminder,
	}

	if status.CompletedSteps == nil {
		response.CompletedSteps = []int{}
	}

	if status.LastNotifiedAt != nil {
		response.LastNotifiedAt = status.LastNotifiedAt.UTC().Format(time.RFC3339)
	}

	return response
}
