package web

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/journeykit/journey/pkg/services"
)

type APIHandlers struct {
	customers *services.Customers
	validator *validator.Validate
}

func NewAPIHandlers(customers *services.Customers, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		customers: customers,
		validator: validator,
	}
}

func (h *APIHandlers) SignUp(c fiber.Ctx) error {
	var req SignUpRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	customer, err := h.customers.SignUp(c.Context(), services.SignUpInput{
		Email:       req.Email,
		Name:        req.Name,
		Preferences: req.Preferences,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(customer)
}

func (h *APIHandlers) RecordVisit(c fiber.Ctx) error {
	var req VisitRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return badRequest(c, err.Error())
	}

	visit, err := h.customers.RecordVisit(c.Context(), c.Params("id"), services.VisitInput{
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Category:    req.Category,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(visit)
}

func (h *APIHandlers) GetCustomer(c fiber.Ctx) error {
	customer, err := h.customers.Get(c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(customer)
}

func (h *APIHandlers) ListCustomers(c fiber.Ctx) error {
	customers := h.customers.List()

	return c.JSON(fiber.Map{
		"customers":   customers,
		"total_count": len(customers),
	})
}

func (h *APIHandlers) GetWorkflowStatus(c fiber.Ctx) error {
	status, err := h.customers.WorkflowStatus(c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformWorkflowStatus(status))
}

// AdvanceTime is the demo hook that fires the inactivity path immediately.
func (h *APIHandlers) AdvanceTime(c fiber.Ctx) error {
	if err := h.customers.ForceInactivity(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
