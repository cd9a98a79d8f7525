package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/journeykit/journey/pkg/services"
	"github.com/journeykit/journey/pkg/web"
)

type API struct {
	logger    *slog.Logger
	customers *services.Customers
	validate  *validator.Validate
}

func NewAPI(logger *slog.Logger, customers *services.Customers) *API {
	return &API{
		logger:    logger,
		customers: customers,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.customers, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Journey API")
	})

	customers := app.Group("/customers")
	customers.Post("/", handlers.SignUp)
	customers.Get("/", handlers.ListCustomers)
	customers.Get("/:id", handlers.GetCustomer)
	customers.Post("/:id/visits", handlers.RecordVisit)
	customers.Get("/:id/workflow", handlers.GetWorkflowStatus)
	customers.Post("/:id/advance-time", handlers.AdvanceTime)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	a.logger.Info("Starting API server", "port", port)

	return a.App().Listen(":" + strconv.Itoa(port))
}
