// Package app assembles the fiber application served by the API.
package app

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/openmapping/tasking/internal/api/middleware"
	"github.com/openmapping/tasking/internal/services"
	"github.com/openmapping/tasking/pkg/api/v1/handlers"
	"github.com/openmapping/tasking/pkg/api/v1/routes"
)

// New returns the API app with its middleware and routes registered
func New(projects *services.Project, tasks *services.Task) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: middleware.RequestIDKey,
	}))
	app.Use(middleware.Logger())

	routes.RegisterRoutes(app, handlers.NewRPCHandler(projects, tasks))
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
