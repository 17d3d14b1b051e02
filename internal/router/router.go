package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/revizorlab/revizor-api/internal/config"
	"github.com/revizorlab/revizor-api/internal/handler"
	"github.com/revizorlab/revizor-api/internal/middleware"
	"github.com/revizorlab/revizor-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ReviewHandler     *handler.ReviewHandler
	AssignmentHandler *handler.AssignmentHandler
	StudentHandler    *handler.StudentHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Review sessions: the judge calls are the expensive part, keep a
	// tight per-user rate limit on them.
	if deps.ReviewHandler != nil {
		sessions := api.Group("/sessions", jwtMiddleware,
			middleware.RateLimit("review", 30, time.Minute))
		deps.ReviewHandler.Register(sessions)
	}

	// Assignments: reads for everyone, mutations for staff only.
	if deps.AssignmentHandler != nil {
		assignments := api.Group("/assignments", jwtMiddleware)
		assignments.Use(func(c *fiber.Ctx) error {
			if c.Method() == fiber.MethodGet {
				return c.Next()
			}
			return middleware.RequireRole("admin", "teacher")(c)
		})
		deps.AssignmentHandler.Register(assignments)
	}

	if deps.StudentHandler != nil {
		students := api.Group("/students", jwtMiddleware)
		students.Use(func(c *fiber.Ctx) error {
			if c.Method() == fiber.MethodGet {
				return c.Next()
			}
			return middleware.RequireRole("admin", "teacher")(c)
		})
		deps.StudentHandler.Register(students)
	}
}
