package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/projectflow-api/internal/config"
	"github.com/noah-isme/projectflow-api/internal/handler"
	"github.com/noah-isme/projectflow-api/internal/middleware"
	"github.com/noah-isme/projectflow-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ProjectHandler     *handler.ProjectHandler
	SubmissionHandler  *handler.SubmissionHandler
	LeaderboardHandler *handler.LeaderboardHandler
	ActivityHandler    *handler.ActivityHandler
	JWTMiddleware      fiber.Handler
	HealthCheckers     map[string]handler.HealthChecker
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthCheckers))
	api.Get("/metrics", observability.MetricsHandler())

	// Leaderboard is public.
	if deps.LeaderboardHandler != nil {
		deps.LeaderboardHandler.Register(api.Group("/leaderboard"))
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	protected := []fiber.Handler{jwtMiddleware, middleware.RequirePrincipal()}

	if deps.ProjectHandler != nil {
		deps.ProjectHandler.Register(api.Group("/projects", protected...))
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions", protected...))
	}

	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api.Group("/activities", protected...))
	}
}
