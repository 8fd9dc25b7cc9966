package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codepractice-api/internal/config"
	"github.com/noah-isme/codepractice-api/internal/handler"
	"github.com/noah-isme/codepractice-api/internal/middleware"
	"github.com/noah-isme/codepractice-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler     *handler.AuthHandler
	ProblemHandler  *handler.ProblemHandler
	CompilerHandler *handler.CompilerHandler
	UserHandler     *handler.UserHandler
	SeedHandler     *handler.SeedHandler
	FeedHandler     *handler.FeedHandler
	JWTMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), jwtMiddleware)
	}

	if deps.ProblemHandler != nil {
		deps.ProblemHandler.Register(api.Group("/questions"), jwtMiddleware, middleware.RequireAdmin())
	}

	if deps.CompilerHandler != nil {
		runLimit := middleware.RateLimit("compiler-run", cfg.CompilerRateLimit, time.Minute)
		submitLimit := middleware.RateLimit("compiler-submit", cfg.CompilerRateLimit, time.Minute)
		deps.CompilerHandler.Register(api.Group("/compiler"),
			[]fiber.Handler{runLimit},
			[]fiber.Handler{jwtMiddleware, submitLimit},
		)
	}

	if deps.UserHandler != nil || deps.FeedHandler != nil {
		users := api.Group("/users", jwtMiddleware)
		if deps.UserHandler != nil {
			deps.UserHandler.Register(users)
		}
		if deps.FeedHandler != nil {
			deps.FeedHandler.Register(users)
		}
	}

	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/seed"))
	}
}
