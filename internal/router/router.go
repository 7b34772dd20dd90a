package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/acompanha-api/internal/config"
	"github.com/noah-isme/acompanha-api/internal/handler"
	"github.com/noah-isme/acompanha-api/internal/middleware"
	"github.com/noah-isme/acompanha-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	TeacherHandler    *handler.TeacherHandler
	CatalogueHandler  *handler.CatalogueHandler
	ScheduleHandler   *handler.ScheduleHandler
	EvaluationHandler *handler.EvaluationHandler
	CredentialHandler *handler.CredentialHandler
	ReportHandler     *handler.ReportHandler
	ImportHandler     *handler.ImportHandler
	ActivityHandler   *handler.ActivityHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Public surface: login and token-addressed credential pickup.
	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		auth.Post("/login", middleware.RateLimit("auth_login", 10, time.Minute), deps.AuthHandler.Login)
		auth.Get("/me", jwtMiddleware, middleware.WithAuth(deps.AuthHandler.Me, middleware.AuthOptions{RequireUser: true}))
	}
	if deps.CredentialHandler != nil {
		credentials := api.Group("/credentials", middleware.RateLimit("credentials", 20, time.Minute))
		deps.CredentialHandler.Register(credentials)
	}

	if deps.TeacherHandler != nil {
		deps.TeacherHandler.Register(api.Group("/teachers", jwtMiddleware))
	}
	if deps.CatalogueHandler != nil {
		deps.CatalogueHandler.RegisterEvaluators(api.Group("/evaluators", jwtMiddleware))
		deps.CatalogueHandler.RegisterCourses(api.Group("/courses", jwtMiddleware))
		deps.CatalogueHandler.RegisterUnits(api.Group("/curricular-units", jwtMiddleware))
	}
	if deps.ScheduleHandler != nil {
		deps.ScheduleHandler.RegisterSemesters(api.Group("/semesters", jwtMiddleware))
		deps.ScheduleHandler.RegisterSchedules(api.Group("/schedules", jwtMiddleware))
	}
	if deps.EvaluationHandler != nil {
		deps.EvaluationHandler.Register(api.Group("/evaluations", jwtMiddleware))
	}
	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(api.Group("/reports", jwtMiddleware))
	}

	// Administration
	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(middleware.AuthRoleAdmin))
	if deps.ImportHandler != nil {
		deps.ImportHandler.Register(admin.Group("/imports"))
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(admin.Group("/activity"))
	}
}
