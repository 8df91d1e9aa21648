package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guardline/workforce-service/internal/api/http/handlers"
	"github.com/guardline/workforce-service/internal/auth"
	"github.com/guardline/workforce-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Supervisors    *handlers.SupervisorsHandler
	Audit          *handlers.AuditHandler
	Gateway        *handlers.GatewayHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	users := api.Group("/users")
	users.Get("/me", cfg.Users.Me)
	users.Get("/roles/assignable", cfg.Users.AssignableRoles)
	users.Get("/", cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)
	users.Get("/:id/reports", cfg.Users.Reports)
	users.Get("/:id/audit", auth.RequireCapability(domain.CapManageUsers), cfg.Audit.ListForUser)
	users.Patch("/:id/role", auth.RequireCapability(domain.CapManageUsers), cfg.Users.ChangeRole)
	users.Delete("/:id", auth.RequireCapability(domain.CapManageUsers), cfg.Users.Deactivate)

	api.Post("/supervisors/reassign", auth.RequireCapability(domain.CapManageUsers), cfg.Supervisors.Reassign)
	api.Get("/audit", auth.RequireCapability(domain.CapManageUsers), cfg.Audit.List)

	app.Get("/ws", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Gateway.Upgrade, cfg.Gateway.Serve())
}
