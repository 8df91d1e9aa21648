package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guardline/workforce-service/internal/domain"
	apperrors "github.com/guardline/workforce-service/pkg/util"
)

// RequireAuthenticated ensures a principal is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireCapability gates a route on the principal's role. Services re-check
// against fresh state; this guard just refuses obvious non-starters early.
func RequireCapability(capability domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !capability.Allows(principal.User.Role) {
			return apperrors.NewPrivilegeError(c.Path())
		}
		return c.Next()
	}
}
