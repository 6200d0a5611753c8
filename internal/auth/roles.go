package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// RequireRole ensures the actor holds at least one of the given roles.
// Services still apply their own policy checks.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		for _, role := range allowed {
			if actor.Roles.Has(role) {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient role")
	}
}

// RequireStaff admits technicians and administrators.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.RoleTechnician, domain.RoleAdmin)
}

// RequireAuthenticated ensures a principal has been resolved.
func RequireAuthenticated() fiber.Handler {
	return RequireRole()
}
