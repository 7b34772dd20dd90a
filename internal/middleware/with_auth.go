package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/acompanha-api/internal/models"
	"github.com/noah-isme/acompanha-api/internal/utils"
)

// Auth role constants used by WithAuth helper. AuthRoleStaff admits coordinators and evaluators.
const (
	AuthRoleAny     = "any"
	AuthRoleAdmin   = models.RoleAdmin
	AuthRoleStaff   = "staff"
	AuthRoleTeacher = models.RoleTeacher
)

// AuthOptions configures the WithAuth helper. RequireUser only matters for AuthRoleAny; every
// other role implies an authenticated user.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps a handler with basic authentication/authorization guards.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}

	requireUser := opts.RequireUser
	if !requireUser && role != AuthRoleAny {
		requireUser = true
	}

	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id")
		if requireUser && userID == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		// AuthRoleAny admits anonymous callers unless RequireUser is set.
		if role == AuthRoleAny {
			return handler(c)
		}

		currentRole := normalizeRoleValue(c.Locals("user_role"))
		switch role {
		case AuthRoleStaff:
			if currentRole != models.RoleAdmin && currentRole != models.RoleEvaluator {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
			}
		case AuthRoleAdmin:
			if currentRole != models.RoleAdmin {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
			}
		default:
			if currentRole != role {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
			}
		}

		return handler(c)
	}
}
