package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/projectflow-api/internal/authz"
	"github.com/noah-isme/projectflow-api/internal/utils"
)

const (
	localUserID   = "user_id"
	localUserRole = "user_role"
	localUserName = "user_name"
)

// RequirePrincipal rejects requests whose token did not carry an identity and a recognised role.
// Per-action permissions are decided by the authorization policy inside the services.
func RequirePrincipal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !PrincipalFromContext(c).Authenticated() {
			return utils.SendErrorKind(c, fiber.StatusUnauthorized, kindUnauthenticated, "authenticated principal with a role is required")
		}
		return c.Next()
	}
}

// PrincipalFromContext builds the caller principal from the request locals.
func PrincipalFromContext(c *fiber.Ctx) authz.Principal {
	principal := authz.Principal{}
	switch id := c.Locals(localUserID).(type) {
	case uint:
		principal.ID = id
	case int:
		if id > 0 {
			principal.ID = uint(id)
		}
	}
	if role, ok := c.Locals(localUserRole).(string); ok {
		principal.Role = authz.ParseRole(role)
	}
	if name, ok := c.Locals(localUserName).(string); ok {
		principal.Name = name
	}
	return principal
}
