package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/projectflow-api/internal/authz"
	"github.com/noah-isme/projectflow-api/internal/utils"
)

const kindUnauthenticated = "unauthenticated"

// JWTProtected returns a middleware that validates HMAC-signed bearer tokens and stores the
// caller's id, role and display name in the request locals.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendErrorKind(c, fiber.StatusUnauthorized, kindUnauthenticated, "authorization header missing")
		}

		const bearer = "Bearer "
		if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.SendErrorKind(c, fiber.StatusUnauthorized, kindUnauthenticated, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendErrorKind(c, fiber.StatusUnauthorized, kindUnauthenticated, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendErrorKind(c, fiber.StatusUnauthorized, kindUnauthenticated, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendErrorKind(c, fiber.StatusUnauthorized, kindUnauthenticated, "invalid token claims")
		}

		if userID := extractUserIDFromClaims(claims); userID != nil {
			c.Locals(localUserID, *userID)
		}
		if role := extractRoleFromClaims(claims); role != "" {
			c.Locals(localUserRole, string(role))
		}
		if name := extractNameFromClaims(claims); name != "" {
			c.Locals(localUserName, name)
		}

		return c.Next()
	}
}

func extractUserIDFromClaims(claims jwt.MapClaims) *uint {
	for _, key := range []string{"sub", "user_id", "id"} {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeUserID(value); err == nil && normalized != 0 {
				return &normalized
			}
		}
	}
	return nil
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

// extractRoleFromClaims reads "role" or the first recognised entry of "roles". A boolean
// "is_staff" claim maps to faculty when no role is present.
func extractRoleFromClaims(claims jwt.MapClaims) authz.Role {
	if value, ok := claims["role"].(string); ok {
		if role := authz.ParseRole(value); role.Valid() {
			return role
		}
	}
	if values, ok := claims["roles"].([]interface{}); ok {
		for _, item := range values {
			if str, ok := item.(string); ok {
				if role := authz.ParseRole(str); role.Valid() {
					return role
				}
			}
		}
	}
	if staff, ok := claims["is_staff"].(bool); ok {
		if staff {
			return authz.RoleFaculty
		}
		return authz.RoleStudent
	}
	return ""
}

func extractNameFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"name", "username", "preferred_username"} {
		if value, ok := claims[key].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
