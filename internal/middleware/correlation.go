package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type correlationIDKey struct{}

const maxCorrelationIDLength = 128

// CorrelationID ensures every request carries a correlation identifier, reusing a client-supplied
// X-Correlation-ID or X-Request-ID when it is reasonably sized.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		incoming := strings.TrimSpace(c.Get("X-Correlation-ID"))
		if incoming == "" {
			incoming = strings.TrimSpace(c.Get("X-Request-ID"))
		}
		if incoming == "" || len(incoming) > maxCorrelationIDLength {
			incoming = uuid.NewString()
		}

		c.Locals("correlation_id", incoming)
		c.Set("X-Correlation-ID", incoming)
		c.SetUserContext(context.WithValue(c.UserContext(), correlationIDKey{}, incoming))

		return c.Next()
	}
}

// CorrelationIDFromContext extracts the correlation identifier from context, if present.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// GetCorrelationID returns the correlation identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals("correlation_id").(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// RequestLogger decorates base with the request's correlation id and caller.
func RequestLogger(base zerolog.Logger, c *fiber.Ctx) zerolog.Logger {
	builder := base.With()
	if correlation := GetCorrelationID(c); correlation != "" {
		builder = builder.Str("correlation_id", correlation)
	}
	if principal := PrincipalFromContext(c); principal.ID != 0 {
		builder = builder.Uint("user_id", principal.ID).Str("user_role", string(principal.Role))
	}
	return builder.Logger()
}
