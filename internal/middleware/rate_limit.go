package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/projectflow-api/internal/utils"
)

// RateLimit allows max calls per window for each principal, keyed by client IP for anonymous
// callers. It uses a sliding window so a burst at a window boundary cannot double the budget.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        window,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return rateLimitKey(identifier, c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendErrorKind(c, fiber.StatusTooManyRequests, "rate_limited",
				fmt.Sprintf("%s limit of %d per %s reached, retry later", identifier, max, window))
		},
	})
}

func rateLimitKey(identifier string, c *fiber.Ctx) string {
	if principal := PrincipalFromContext(c); principal.ID != 0 {
		return fmt.Sprintf("%s:user:%d", identifier, principal.ID)
	}
	return fmt.Sprintf("%s:ip:%s", identifier, c.IP())
}
