package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/projectflow-api/internal/config"
	"github.com/noah-isme/projectflow-api/internal/utils"
)

// HealthChecker checks one backing dependency.
type HealthChecker func(ctx context.Context) error

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HealthCheck reports service health. Any failing checker degrades the response to 503.
func HealthCheck(cfg config.Config, checkers map[string]HealthChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		if len(checkers) > 0 {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()

			payload.Dependencies = make(map[string]string, len(checkers))
			for name, check := range checkers {
				if err := check(ctx); err != nil {
					payload.Dependencies[name] = "down: " + err.Error()
					payload.Status = "degraded"
					continue
				}
				payload.Dependencies[name] = "up"
			}
		}

		if payload.Status != "ok" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(utils.APIResponse{
				Success:   false,
				Data:      payload,
				Message:   "service degraded",
				ErrorKind: "dependency_unavailable",
			})
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
