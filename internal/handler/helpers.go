package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/projectflow-api/internal/authz"
	"github.com/noah-isme/projectflow-api/internal/middleware"
	"github.com/noah-isme/projectflow-api/internal/service"
	"github.com/noah-isme/projectflow-api/internal/utils"
)

// errorKind pairs a service sentinel with its HTTP status and wire name.
type errorKind struct {
	target error
	status int
	name   string
}

var errorKinds = []errorKind{
	{service.ErrUnauthenticated, fiber.StatusUnauthorized, "unauthenticated"},
	{service.ErrAuthorization, fiber.StatusForbidden, "authorization_error"},
	{service.ErrValidation, fiber.StatusBadRequest, "validation_error"},
	{service.ErrNotFound, fiber.StatusNotFound, "not_found"},
	{service.ErrInvalidProject, fiber.StatusUnprocessableEntity, "invalid_project"},
	{service.ErrAlreadyEvaluated, fiber.StatusConflict, "already_evaluated"},
	{service.ErrAlreadyFinalized, fiber.StatusConflict, "already_finalized"},
	{service.ErrSubmissionExists, fiber.StatusConflict, "submission_exists"},
	{service.ErrConcurrency, fiber.StatusConflict, "concurrency_error"},
	{service.ErrIncompleteEvaluation, fiber.StatusUnprocessableEntity, "incomplete_evaluation"},
	{service.ErrAIScoringUnavailable, fiber.StatusServiceUnavailable, "ai_scoring_unavailable"},
}

// respondError maps a service error onto the structured error envelope.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	for _, kind := range errorKinds {
		if errors.Is(err, kind.target) {
			if kind.status >= fiber.StatusInternalServerError {
				requestLogger(logger, c).Warn().Err(err).Str("error_kind", kind.name).Msg("upstream dependency failed")
			}
			return utils.SendErrorKind(c, kind.status, kind.name, err.Error())
		}
	}

	requestLogger(logger, c).Error().Err(err).Msg("internal server error")
	return utils.SendErrorKind(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
}

func badRequest(c *fiber.Ctx, message string) error {
	return utils.SendErrorKind(c, fiber.StatusBadRequest, "validation_error", message)
}

func principalFromContext(c *fiber.Ctx) authz.Principal {
	return middleware.PrincipalFromContext(c)
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := middleware.RequestLogger(base, c)
	return &logger
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func parseQueryUint(c *fiber.Ctx, key string) (*uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	result := uint(parsed)
	return &result, nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}
