package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/projectflow-api/internal/dto"
	"github.com/noah-isme/projectflow-api/internal/service"
	"github.com/noah-isme/projectflow-api/internal/utils"
)

// ActivityHandler exposes the scoring audit log.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register attaches activity log routes to the router group.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *ActivityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return badRequest(c, "invalid page")
	}

	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return badRequest(c, "invalid page size")
	}
	if pageSize > 200 {
		pageSize = 200
	}

	actorID, err := parseQueryUint(c, "actor_id")
	if err != nil {
		return badRequest(c, "invalid actor id")
	}

	entityID, err := parseQueryUint(c, "entity_id")
	if err != nil {
		return badRequest(c, "invalid entity id")
	}

	req := dto.ActivityListRequest{
		Page:       page,
		PageSize:   pageSize,
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
	}
	if actorID != nil {
		req.ActorID = *actorID
	}
	if entityID != nil {
		req.EntityID = *entityID
	}

	response, err := h.service.List(c.UserContext(), principalFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "activity logs", response)
}
