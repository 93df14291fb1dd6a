package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/projectflow-api/internal/dto"
	"github.com/noah-isme/projectflow-api/internal/service"
	"github.com/noah-isme/projectflow-api/internal/utils"
)

// LeaderboardHandler serves the public ranking of finalized submissions.
type LeaderboardHandler struct {
	service service.LeaderboardService
	logger  zerolog.Logger
}

// NewLeaderboardHandler constructs the handler.
func NewLeaderboardHandler(service service.LeaderboardService, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
		logger:  logger.With().Str("component", "leaderboard_handler").Logger(),
	}
}

// Register attaches the leaderboard route.
func (h *LeaderboardHandler) Register(router fiber.Router) {
	router.Get("", h.get)
}

func (h *LeaderboardHandler) get(c *fiber.Ctx) error {
	projectID, err := parseQueryUint(c, "project_id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	board, err := h.service.Get(c.UserContext(), dto.LeaderboardFilter{ProjectID: projectID})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	if board.CacheHit {
		c.Set("X-Cache", "HIT")
	} else {
		c.Set("X-Cache", "MISS")
	}
	return utils.SendSuccess(c, "leaderboard retrieved", board)
}
