package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/noah-isme/projectflow-api/internal/dto"
	"github.com/noah-isme/projectflow-api/internal/middleware"
	"github.com/noah-isme/projectflow-api/internal/service"
	"github.com/noah-isme/projectflow-api/internal/utils"
)

// SubmissionHandler exposes the submission lifecycle: creation, reads, manual evaluation,
// AI scoring and finalize.
type SubmissionHandler struct {
	submissions service.SubmissionService
	evaluations service.EvaluationService
	aiScoring   service.AIScoringService
	aiLimit     int
	logger      zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance. aiPerMinute bounds AI triggers per caller.
func NewSubmissionHandler(submissions service.SubmissionService, evaluations service.EvaluationService, aiScoring service.AIScoringService, aiPerMinute int, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissions: submissions,
		evaluations: evaluations,
		aiScoring:   aiScoring,
		aiLimit:     aiPerMinute,
		logger:      logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Get("/:id/evaluations", h.listEvaluations)
	router.Post("/:id/evaluations", h.recordEvaluation)
	router.Get("/:id/ai-score", h.getAIScore)
	router.Post("/:id/ai-score", middleware.RateLimit("ai_scoring", h.aiLimit, time.Minute), h.triggerAIScore)
	router.Post("/:id/finalize", h.finalize)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	filter := dto.SubmissionFilter{}
	projectID, err := parseQueryUint(c, "project_id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	filter.ProjectID = projectID
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		filter.Status = &status
	}

	submissions, err := h.submissions.List(c.UserContext(), principalFromContext(c), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

// create accepts JSON, or multipart form fields with an optional "archive" file.
func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	archive, err := c.FormFile("archive")
	if err != nil {
		if !errors.Is(err, fasthttp.ErrMissingFile) && !errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return badRequest(c, "invalid archive upload")
		}
		archive = nil
	}

	submission, err := h.submissions.Create(c.UserContext(), principalFromContext(c), payload, archive)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission created", submission)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	submission, err := h.submissions.Get(c.UserContext(), principalFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) listEvaluations(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	evaluations, err := h.evaluations.List(c.UserContext(), principalFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "evaluations retrieved", evaluations)
}

func (h *SubmissionHandler) recordEvaluation(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.EvaluationCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	evaluation, err := h.evaluations.Record(c.UserContext(), principalFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "evaluation recorded", evaluation)
}

func (h *SubmissionHandler) getAIScore(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	set, err := h.aiScoring.Get(c.UserContext(), principalFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "ai score retrieved", set)
}

func (h *SubmissionHandler) triggerAIScore(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	set, err := h.aiScoring.Trigger(c.UserContext(), principalFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "ai score available", set)
}

func (h *SubmissionHandler) finalize(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	score, err := h.evaluations.Finalize(c.UserContext(), principalFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission finalized", score)
}
