package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/projectflow-api/internal/dto"
	"github.com/noah-isme/projectflow-api/internal/service"
	"github.com/noah-isme/projectflow-api/internal/utils"
)

// ProjectHandler exposes project and rubric endpoints.
type ProjectHandler struct {
	projects service.ProjectService
	rubrics  service.RubricService
	logger   zerolog.Logger
}

// NewProjectHandler builds a project handler instance.
func NewProjectHandler(projects service.ProjectService, rubrics service.RubricService, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		rubrics:  rubrics,
		logger:   logger.With().Str("component", "project_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ProjectHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Get("/:id/rubrics", h.listRubrics)
	router.Post("/:id/rubrics", h.createRubric)
}

func (h *ProjectHandler) list(c *fiber.Ctx) error {
	var filter dto.ProjectFilter
	if err := c.QueryParser(&filter); err != nil {
		return badRequest(c, "invalid query parameters")
	}

	projects, err := h.projects.List(c.UserContext(), principalFromContext(c), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "projects retrieved", projects)
}

func (h *ProjectHandler) create(c *fiber.Ctx) error {
	var payload dto.ProjectCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	project, err := h.projects.Create(c.UserContext(), principalFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "project created", project)
}

func (h *ProjectHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	project, err := h.projects.Get(c.UserContext(), principalFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "project retrieved", project)
}

func (h *ProjectHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.ProjectUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	project, err := h.projects.Update(c.UserContext(), principalFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "project updated", project)
}

func (h *ProjectHandler) listRubrics(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	rubrics, err := h.rubrics.List(c.UserContext(), principalFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "rubrics retrieved", rubrics)
}

func (h *ProjectHandler) createRubric(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	var payload dto.RubricCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "invalid request body")
	}

	rubric, err := h.rubrics.Create(c.UserContext(), principalFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "rubric created", rubric)
}
