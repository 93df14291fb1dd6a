package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/projectflow-api/internal/authz"
	"github.com/noah-isme/projectflow-api/internal/dto"
	"github.com/noah-isme/projectflow-api/internal/models"
	"github.com/noah-isme/projectflow-api/internal/repository"
)

// RubricService appends and lists the scoring criteria of a project. Criteria are never
// edited or removed, so evaluations always reference the rubric they were scored against.
type RubricService interface {
	Create(ctx context.Context, principal authz.Principal, projectID uint, payload dto.RubricCreateRequest) (dto.RubricResponse, error)
	List(ctx context.Context, principal authz.Principal, projectID uint) ([]dto.RubricResponse, error)
}

type rubricService struct {
	repo      repository.RubricRepository
	projects  repository.ProjectRepository
	validator *validator.Validate
	activity  ActivityRecorder
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewRubricService constructs the rubric service.
func NewRubricService(repo repository.RubricRepository, projects repository.ProjectRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) RubricService {
	return &rubricService{
		repo:      repo,
		projects:  projects,
		validator: validate,
		activity:  activity,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "rubric_service").Logger(),
	}
}

func (s *rubricService) Create(ctx context.Context, principal authz.Principal, projectID uint, payload dto.RubricCreateRequest) (dto.RubricResponse, error) {
	if !principal.Authenticated() {
		return dto.RubricResponse{}, ErrUnauthenticated
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return dto.RubricResponse{}, notFoundOr(err, "project")
	}

	if err := authz.Authorize(principal, authz.ActionRubricCreate, authz.Resource{ProjectOwnerID: project.OwnerID}); err != nil {
		return dto.RubricResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.RubricResponse{}, validationError(err)
	}

	rubric := models.Rubric{
		ProjectID:   project.ID,
		Name:        strings.TrimSpace(s.sanitizer.Sanitize(payload.Name)),
		MaxPoints:   payload.MaxPoints,
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
	}
	if rubric.Name == "" {
		return dto.RubricResponse{}, validationError(errEmptyRubricName)
	}

	if err := s.repo.Create(ctx, &rubric); err != nil {
		s.logger.Error().Err(err).Uint("project_id", projectID).Msg("failed to create rubric")
		return dto.RubricResponse{}, err
	}

	recordActivity(ctx, s.activity, principal, ActivityRubricCreated, models.ActivityEntityRubric, rubric.ID, map[string]interface{}{
		"project_id": project.ID,
		"max_points": rubric.MaxPoints,
	})

	return dto.NewRubricResponse(rubric), nil
}

func (s *rubricService) List(ctx context.Context, principal authz.Principal, projectID uint) ([]dto.RubricResponse, error) {
	if !principal.Authenticated() {
		return nil, ErrUnauthenticated
	}

	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, notFoundOr(err, "project")
	}

	rubrics, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return dto.NewRubricResponseSlice(rubrics), nil
}
