package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/projectflow-api/internal/authz"
	"github.com/noah-isme/projectflow-api/internal/dto"
	"github.com/noah-isme/projectflow-api/internal/models"
	"github.com/noah-isme/projectflow-api/internal/repository"
)

// ProjectService manages the projects students submit against.
type ProjectService interface {
	Create(ctx context.Context, principal authz.Principal, payload dto.ProjectCreateRequest) (dto.ProjectResponse, error)
	Get(ctx context.Context, principal authz.Principal, id uint) (dto.ProjectResponse, error)
	List(ctx context.Context, principal authz.Principal, filter dto.ProjectFilter) ([]dto.ProjectResponse, error)
	Update(ctx context.Context, principal authz.Principal, id uint, payload dto.ProjectUpdateRequest) (dto.ProjectResponse, error)
}

type projectService struct {
	repo      repository.ProjectRepository
	rubrics   repository.RubricRepository
	validator *validator.Validate
	activity  ActivityRecorder
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewProjectService constructs the project service.
func NewProjectService(repo repository.ProjectRepository, rubrics repository.RubricRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) ProjectService {
	return &projectService{
		repo:      repo,
		rubrics:   rubrics,
		validator: validate,
		activity:  activity,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "project_service").Logger(),
	}
}

func (s *projectService) Create(ctx context.Context, principal authz.Principal, payload dto.ProjectCreateRequest) (dto.ProjectResponse, error) {
	if err := authz.Authorize(principal, authz.ActionProjectCreate, authz.Resource{}); err != nil {
		return dto.ProjectResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProjectResponse{}, validationError(err)
	}

	project := models.Project{
		Title:       strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		StartDate:   payload.StartDate.UTC(),
		EndDate:     payload.EndDate.UTC(),
		IsActive:    true,
		OwnerID:     principal.ID,
	}
	if payload.IsActive != nil {
		project.IsActive = *payload.IsActive
	}

	if err := s.repo.Create(ctx, &project); err != nil {
		s.logger.Error().Err(err).Msg("failed to create project")
		return dto.ProjectResponse{}, err
	}

	recordActivity(ctx, s.activity, principal, ActivityProjectCreated, models.ActivityEntityProject, project.ID, map[string]interface{}{
		"title": project.Title,
	})

	return dto.NewProjectResponse(project), nil
}

func (s *projectService) Get(ctx context.Context, principal authz.Principal, id uint) (dto.ProjectResponse, error) {
	if !principal.Authenticated() {
		return dto.ProjectResponse{}, ErrUnauthenticated
	}

	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.ProjectResponse{}, notFoundOr(err, "project")
	}

	rubrics, err := s.rubrics.ListByProject(ctx, id)
	if err != nil {
		return dto.ProjectResponse{}, err
	}
	project.Rubrics = rubrics

	return dto.NewProjectResponse(project), nil
}

func (s *projectService) List(ctx context.Context, principal authz.Principal, filter dto.ProjectFilter) ([]dto.ProjectResponse, error) {
	if !principal.Authenticated() {
		return nil, ErrUnauthenticated
	}

	repoFilter := repository.ProjectFilter{ActiveOnly: filter.ActiveOnly}
	if principal.Role == authz.RoleStudent {
		repoFilter.ActiveOnly = true
	} else if filter.Mine {
		owner := principal.ID
		repoFilter.OwnerID = &owner
	}

	projects, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}
	return dto.NewProjectResponseSlice(projects), nil
}

func (s *projectService) Update(ctx context.Context, principal authz.Principal, id uint, payload dto.ProjectUpdateRequest) (dto.ProjectResponse, error) {
	if !principal.Authenticated() {
		return dto.ProjectResponse{}, ErrUnauthenticated
	}

	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.ProjectResponse{}, notFoundOr(err, "project")
	}

	if err := authz.Authorize(principal, authz.ActionProjectManage, authz.Resource{ProjectOwnerID: project.OwnerID}); err != nil {
		return dto.ProjectResponse{}, err
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProjectResponse{}, validationError(err)
	}

	changed := []string{}
	if payload.Title != nil {
		project.Title = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Title))
		changed = append(changed, "title")
	}
	if payload.Description != nil {
		project.Description = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Description))
		changed = append(changed, "description")
	}
	if payload.StartDate != nil {
		project.StartDate = payload.StartDate.UTC()
		changed = append(changed, "start_date")
	}
	if payload.EndDate != nil {
		project.EndDate = payload.EndDate.UTC()
		changed = append(changed, "end_date")
	}
	if payload.IsActive != nil {
		project.IsActive = *payload.IsActive
		changed = append(changed, "is_active")
	}

	if project.EndDate.Before(project.StartDate) {
		return dto.ProjectResponse{}, validationError(errEndBeforeStart)
	}

	project.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, &project); err != nil {
		s.logger.Error().Err(err).Uint("project_id", id).Msg("failed to update project")
		return dto.ProjectResponse{}, err
	}

	recordActivity(ctx, s.activity, principal, ActivityProjectUpdated, models.ActivityEntityProject, project.ID, map[string]interface{}{
		"fields": changed,
	})

	return dto.NewProjectResponse(project), nil
}
