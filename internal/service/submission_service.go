package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/projectflow-api/internal/authz"
	"github.com/noah-isme/projectflow-api/internal/dto"
	"github.com/noah-isme/projectflow-api/internal/models"
	"github.com/noah-isme/projectflow-api/internal/repository"
)

// FileUploader abstracts uploading binary data and returning a URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

var allowedArchiveTypes = []string{
	"application/zip",
	"application/x-zip-compressed",
	"application/pdf",
	"application/x-tar",
	"application/gzip",
	"application/x-7z-compressed",
}

// SubmissionService owns the creation side of the submission lifecycle and role-scoped reads.
type SubmissionService interface {
	Create(ctx context.Context, principal authz.Principal, payload dto.SubmissionCreateRequest, archive *multipart.FileHeader) (dto.SubmissionResponse, error)
	Get(ctx context.Context, principal authz.Principal, id uint) (dto.SubmissionResponse, error)
	List(ctx context.Context, principal authz.Principal, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	projects    repository.ProjectRepository
	validator   *validator.Validate
	uploader    FileUploader
	activity    ActivityRecorder
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance. uploader may be nil, in which case
// only archive references produced by an external uploader are accepted.
func NewSubmissionService(subRepo repository.SubmissionRepository, projectRepo repository.ProjectRepository, validate *validator.Validate, uploader FileUploader, activity ActivityRecorder, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: subRepo,
		projects:    projectRepo,
		validator:   validate,
		uploader:    uploader,
		activity:    activity,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) Create(ctx context.Context, principal authz.Principal, payload dto.SubmissionCreateRequest, archive *multipart.FileHeader) (dto.SubmissionResponse, error) {
	if err := authz.Authorize(principal, authz.ActionSubmissionCreate, authz.Resource{StudentID: principal.ID}); err != nil {
		return dto.SubmissionResponse{}, err
	}

	payload.GithubLink = strings.TrimSpace(payload.GithubLink)
	payload.ArchiveRef = strings.TrimSpace(payload.ArchiveRef)
	payload.YoutubeLink = strings.TrimSpace(payload.YoutubeLink)

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, validationError(err)
	}

	sources := 0
	for _, present := range []bool{payload.GithubLink != "", payload.ArchiveRef != "", archive != nil} {
		if present {
			sources++
		}
	}
	if sources != 1 {
		return dto.SubmissionResponse{}, validationError(errSourceChoice)
	}

	project, err := s.projects.GetByID(ctx, payload.ProjectID)
	if err != nil {
		if repository.IsNotFound(err) {
			return dto.SubmissionResponse{}, fmt.Errorf("%w: project %d does not exist", ErrInvalidProject, payload.ProjectID)
		}
		return dto.SubmissionResponse{}, err
	}

	now := s.now().UTC()
	if !project.IsOpen(now) {
		return dto.SubmissionResponse{}, fmt.Errorf("%w: project %d is not accepting submissions", ErrInvalidProject, project.ID)
	}

	exists, err := s.submissions.ExistsForStudent(ctx, project.ID, principal.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if exists {
		return dto.SubmissionResponse{}, ErrSubmissionExists
	}

	archiveURL := payload.ArchiveRef
	if archive != nil {
		archiveURL, err = s.storeArchive(ctx, archive)
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
	}

	submission := models.Submission{
		ProjectID:   project.ID,
		StudentID:   principal.ID,
		StudentName: principal.Name,
		Title:       strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		GithubLink:  payload.GithubLink,
		ArchiveURL:  archiveURL,
		YoutubeLink: payload.YoutubeLink,
		Status:      models.SubmissionStatusSubmitted,
		Version:     1,
		SubmittedAt: now,
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.SubmissionResponse{}, ErrSubmissionExists
		}
		s.logger.Error().Err(err).Uint("project_id", project.ID).Msg("failed to create submission")
		return dto.SubmissionResponse{}, err
	}

	created, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	recordActivity(ctx, s.activity, principal, ActivitySubmissionCreated, models.ActivityEntitySubmission, created.ID, map[string]interface{}{
		"project_id": project.ID,
	})
	s.logger.Info().Uint("submission_id", created.ID).Uint("project_id", project.ID).Msg("submission created")

	return dto.NewSubmissionResponse(created), nil
}

func (s *submissionService) Get(ctx context.Context, principal authz.Principal, id uint) (dto.SubmissionResponse, error) {
	submission, err := loadAuthorizedSubmission(ctx, s.submissions, principal, authz.ActionSubmissionRead, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) List(ctx context.Context, principal authz.Principal, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if !principal.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if err := s.validator.Struct(filter); err != nil {
		return nil, validationError(err)
	}

	repoFilter := repository.SubmissionFilter{
		ProjectID: filter.ProjectID,
		Status:    filter.Status,
	}

	id := principal.ID
	switch principal.Role {
	case authz.RoleStudent:
		repoFilter.StudentID = &id
	case authz.RoleFaculty:
		repoFilter.ProjectOwnerID = &id
	}

	submissions, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) storeArchive(ctx context.Context, archive *multipart.FileHeader) (string, error) {
	if s.uploader == nil {
		return "", fmt.Errorf("%w: archive uploads are not enabled, provide archive_ref", ErrValidation)
	}

	if err := validateArchiveType(archive); err != nil {
		return "", validationError(err)
	}

	reader, err := archive.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	url, err := s.uploader.Upload(ctx, archive.Filename, reader)
	if err != nil {
		return "", fmt.Errorf("failed to upload archive: %w", err)
	}
	return url, nil
}

// loadAuthorizedSubmission fetches a submission and checks action against its ownership facts.
func loadAuthorizedSubmission(ctx context.Context, repo repository.SubmissionRepository, principal authz.Principal, action authz.Action, id uint) (models.Submission, error) {
	if !principal.Authenticated() {
		return models.Submission{}, ErrUnauthenticated
	}

	submission, err := repo.GetByID(ctx, id)
	if err != nil {
		return models.Submission{}, notFoundOr(err, "submission")
	}

	resource := authz.Resource{ProjectOwnerID: submission.Project.OwnerID, StudentID: submission.StudentID}
	if err := authz.Authorize(principal, action, resource); err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func validateArchiveType(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	mime, err := mimetype.DetectReader(reader)
	if err != nil {
		return fmt.Errorf("failed to detect file type: %w", err)
	}

	for _, allowed := range allowedArchiveTypes {
		if mime.Is(allowed) {
			return nil
		}
	}

	return fmt.Errorf("unsupported archive type: %s", mime.String())
}
