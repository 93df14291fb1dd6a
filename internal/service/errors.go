package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/projectflow-api/internal/authz"
	"github.com/noah-isme/projectflow-api/internal/repository"
)

// Error kinds surfaced by the scoring workflow. Handlers map them onto HTTP statuses.
var (
	ErrValidation           = errors.New("validation error")
	ErrNotFound             = errors.New("not found")
	ErrAuthorization        = authz.ErrForbidden
	ErrUnauthenticated      = authz.ErrUnauthenticated
	ErrInvalidProject       = errors.New("invalid project")
	ErrAlreadyEvaluated     = errors.New("rubric already evaluated for submission")
	ErrAlreadyFinalized     = errors.New("submission already finalized")
	ErrIncompleteEvaluation = errors.New("incomplete evaluation")
	ErrAIScoringUnavailable = errors.New("ai scoring unavailable")
	ErrConcurrency          = errors.New("concurrent modification")
	ErrSubmissionExists     = errors.New("submission already exists for project")
)

// validationError folds validator and ad-hoc input errors into ErrValidation.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return fmt.Errorf("%w: %s failed on %s", ErrValidation, first.Field(), first.Tag())
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// notFoundOr translates missing-row errors into ErrNotFound for the named entity.
func notFoundOr(err error, entity string) error {
	if repository.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, entity)
	}
	return err
}

var errEndBeforeStart = errors.New("end_date must not be before start_date")

var errEmptyRubricName = errors.New("rubric name must not be empty")

var errSourceChoice = errors.New("provide exactly one of github_link, archive or archive_ref")
