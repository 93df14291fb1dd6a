package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/projectflow-api/internal/authz"
	"github.com/noah-isme/projectflow-api/internal/dto"
	"github.com/noah-isme/projectflow-api/internal/models"
	"github.com/noah-isme/projectflow-api/internal/observability"
	"github.com/noah-isme/projectflow-api/internal/repository"
	"github.com/noah-isme/projectflow-api/internal/scoring"
)

// EvaluationService drives manual scoring of a submission and its terminal finalize transition.
type EvaluationService interface {
	Record(ctx context.Context, principal authz.Principal, submissionID uint, payload dto.EvaluationCreateRequest) (dto.EvaluationResponse, error)
	List(ctx context.Context, principal authz.Principal, submissionID uint) ([]dto.EvaluationResponse, error)
	Finalize(ctx context.Context, principal authz.Principal, submissionID uint) (dto.FinalScoreResponse, error)
}

// EvaluationDependencies groups the collaborators of the evaluation service.
type EvaluationDependencies struct {
	Submissions repository.SubmissionRepository
	Rubrics     repository.RubricRepository
	Evaluations repository.EvaluationRepository
	AIScores    repository.AIScoreRepository
	Leaderboard LeaderboardService
	Events      EventPublisher
	Activity    ActivityRecorder
	Validator   *validator.Validate
	Weights     scoring.Weights
}

type evaluationService struct {
	submissions repository.SubmissionRepository
	rubrics     repository.RubricRepository
	evaluations repository.EvaluationRepository
	aiScores    repository.AIScoreRepository
	leaderboard LeaderboardService
	events      EventPublisher
	activity    ActivityRecorder
	validator   *validator.Validate
	weights     scoring.Weights
	sanitizer   *bluemonday.Policy
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewEvaluationService constructs the evaluation service.
func NewEvaluationService(deps EvaluationDependencies, logger zerolog.Logger) (EvaluationService, error) {
	if err := deps.Weights.Validate(); err != nil {
		return nil, err
	}

	events := deps.Events
	if events == nil {
		events = noopEventPublisher{}
	}

	return &evaluationService{
		submissions: deps.Submissions,
		rubrics:     deps.Rubrics,
		evaluations: deps.Evaluations,
		aiScores:    deps.AIScores,
		leaderboard: deps.Leaderboard,
		events:      events,
		activity:    deps.Activity,
		validator:   deps.Validator,
		weights:     deps.Weights,
		sanitizer:   bluemonday.StrictPolicy(),
		tracer:      otel.Tracer("github.com/noah-isme/projectflow-api/internal/service/evaluation"),
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		now:         time.Now,
	}, nil
}

func (s *evaluationService) Record(ctx context.Context, principal authz.Principal, submissionID uint, payload dto.EvaluationCreateRequest) (dto.EvaluationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.record")
	span.SetAttributes(
		attribute.Int64("evaluation.submission_id", int64(submissionID)),
		attribute.Int64("evaluation.rubric_id", int64(payload.RubricID)),
		attribute.Int64("evaluation.evaluator_id", int64(principal.ID)),
	)
	defer span.End()

	submission, err := loadAuthorizedSubmission(ctx, s.submissions, principal, authz.ActionEvaluationRecord, submissionID)
	if err != nil {
		return dto.EvaluationResponse{}, spanFail(span, err, "authorization_failed")
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluationResponse{}, spanFail(span, validationError(err), "validation_failed")
	}

	if submission.IsEvaluated() {
		return dto.EvaluationResponse{}, spanFail(span, ErrAlreadyFinalized, "submission_finalized")
	}

	rubric, err := s.rubrics.GetByID(ctx, payload.RubricID)
	if err != nil {
		return dto.EvaluationResponse{}, spanFail(span, notFoundOr(err, "rubric"), "rubric_lookup_failed")
	}
	if rubric.ProjectID != submission.ProjectID {
		err := fmt.Errorf("%w: rubric %d does not belong to project %d", ErrValidation, rubric.ID, submission.ProjectID)
		return dto.EvaluationResponse{}, spanFail(span, err, "rubric_mismatch")
	}

	points := *payload.PointsAwarded
	if points < 0 || points > rubric.MaxPoints {
		err := fmt.Errorf("%w: points_awarded must be between 0 and %d", ErrValidation, rubric.MaxPoints)
		return dto.EvaluationResponse{}, spanFail(span, err, "points_out_of_range")
	}

	evaluation := models.Evaluation{
		SubmissionID:  submission.ID,
		RubricID:      rubric.ID,
		PointsAwarded: points,
		Feedback:      strings.TrimSpace(s.sanitizer.Sanitize(payload.Feedback)),
		EvaluatorID:   principal.ID,
		CreatedAt:     s.now().UTC(),
	}

	if err := s.evaluations.Create(ctx, &evaluation); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			err = ErrAlreadyEvaluated
		case errors.Is(err, repository.ErrSubmissionClosed):
			err = ErrAlreadyFinalized
		case repository.IsNotFound(err):
			err = notFoundOr(err, "submission")
		default:
			s.logger.Error().Err(err).Uint("submission_id", submissionID).Msg("failed to record evaluation")
		}
		return dto.EvaluationResponse{}, spanFail(span, err, "evaluation_write_failed")
	}
	evaluation.Rubric = rubric

	recordActivity(ctx, s.activity, principal, ActivityEvaluationRecorded, models.ActivityEntitySubmission, submission.ID, map[string]interface{}{
		"rubric_id":      rubric.ID,
		"points_awarded": points,
	})

	rubricID := rubric.ID
	s.events.Publish(ctx, ScoringEvent{
		Type:         EventSubmissionEvaluated,
		SubmissionID: submission.ID,
		ProjectID:    submission.ProjectID,
		StudentID:    submission.StudentID,
		RubricID:     &rubricID,
		OccurredAt:   evaluation.CreatedAt,
	})

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("rubric_id", rubric.ID).
		Uint("evaluator_id", principal.ID).
		Msg("evaluation recorded")

	return dto.NewEvaluationResponse(evaluation), nil
}

func (s *evaluationService) List(ctx context.Context, principal authz.Principal, submissionID uint) ([]dto.EvaluationResponse, error) {
	if _, err := loadAuthorizedSubmission(ctx, s.submissions, principal, authz.ActionSubmissionRead, submissionID); err != nil {
		return nil, err
	}

	evaluations, err := s.evaluations.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	return dto.NewEvaluationResponseSlice(evaluations), nil
}

func (s *evaluationService) Finalize(ctx context.Context, principal authz.Principal, submissionID uint) (dto.FinalScoreResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.finalize")
	span.SetAttributes(
		attribute.Int64("finalize.submission_id", int64(submissionID)),
		attribute.Int64("finalize.actor_id", int64(principal.ID)),
	)
	defer span.End()

	submission, err := loadAuthorizedSubmission(ctx, s.submissions, principal, authz.ActionSubmissionFinalize, submissionID)
	if err != nil {
		return dto.FinalScoreResponse{}, spanFail(span, err, "authorization_failed")
	}
	if submission.IsEvaluated() {
		return dto.FinalScoreResponse{}, spanFail(span, ErrAlreadyFinalized, "submission_finalized")
	}
	expectedVersion := submission.Version

	rubrics, err := s.rubrics.ListByProject(ctx, submission.ProjectID)
	if err != nil {
		return dto.FinalScoreResponse{}, spanFail(span, err, "rubric_lookup_failed")
	}
	evaluations, err := s.evaluations.ListBySubmission(ctx, submission.ID)
	if err != nil {
		return dto.FinalScoreResponse{}, spanFail(span, err, "evaluation_lookup_failed")
	}

	if err := scoring.CheckComplete(rubrics, evaluations); err != nil {
		return dto.FinalScoreResponse{}, spanFail(span, fmt.Errorf("%w: %v", ErrIncompleteEvaluation, err), "incomplete")
	}

	var aiScores map[uint]models.AICriterionScore
	aiSet, err := s.aiScores.GetBySubmission(ctx, submission.ID)
	switch {
	case err == nil:
		aiScores = aiSet.Scores()
	case repository.IsNotFound(err):
	default:
		return dto.FinalScoreResponse{}, spanFail(span, err, "ai_score_lookup_failed")
	}

	result := scoring.Compute(rubrics, evaluations, aiScores, s.weights)
	finalScore := models.FinalScore{
		ManualScore:  result.ManualScore,
		MLScore:      result.MLScore,
		OverallScore: result.OverallScore,
		MaxScore:     result.MaxScore,
		ManualWeight: result.ManualWeight,
		AIWeight:     result.AIWeight,
		AIIncluded:   result.AIIncluded,
		FinalizedBy:  principal.ID,
		FinalizedAt:  s.now().UTC(),
	}

	if err := s.submissions.Finalize(ctx, submission.ID, expectedVersion, &finalScore); err != nil {
		switch {
		case errors.Is(err, repository.ErrSubmissionClosed), errors.Is(err, repository.ErrDuplicate):
			err = ErrAlreadyFinalized
		case errors.Is(err, repository.ErrStaleVersion):
			err = fmt.Errorf("%w: submission %d changed while finalizing", ErrConcurrency, submission.ID)
		default:
			s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to finalize submission")
		}
		return dto.FinalScoreResponse{}, spanFail(span, err, "finalize_write_failed")
	}

	observability.ScoringFinalized().Inc()
	if s.leaderboard != nil {
		s.leaderboard.Invalidate(ctx)
	}

	overall := finalScore.OverallScore
	s.events.Publish(ctx, ScoringEvent{
		Type:         EventSubmissionFinalized,
		SubmissionID: submission.ID,
		ProjectID:    submission.ProjectID,
		StudentID:    submission.StudentID,
		OverallScore: &overall,
		OccurredAt:   finalScore.FinalizedAt,
	})

	recordActivity(ctx, s.activity, principal, ActivitySubmissionFinalized, models.ActivityEntitySubmission, submission.ID, map[string]interface{}{
		"manual_score":  finalScore.ManualScore,
		"ml_score":      finalScore.MLScore,
		"overall_score": finalScore.OverallScore,
		"ai_included":   finalScore.AIIncluded,
	})

	span.SetAttributes(attribute.Float64("finalize.overall_score", finalScore.OverallScore))
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Float64("overall_score", finalScore.OverallScore).
		Bool("ai_included", finalScore.AIIncluded).
		Msg("submission finalized")

	return dto.NewFinalScoreResponse(finalScore), nil
}

// spanFail records err on span and returns it unchanged.
func spanFail(span trace.Span, err error, status string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	return err
}
