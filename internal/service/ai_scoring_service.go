package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"github.com/noah-isme/projectflow-api/internal/authz"
	"github.com/noah-isme/projectflow-api/internal/dto"
	"github.com/noah-isme/projectflow-api/internal/models"
	"github.com/noah-isme/projectflow-api/internal/observability"
	"github.com/noah-isme/projectflow-api/internal/repository"
	"github.com/noah-isme/projectflow-api/pkg/ai"
)

const defaultAIScoringTimeout = 30 * time.Second

// AIScoringService triggers the automated scorer at most once per submission and serves the cached set.
type AIScoringService interface {
	Trigger(ctx context.Context, principal authz.Principal, submissionID uint) (dto.AIScoreSetResponse, error)
	Get(ctx context.Context, principal authz.Principal, submissionID uint) (dto.AIScoreSetResponse, error)
}

type aiScoringService struct {
	submissions repository.SubmissionRepository
	rubrics     repository.RubricRepository
	scores      repository.AIScoreRepository
	scorer      ai.Scorer
	activity    ActivityRecorder
	timeout     time.Duration
	group       singleflight.Group
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAIScoringService constructs the service. scorer may be nil when no provider is configured,
// in which case triggers fail with ErrAIScoringUnavailable.
func NewAIScoringService(submissions repository.SubmissionRepository, rubrics repository.RubricRepository, scores repository.AIScoreRepository, scorer ai.Scorer, activity ActivityRecorder, timeout time.Duration, logger zerolog.Logger) AIScoringService {
	if timeout <= 0 {
		timeout = defaultAIScoringTimeout
	}
	return &aiScoringService{
		submissions: submissions,
		rubrics:     rubrics,
		scores:      scores,
		scorer:      scorer,
		activity:    activity,
		timeout:     timeout,
		tracer:      otel.Tracer("github.com/noah-isme/projectflow-api/internal/service/ai_scoring"),
		logger:      logger.With().Str("component", "ai_scoring_service").Logger(),
		now:         time.Now,
	}
}

func (s *aiScoringService) Get(ctx context.Context, principal authz.Principal, submissionID uint) (dto.AIScoreSetResponse, error) {
	if _, err := loadAuthorizedSubmission(ctx, s.submissions, principal, authz.ActionSubmissionRead, submissionID); err != nil {
		return dto.AIScoreSetResponse{}, err
	}

	set, err := s.scores.GetBySubmission(ctx, submissionID)
	if err != nil {
		return dto.AIScoreSetResponse{}, notFoundOr(err, "ai score set")
	}
	return dto.NewAIScoreSetResponse(set), nil
}

// Trigger returns the stored score set, or runs the scorer once and stores its result. Concurrent
// triggers for one submission share a single scorer call. The call runs detached from any single
// caller and is bounded by the configured timeout; each caller stops waiting when its own context ends.
func (s *aiScoringService) Trigger(ctx context.Context, principal authz.Principal, submissionID uint) (dto.AIScoreSetResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ai_scoring.trigger")
	span.SetAttributes(attribute.Int64("ai_scoring.submission_id", int64(submissionID)))
	defer span.End()

	submission, err := loadAuthorizedSubmission(ctx, s.submissions, principal, authz.ActionAIScoringTrigger, submissionID)
	if err != nil {
		return dto.AIScoreSetResponse{}, spanFail(span, err, "authorization_failed")
	}
	if submission.IsEvaluated() {
		return dto.AIScoreSetResponse{}, spanFail(span, ErrAlreadyFinalized, "submission_finalized")
	}

	if set, err := s.scores.GetBySubmission(ctx, submission.ID); err == nil {
		observability.ScoringAIRequests().WithLabelValues(observability.AIOutcomeCached).Inc()
		span.SetAttributes(attribute.String("ai_scoring.outcome", observability.AIOutcomeCached))
		return dto.NewAIScoreSetResponse(set), nil
	} else if !repository.IsNotFound(err) {
		return dto.AIScoreSetResponse{}, spanFail(span, err, "cache_lookup_failed")
	}

	if s.scorer == nil {
		return dto.AIScoreSetResponse{}, spanFail(span, fmt.Errorf("%w: no scorer configured", ErrAIScoringUnavailable), "scorer_disabled")
	}

	key := strconv.FormatUint(uint64(submission.ID), 10)
	detached := context.WithoutCancel(ctx)
	resultCh := s.group.DoChan(key, func() (interface{}, error) {
		return s.scoreAndStore(detached, principal, submission)
	})

	select {
	case <-ctx.Done():
		return dto.AIScoreSetResponse{}, spanFail(span, fmt.Errorf("%w: %v", ErrAIScoringUnavailable, ctx.Err()), "caller_cancelled")
	case res := <-resultCh:
		if res.Err != nil {
			return dto.AIScoreSetResponse{}, spanFail(span, res.Err, "scoring_failed")
		}
		if res.Shared {
			observability.ScoringAIRequests().WithLabelValues(observability.AIOutcomeShared).Inc()
		}
		set := res.Val.(models.AIScoreSet)
		return dto.NewAIScoreSetResponse(set), nil
	}
}

func (s *aiScoringService) scoreAndStore(ctx context.Context, principal authz.Principal, submission models.Submission) (models.AIScoreSet, error) {
	if set, err := s.scores.GetBySubmission(ctx, submission.ID); err == nil {
		return set, nil
	} else if !repository.IsNotFound(err) {
		return models.AIScoreSet{}, err
	}

	rubrics, err := s.rubrics.ListByProject(ctx, submission.ProjectID)
	if err != nil {
		return models.AIScoreSet{}, err
	}
	if len(rubrics) == 0 {
		return models.AIScoreSet{}, fmt.Errorf("%w: project has no rubrics", ErrValidation)
	}

	input := ai.ScoringInput{
		ProjectTitle:       submission.Project.Title,
		ProjectDescription: submission.Project.Description,
		SubmissionTitle:    submission.Title,
		SourceRef:          submission.SourceRef(),
		DemoLink:           submission.YoutubeLink,
		Content:            submission.Description,
		Criteria:           make([]ai.Criterion, 0, len(rubrics)),
	}
	byKey := make(map[string]uint, len(rubrics))
	for _, rubric := range rubrics {
		key := models.AIScoreEntryKey(rubric.ID)
		byKey[key] = rubric.ID
		input.Criteria = append(input.Criteria, ai.Criterion{
			Key:         key,
			Name:        rubric.Name,
			Description: rubric.Description,
			MaxPoints:   rubric.MaxPoints,
		})
	}

	requestedAt := s.now().UTC()
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.scorer.Score(callCtx, input)
	if err != nil {
		observability.ScoringAIRequests().WithLabelValues(observability.AIOutcomeFailed).Inc()
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Str("provider", s.scorer.Name()).Msg("ai scoring failed")
		return models.AIScoreSet{}, fmt.Errorf("%w: %v", ErrAIScoringUnavailable, err)
	}
	observability.ScoringAIRequests().WithLabelValues(observability.AIOutcomeCalled).Inc()

	scores := make(map[uint]models.AICriterionScore, len(result.Scores))
	for key, score := range result.Scores {
		rubricID, ok := byKey[key]
		if !ok {
			continue
		}
		scores[rubricID] = models.AICriterionScore{Value: score.Value, Feedback: score.Feedback}
	}

	candidate := models.AIScoreSet{
		SubmissionID: submission.ID,
		Provider:     s.scorer.Name(),
		Entries:      models.NewAIScoreEntries(scores),
		Raw:          datatypes.JSONMap(result.Raw),
		RequestedAt:  requestedAt,
	}

	stored, created, err := s.scores.CreateIfAbsent(ctx, &candidate)
	if errors.Is(err, repository.ErrSubmissionClosed) {
		s.logger.Info().Uint("submission_id", submission.ID).Msg("submission finalized while ai scoring ran, result discarded")
		return models.AIScoreSet{}, ErrAlreadyFinalized
	}
	if err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to store ai score set")
		return models.AIScoreSet{}, err
	}

	if created {
		recordActivity(ctx, s.activity, principal, ActivityAIScoringCompleted, models.ActivityEntitySubmission, submission.ID, map[string]interface{}{
			"provider": stored.Provider,
			"criteria": len(scores),
		})
		s.logger.Info().Uint("submission_id", submission.ID).Str("provider", stored.Provider).Msg("ai score set stored")
	}

	return stored, nil
}
