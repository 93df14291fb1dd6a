package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/projectflow-api/internal/observability"
)

// Scoring event types.
const (
	EventSubmissionEvaluated = "submission.evaluated"
	EventSubmissionFinalized = "submission.finalized"
)

// ScoringEvent is broadcast after a scoring write commits so downstream notifiers can inform students.
type ScoringEvent struct {
	Type         string    `json:"type"`
	Source       string    `json:"source"`
	SubmissionID uint      `json:"submission_id"`
	ProjectID    uint      `json:"project_id"`
	StudentID    uint      `json:"student_id"`
	RubricID     *uint     `json:"rubric_id,omitempty"`
	OverallScore *float64  `json:"overall_score,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// EventPublisher fans scoring events out to subscribers. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event ScoringEvent)
}

type scoringEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	logger       zerolog.Logger
}

// NewScoringEventPublisher publishes to the Redis channel and to NATS subjects derived from it.
// Either transport may be nil.
func NewScoringEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channel string, logger zerolog.Logger) EventPublisher {
	subject := ""
	if channel != "" {
		subject = strings.ReplaceAll(channel, ":", ".")
	}

	return &scoringEventPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "scoring_events").Logger(),
	}
}

func (p *scoringEventPublisher) Publish(ctx context.Context, event ScoringEvent) {
	event.Source = p.nodeID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("type", event.Type).Msg("failed to encode scoring event")
		return
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			observability.ScoringEventFailures().WithLabelValues("redis").Inc()
			p.logger.Warn().Err(err).Str("type", event.Type).Uint("submission_id", event.SubmissionID).Msg("failed to publish scoring event to redis")
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject+"."+event.Type, payload); err != nil {
			observability.ScoringEventFailures().WithLabelValues("nats").Inc()
			p.logger.Warn().Err(err).Str("type", event.Type).Uint("submission_id", event.SubmissionID).Msg("failed to publish scoring event to nats")
		}
	}
}

type noopEventPublisher struct{}

func (noopEventPublisher) Publish(context.Context, ScoringEvent) {}
