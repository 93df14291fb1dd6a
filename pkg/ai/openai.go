package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "projectflow",
		Subsystem: "ai",
		Name:      "scoring_duration_seconds",
		Help:      "Duration of AI scoring requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "projectflow",
		Subsystem: "ai",
		Name:      "scoring_failures_total",
		Help:      "Number of AI scoring failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI scorer.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIScorer implements Scorer against the OpenAI chat completion API.
type OpenAIScorer struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIScorer builds a new scorer using the provided configuration.
func NewOpenAIScorer(cfg OpenAIConfig) (*OpenAIScorer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIScorer{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/projectflow-api/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_scorer").Logger(),
	}, nil
}

// Name identifies the provider in stored score sets.
func (s *OpenAIScorer) Name() string {
	return "openai"
}

// Score sends the rubric and submission to OpenAI and parses the per-criterion answer.
func (s *OpenAIScorer) Score(parent context.Context, input ScoringInput) (ScoringResult, error) {
	ctx, span := s.tracer.Start(parent, "openai.score", trace.WithAttributes(
		attribute.String("model", s.cfg.Model),
		attribute.Int("criteria", len(input.Criteria)),
	))
	defer span.End()

	fail := func(err error) (ScoringResult, error) {
		aiFailures.WithLabelValues(s.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ScoringResult{}, err
	}

	if len(input.Criteria) == 0 {
		return fail(fmt.Errorf("no criteria to score"))
	}

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: scorerSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := s.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(s.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		return fail(fmt.Errorf("openai score: %w", err))
	}

	if len(resp.Choices) == 0 {
		return fail(fmt.Errorf("%w: no choices returned from openai", ErrMalformedResponse))
	}

	result, err := parseScoringResponse(strings.TrimSpace(resp.Choices[0].Message.Content), input.Criteria)
	if err != nil {
		return fail(err)
	}

	result.Raw = map[string]interface{}{
		"model":             resp.Model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}

	s.logger.Debug().Int("criteria", len(result.Scores)).Msg("openai scoring completed")

	return result, nil
}

func scorerSystemPrompt() string {
	return "You are an academic project reviewer. Grade the submission against every rubric criterion. " +
		"Respond with a JSON object {\"criteria\": {<key>: {\"value\": number between 0 and 1, \"feedback\": string}}} " +
		"using exactly the criterion keys you were given."
}

func buildUserPrompt(input ScoringInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Project\n")
	builder.WriteString(input.ProjectTitle)
	if input.ProjectDescription != "" {
		builder.WriteString("\n\n")
		builder.WriteString(input.ProjectDescription)
	}
	builder.WriteString("\n\n## Criteria\n")
	for _, criterion := range input.Criteria {
		fmt.Fprintf(&builder, "- key %q: %s (max %d points)", criterion.Key, criterion.Name, criterion.MaxPoints)
		if criterion.Description != "" {
			builder.WriteString(" - ")
			builder.WriteString(criterion.Description)
		}
		builder.WriteString("\n")
	}
	builder.WriteString("\n## Submission\n")
	builder.WriteString(input.SubmissionTitle)
	if input.SourceRef != "" {
		builder.WriteString("\nSource: ")
		builder.WriteString(input.SourceRef)
	}
	if input.DemoLink != "" {
		builder.WriteString("\nDemo: ")
		builder.WriteString(input.DemoLink)
	}
	if input.Content != "" {
		builder.WriteString("\n\n## Content\n")
		builder.WriteString(input.Content)
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseScoringResponse(content string, criteria []Criterion) (ScoringResult, error) {
	var document interface{}
	if err := json.Unmarshal([]byte(content), &document); err != nil {
		return ScoringResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if err := responseSchema.Validate(document); err != nil {
		return ScoringResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var payload struct {
		Criteria map[string]CriterionScore `json:"criteria"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return ScoringResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	known := make(map[string]struct{}, len(criteria))
	for _, criterion := range criteria {
		known[criterion.Key] = struct{}{}
	}

	scores := make(map[string]CriterionScore, len(payload.Criteria))
	for key, score := range payload.Criteria {
		if _, ok := known[key]; !ok {
			return ScoringResult{}, fmt.Errorf("%w: unknown criterion %q", ErrMalformedResponse, key)
		}
		scores[key] = score
	}

	return ScoringResult{Scores: scores}, nil
}
