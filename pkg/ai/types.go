package ai

import (
	"context"
	"errors"
)

// ErrMalformedResponse indicates the model answered with something that is not a valid score set.
var ErrMalformedResponse = errors.New("malformed scoring response")

// Criterion describes one rubric the scorer must grade.
type Criterion struct {
	Key         string
	Name        string
	Description string
	MaxPoints   int
}

// ScoringInput contains the submission content and the rubric to grade against.
type ScoringInput struct {
	ProjectTitle       string
	ProjectDescription string
	SubmissionTitle    string
	SourceRef          string
	DemoLink           string
	Content            string
	Criteria           []Criterion
}

// CriterionScore is the scorer's verdict for a single criterion. Value is a fraction in [0, 1].
type CriterionScore struct {
	Value    float64 `json:"value"`
	Feedback string  `json:"feedback"`
}

// ScoringResult maps criterion keys to scores.
type ScoringResult struct {
	Scores map[string]CriterionScore `json:"scores"`
	Raw    map[string]interface{}    `json:"raw,omitempty"`
}

// Scorer is an automated model that grades a submission per criterion.
// Implementations may be slow or fail; callers bound them with a context deadline.
type Scorer interface {
	Score(ctx context.Context, input ScoringInput) (ScoringResult, error)
	Name() string
}
