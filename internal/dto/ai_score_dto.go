package dto

import (
	"sort"
	"time"

	"github.com/noah-isme/projectflow-api/internal/models"
)

// AICriterionScoreResponse serializes one criterion of an AI score set.
type AICriterionScoreResponse struct {
	RubricID uint    `json:"rubric_id"`
	Value    float64 `json:"value"`
	Feedback string  `json:"feedback"`
}

// AIScoreSetResponse serializes the cached AI score set of a submission.
type AIScoreSetResponse struct {
	SubmissionID uint                       `json:"submission_id"`
	Provider     string                     `json:"provider"`
	Criteria     []AICriterionScoreResponse `json:"criteria"`
	RequestedAt  time.Time                  `json:"requested_at"`
}

// NewAIScoreSetResponse converts an AIScoreSet model into a DTO ordered by rubric id.
func NewAIScoreSetResponse(model models.AIScoreSet) AIScoreSetResponse {
	scores := model.Scores()
	criteria := make([]AICriterionScoreResponse, 0, len(scores))
	for rubricID, score := range scores {
		criteria = append(criteria, AICriterionScoreResponse{RubricID: rubricID, Value: score.Value, Feedback: score.Feedback})
	}
	sort.Slice(criteria, func(i, j int) bool { return criteria[i].RubricID < criteria[j].RubricID })

	return AIScoreSetResponse{
		SubmissionID: model.SubmissionID,
		Provider:     model.Provider,
		Criteria:     criteria,
		RequestedAt:  model.RequestedAt,
	}
}
