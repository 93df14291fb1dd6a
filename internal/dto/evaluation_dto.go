package dto

import (
	"time"

	"github.com/noah-isme/projectflow-api/internal/models"
)

// EvaluationCreateRequest records a manual score for one rubric.
type EvaluationCreateRequest struct {
	RubricID      uint   `json:"rubric_id" validate:"required,gt=0"`
	PointsAwarded *int   `json:"points_awarded" validate:"required"`
	Feedback      string `json:"feedback" validate:"omitempty,max=5000"`
}

// EvaluationResponse serializes a manual evaluation.
type EvaluationResponse struct {
	ID            uint      `json:"id"`
	SubmissionID  uint      `json:"submission_id"`
	RubricID      uint      `json:"rubric_id"`
	RubricName    string    `json:"rubric_name,omitempty"`
	MaxPoints     int       `json:"max_points,omitempty"`
	PointsAwarded int       `json:"points_awarded"`
	Feedback      string    `json:"feedback"`
	EvaluatorID   uint      `json:"evaluator_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewEvaluationResponse converts an Evaluation model into a DTO.
func NewEvaluationResponse(model models.Evaluation) EvaluationResponse {
	response := EvaluationResponse{
		ID:            model.ID,
		SubmissionID:  model.SubmissionID,
		RubricID:      model.RubricID,
		PointsAwarded: model.PointsAwarded,
		Feedback:      model.Feedback,
		EvaluatorID:   model.EvaluatorID,
		CreatedAt:     model.CreatedAt,
	}
	if model.Rubric.ID != 0 {
		response.RubricName = model.Rubric.Name
		response.MaxPoints = model.Rubric.MaxPoints
	}
	return response
}

// NewEvaluationResponseSlice converts evaluation models into DTOs.
func NewEvaluationResponseSlice(items []models.Evaluation) []EvaluationResponse {
	responses := make([]EvaluationResponse, 0, len(items))
	for _, evaluation := range items {
		responses = append(responses, NewEvaluationResponse(evaluation))
	}
	return responses
}
