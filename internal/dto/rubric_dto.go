package dto

import (
	"time"

	"github.com/noah-isme/projectflow-api/internal/models"
)

// RubricCreateRequest appends a criterion to a project.
type RubricCreateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	MaxPoints   int    `json:"max_points" validate:"required,gte=1,lte=1000"`
	Description string `json:"description" validate:"omitempty,max=5000"`
}

// RubricResponse serializes a rubric criterion.
type RubricResponse struct {
	ID          uint      `json:"id"`
	ProjectID   uint      `json:"project_id"`
	Position    int       `json:"position"`
	Name        string    `json:"name"`
	MaxPoints   int       `json:"max_points"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewRubricResponse converts a Rubric model into a DTO.
func NewRubricResponse(model models.Rubric) RubricResponse {
	return RubricResponse{
		ID:          model.ID,
		ProjectID:   model.ProjectID,
		Position:    model.Position,
		Name:        model.Name,
		MaxPoints:   model.MaxPoints,
		Description: model.Description,
		CreatedAt:   model.CreatedAt,
	}
}

// NewRubricResponseSlice converts rubric models into DTOs.
func NewRubricResponseSlice(items []models.Rubric) []RubricResponse {
	responses := make([]RubricResponse, 0, len(items))
	for _, rubric := range items {
		responses = append(responses, NewRubricResponse(rubric))
	}
	return responses
}
