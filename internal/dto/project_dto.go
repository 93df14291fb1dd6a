package dto

import (
	"time"

	"github.com/noah-isme/projectflow-api/internal/models"
)

// ProjectCreateRequest is the payload for creating a project.
type ProjectCreateRequest struct {
	Title       string    `json:"title" validate:"required,min=3,max=255"`
	Description string    `json:"description" validate:"omitempty,max=10000"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	IsActive    *bool     `json:"is_active"`
}

// ProjectUpdateRequest patches mutable project fields.
type ProjectUpdateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	IsActive    *bool      `json:"is_active"`
}

// ProjectFilter describes query string filters for listing projects.
type ProjectFilter struct {
	Mine       bool `query:"mine"`
	ActiveOnly bool `query:"active"`
}

// ProjectResponse is returned to API clients when viewing projects.
type ProjectResponse struct {
	ID          uint             `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     time.Time        `json:"end_date"`
	IsActive    bool             `json:"is_active"`
	OwnerID     uint             `json:"owner_id"`
	Rubrics     []RubricResponse `json:"rubrics,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ProjectLite summarizes a project inside other responses.
type ProjectLite struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

// NewProjectResponse converts a Project model into a DTO.
func NewProjectResponse(model models.Project) ProjectResponse {
	response := ProjectResponse{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		StartDate:   model.StartDate,
		EndDate:     model.EndDate,
		IsActive:    model.IsActive,
		OwnerID:     model.OwnerID,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
	if len(model.Rubrics) > 0 {
		response.Rubrics = NewRubricResponseSlice(model.Rubrics)
	}
	return response
}

// NewProjectResponseSlice converts project models into DTOs.
func NewProjectResponseSlice(items []models.Project) []ProjectResponse {
	responses := make([]ProjectResponse, 0, len(items))
	for _, project := range items {
		responses = append(responses, NewProjectResponse(project))
	}
	return responses
}
