package dto

import (
	"time"

	"github.com/noah-isme/projectflow-api/internal/models"
)

// SubmissionCreateRequest describes the payload for a new submission. It is accepted as JSON
// or as multipart form fields alongside an "archive" file.
type SubmissionCreateRequest struct {
	ProjectID   uint   `json:"project_id" form:"project_id" validate:"required,gt=0"`
	Title       string `json:"title" form:"title" validate:"required,min=3,max=255"`
	Description string `json:"description" form:"description" validate:"omitempty,max=10000"`
	GithubLink  string `json:"github_link" form:"github_link" validate:"omitempty,url,max=500"`
	ArchiveRef  string `json:"archive_ref" form:"archive_ref" validate:"omitempty,url,max=512"`
	YoutubeLink string `json:"youtube_link" form:"youtube_link" validate:"omitempty,url,max=500"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	ProjectID *uint   `query:"project_id"`
	Status    *string `query:"status" validate:"omitempty,oneof=submitted evaluated"`
}

// FinalScoreResponse serializes the locked-in aggregate of a finalized submission.
type FinalScoreResponse struct {
	SubmissionID uint      `json:"submission_id"`
	ManualScore  float64   `json:"manual_score"`
	MLScore      float64   `json:"ml_score"`
	OverallScore float64   `json:"overall_score"`
	MaxScore     float64   `json:"max_score"`
	ManualWeight float64   `json:"manual_weight"`
	AIWeight     float64   `json:"ai_weight"`
	AIIncluded   bool      `json:"ai_included"`
	FinalizedBy  uint      `json:"finalized_by"`
	FinalizedAt  time.Time `json:"finalized_at"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID          uint                `json:"id"`
	ProjectID   uint                `json:"project_id"`
	StudentID   uint                `json:"student_id"`
	StudentName string              `json:"student_name"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	GithubLink  string              `json:"github_link,omitempty"`
	ArchiveURL  string              `json:"archive_url,omitempty"`
	YoutubeLink string              `json:"youtube_link,omitempty"`
	Status      string              `json:"status"`
	Version     int                 `json:"version"`
	SubmittedAt time.Time           `json:"submitted_at"`
	Project     ProjectLite         `json:"project"`
	FinalScore  *FinalScoreResponse `json:"final_score,omitempty"`
}

// NewFinalScoreResponse converts a FinalScore model into a DTO.
func NewFinalScoreResponse(model models.FinalScore) FinalScoreResponse {
	return FinalScoreResponse{
		SubmissionID: model.SubmissionID,
		ManualScore:  model.ManualScore,
		MLScore:      model.MLScore,
		OverallScore: model.OverallScore,
		MaxScore:     model.MaxScore,
		ManualWeight: model.ManualWeight,
		AIWeight:     model.AIWeight,
		AIIncluded:   model.AIIncluded,
		FinalizedBy:  model.FinalizedBy,
		FinalizedAt:  model.FinalizedAt,
	}
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:          model.ID,
		ProjectID:   model.ProjectID,
		StudentID:   model.StudentID,
		StudentName: model.StudentName,
		Title:       model.Title,
		Description: model.Description,
		GithubLink:  model.GithubLink,
		ArchiveURL:  model.ArchiveURL,
		YoutubeLink: model.YoutubeLink,
		Status:      model.Status,
		Version:     model.Version,
		SubmittedAt: model.SubmittedAt,
	}

	if model.Project.ID != 0 {
		response.Project = ProjectLite{ID: model.Project.ID, Title: model.Project.Title}
	}

	if model.FinalScore != nil {
		score := NewFinalScoreResponse(*model.FinalScore)
		response.FinalScore = &score
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(items []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(items))
	for _, submission := range items {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
