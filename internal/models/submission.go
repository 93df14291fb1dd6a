package models

import "time"

// Submission represents a student's entry for a project.
type Submission struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	ProjectID   uint        `gorm:"not null;uniqueIndex:idx_submission_project_student,priority:1" json:"project_id"`
	StudentID   uint        `gorm:"not null;uniqueIndex:idx_submission_project_student,priority:2;index" json:"student_id"`
	StudentName string      `gorm:"size:255" json:"student_name"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	GithubLink  string      `gorm:"size:500" json:"github_link"`
	ArchiveURL  string      `gorm:"size:512" json:"archive_url"`
	YoutubeLink string      `gorm:"size:500" json:"youtube_link"`
	Status      string      `gorm:"size:32;not null;index" json:"status"`
	Version     int         `gorm:"not null;default:1" json:"version"`
	SubmittedAt time.Time   `gorm:"not null" json:"submitted_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Project     Project     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"project"`
	FinalScore  *FinalScore `json:"final_score,omitempty"`
}

const (
	// SubmissionStatusSubmitted indicates the submission is open for evaluation.
	SubmissionStatusSubmitted = "submitted"
	// SubmissionStatusEvaluated indicates the submission has been finalized. Terminal.
	SubmissionStatusEvaluated = "evaluated"
)

// IsEvaluated reports whether the submission has been finalized.
func (s Submission) IsEvaluated() bool {
	return s.Status == SubmissionStatusEvaluated
}

// SourceRef returns the primary artefact reference, preferring the repository link.
func (s Submission) SourceRef() string {
	if s.GithubLink != "" {
		return s.GithubLink
	}
	return s.ArchiveURL
}
