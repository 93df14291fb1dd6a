package models

import "time"

// Evaluation is a faculty member's manual score for one rubric of a submission.
// At most one exists per (submission, rubric) and it is never updated.
type Evaluation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SubmissionID  uint      `gorm:"not null;uniqueIndex:idx_evaluation_submission_rubric,priority:1" json:"submission_id"`
	RubricID      uint      `gorm:"not null;uniqueIndex:idx_evaluation_submission_rubric,priority:2" json:"rubric_id"`
	PointsAwarded int       `gorm:"not null" json:"points_awarded"`
	Feedback      string    `gorm:"type:text" json:"feedback"`
	EvaluatorID   uint      `gorm:"not null" json:"evaluator_id"`
	CreatedAt     time.Time `json:"created_at"`
	Rubric        Rubric    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"rubric"`
}
