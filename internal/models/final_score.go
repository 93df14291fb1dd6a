package models

import "time"

// FinalScore is the immutable aggregate recorded when a submission is finalized.
type FinalScore struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;uniqueIndex" json:"submission_id"`
	ManualScore  float64   `gorm:"not null" json:"manual_score"`
	MLScore      float64   `gorm:"not null" json:"ml_score"`
	OverallScore float64   `gorm:"not null;index" json:"overall_score"`
	MaxScore     float64   `gorm:"not null" json:"max_score"`
	ManualWeight float64   `gorm:"not null" json:"manual_weight"`
	AIWeight     float64   `gorm:"not null" json:"ai_weight"`
	AIIncluded   bool      `gorm:"not null" json:"ai_included"`
	FinalizedBy  uint      `gorm:"not null" json:"finalized_by"`
	FinalizedAt  time.Time `gorm:"not null" json:"finalized_at"`
}
