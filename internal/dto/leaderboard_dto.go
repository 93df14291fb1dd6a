package dto

import "time"

// LeaderboardFilter narrows the leaderboard to a single project.
type LeaderboardFilter struct {
	ProjectID *uint `query:"project_id"`
}

// LeaderboardEntry is one ranked finalized submission.
type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	SubmissionID uint      `json:"submission_id"`
	StudentID    uint      `json:"student_id"`
	Student      string    `json:"student"`
	ProjectID    uint      `json:"project_id"`
	ProjectTitle string    `json:"project_title"`
	ManualScore  float64   `json:"manual_score"`
	MLScore      float64   `json:"ml_score"`
	OverallScore float64   `json:"overall_score"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// LeaderboardResponse wraps the ranked entries.
type LeaderboardResponse struct {
	Entries     []LeaderboardEntry `json:"entries"`
	GeneratedAt time.Time          `json:"generated_at"`
	CacheHit    bool               `json:"cache_hit"`
}
