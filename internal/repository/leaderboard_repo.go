package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/projectflow-api/internal/models"
)

// LeaderboardRow is one finalized submission joined with its score and project.
type LeaderboardRow struct {
	SubmissionID uint
	StudentID    uint
	StudentName  string
	ProjectID    uint
	ProjectTitle string
	ManualScore  float64
	MLScore      float64
	OverallScore float64
	SubmittedAt  time.Time
}

// LeaderboardRepository reads finalized submissions for ranking.
type LeaderboardRepository interface {
	ListFinalized(ctx context.Context, projectID *uint) ([]LeaderboardRow, error)
}

type leaderboardRepository struct {
	db *gorm.DB
}

// NewLeaderboardRepository instantiates the repository.
func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

// ListFinalized returns evaluated submissions ordered by overall score descending,
// then earliest submission, then id.
func (r *leaderboardRepository) ListFinalized(ctx context.Context, projectID *uint) ([]LeaderboardRow, error) {
	query := r.db.WithContext(ctx).
		Table("submissions").
		Select(`submissions.id AS submission_id,
			submissions.student_id AS student_id,
			submissions.student_name AS student_name,
			submissions.project_id AS project_id,
			projects.title AS project_title,
			final_scores.manual_score AS manual_score,
			final_scores.ml_score AS ml_score,
			final_scores.overall_score AS overall_score,
			submissions.submitted_at AS submitted_at`).
		Joins("JOIN final_scores ON final_scores.submission_id = submissions.id").
		Joins("JOIN projects ON projects.id = submissions.project_id").
		Where("submissions.status = ?", models.SubmissionStatusEvaluated)

	if projectID != nil {
		query = query.Where("submissions.project_id = ?", *projectID)
	}

	var rows []LeaderboardRow
	if err := query.
		Order("final_scores.overall_score DESC").
		Order("submissions.submitted_at ASC").
		Order("submissions.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
