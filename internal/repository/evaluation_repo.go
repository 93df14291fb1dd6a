package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/projectflow-api/internal/models"
)

// EvaluationRepository is the write-once store of manual evaluations. Create is its only mutator.
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.Evaluation) error
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.Evaluation, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository instantiates the repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

// Create inserts the evaluation and bumps the submission version in one transaction.
// It returns ErrSubmissionClosed when the submission is no longer open and ErrDuplicate
// when the (submission, rubric) pair is already evaluated; neither case writes anything.
func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bump := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", evaluation.SubmissionID, models.SubmissionStatusSubmitted).
			UpdateColumn("version", gorm.Expr("version + 1"))
		if bump.Error != nil {
			return bump.Error
		}
		if bump.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Submission{}).Where("id = ?", evaluation.SubmissionID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrSubmissionClosed
		}

		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit("Rubric").Create(evaluation)
		if insert.Error != nil {
			return insert.Error
		}
		if insert.RowsAffected == 0 {
			return ErrDuplicate
		}
		return nil
	})
}

// ListBySubmission returns evaluations in rubric-definition order.
func (r *evaluationRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.Evaluation, error) {
	var evaluations []models.Evaluation
	if err := r.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Select("evaluations.*").
		Joins("JOIN rubrics ON rubrics.id = evaluations.rubric_id").
		Where("evaluations.submission_id = ?", submissionID).
		Order("rubrics.position ASC").
		Order("rubrics.id ASC").
		Preload("Rubric").
		Find(&evaluations).Error; err != nil {
		return nil, err
	}
	return evaluations, nil
}
