package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/projectflow-api/internal/models"
)

// AIScoreRepository caches the single accepted AI score set per submission.
type AIScoreRepository interface {
	GetBySubmission(ctx context.Context, submissionID uint) (models.AIScoreSet, error)
	CreateIfAbsent(ctx context.Context, set *models.AIScoreSet) (models.AIScoreSet, bool, error)
}

type aiScoreRepository struct {
	db *gorm.DB
}

// NewAIScoreRepository instantiates the repository.
func NewAIScoreRepository(db *gorm.DB) AIScoreRepository {
	return &aiScoreRepository{db: db}
}

func (r *aiScoreRepository) GetBySubmission(ctx context.Context, submissionID uint) (models.AIScoreSet, error) {
	var set models.AIScoreSet
	if err := r.db.WithContext(ctx).Where("submission_id = ?", submissionID).First(&set).Error; err != nil {
		return models.AIScoreSet{}, err
	}
	return set, nil
}

// errAlreadyStored rolls back the version bump when another set won the insert.
var errAlreadyStored = errors.New("ai score set already stored")

// CreateIfAbsent stores set unless one already exists, and returns the stored row. The boolean
// reports whether this call wrote it. The insert bumps the submission version in the same
// transaction, so a finalize that read the submission before the set existed loses its
// compare-and-swap. It returns ErrSubmissionClosed once the submission is finalized.
func (r *aiScoreRepository) CreateIfAbsent(ctx context.Context, set *models.AIScoreSet) (models.AIScoreSet, bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bump := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", set.SubmissionID, models.SubmissionStatusSubmitted).
			UpdateColumn("version", gorm.Expr("version + 1"))
		if bump.Error != nil {
			return bump.Error
		}
		if bump.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Submission{}).Where("id = ?", set.SubmissionID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrSubmissionClosed
		}

		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(set)
		if insert.Error != nil {
			return insert.Error
		}
		if insert.RowsAffected == 0 {
			return errAlreadyStored
		}
		return nil
	})
	if err == nil {
		return *set, true, nil
	}
	if !errors.Is(err, errAlreadyStored) {
		return models.AIScoreSet{}, false, err
	}

	stored, err := r.GetBySubmission(ctx, set.SubmissionID)
	if err != nil {
		return models.AIScoreSet{}, false, err
	}
	return stored, false, nil
}
