package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/projectflow-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	ProjectID      *uint
	StudentID      *uint
	ProjectOwnerID *uint
	Status         *string
}

// SubmissionRepository defines data operations for submissions, including the
// compare-and-swap transition to the evaluated state.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	ExistsForStudent(ctx context.Context, projectID, studentID uint) (bool, error)
	Finalize(ctx context.Context, submissionID uint, expectedVersion int, score *models.FinalScore) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Project").
		Preload("FinalScore")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.ProjectID != nil {
		query = query.Where("submissions.project_id = ?", *filter.ProjectID)
	}

	if filter.StudentID != nil {
		query = query.Where("submissions.student_id = ?", *filter.StudentID)
	}

	if filter.ProjectOwnerID != nil {
		query = query.Where("submissions.project_id IN (?)",
			r.db.Model(&models.Project{}).Select("id").Where("owner_id = ?", *filter.ProjectOwnerID))
	}

	if filter.Status != nil {
		query = query.Where("submissions.status = ?", *filter.Status)
	}

	var submissions []models.Submission
	if err := query.Order("submissions.submitted_at DESC").Order("submissions.id DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// Create inserts the submission unless the student already submitted to the project.
func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("Project", "FinalScore").
		Create(submission)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

// ExistsForStudent reports whether the student already submitted to the project.
func (r *submissionRepository) ExistsForStudent(ctx context.Context, projectID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("project_id = ? AND student_id = ?", projectID, studentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Finalize flips the submission to evaluated iff it is still submitted at expectedVersion,
// and records the final score in the same transaction.
func (r *submissionRepository) Finalize(ctx context.Context, submissionID uint, expectedVersion int, score *models.FinalScore) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ? AND version = ?", submissionID, models.SubmissionStatusSubmitted, expectedVersion).
			Updates(map[string]interface{}{
				"status":     models.SubmissionStatusEvaluated,
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return r.classifyLostSwap(tx, submissionID)
		}

		score.SubmissionID = submissionID
		insert := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(score)
		if insert.Error != nil {
			return insert.Error
		}
		if insert.RowsAffected == 0 {
			return ErrDuplicate
		}
		return nil
	})
}

func (r *submissionRepository) classifyLostSwap(tx *gorm.DB, submissionID uint) error {
	var current models.Submission
	if err := tx.Select("id", "status", "version").First(&current, submissionID).Error; err != nil {
		return err
	}
	if current.IsEvaluated() {
		return ErrSubmissionClosed
	}
	return ErrStaleVersion
}

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
