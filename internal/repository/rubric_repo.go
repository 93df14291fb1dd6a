package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/projectflow-api/internal/models"
)

// RubricRepository stores the ordered, append-only criteria of each project.
type RubricRepository interface {
	Create(ctx context.Context, rubric *models.Rubric) error
	GetByID(ctx context.Context, id uint) (models.Rubric, error)
	ListByProject(ctx context.Context, projectID uint) ([]models.Rubric, error)
}

type rubricRepository struct {
	db *gorm.DB
}

// NewRubricRepository instantiates the repository.
func NewRubricRepository(db *gorm.DB) RubricRepository {
	return &rubricRepository{db: db}
}

// Create appends the rubric after the project's existing criteria. Open submissions of the
// project get their version bumped so an in-flight finalize cannot complete against the old set.
func (r *rubricRepository) Create(ctx context.Context, rubric *models.Rubric) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		if err := tx.Model(&models.Rubric{}).
			Where("project_id = ?", rubric.ProjectID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		rubric.Position = last + 1
		if err := tx.Create(rubric).Error; err != nil {
			return err
		}
		return tx.Model(&models.Submission{}).
			Where("project_id = ? AND status = ?", rubric.ProjectID, models.SubmissionStatusSubmitted).
			UpdateColumn("version", gorm.Expr("version + 1")).Error
	})
}

func (r *rubricRepository) GetByID(ctx context.Context, id uint) (models.Rubric, error) {
	var rubric models.Rubric
	if err := r.db.WithContext(ctx).First(&rubric, id).Error; err != nil {
		return models.Rubric{}, err
	}
	return rubric, nil
}

func (r *rubricRepository) ListByProject(ctx context.Context, projectID uint) ([]models.Rubric, error) {
	var rubrics []models.Rubric
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("position ASC").
		Order("id ASC").
		Find(&rubrics).Error; err != nil {
		return nil, err
	}
	return rubrics, nil
}
