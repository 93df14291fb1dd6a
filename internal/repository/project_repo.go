package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/projectflow-api/internal/models"
)

// ProjectFilter narrows project listings.
type ProjectFilter struct {
	OwnerID    *uint
	ActiveOnly bool
}

// ProjectRepository defines data operations for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id uint) (models.Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, error)
	Update(ctx context.Context, project *models.Project) error
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository instantiates the repository.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *projectRepository) GetByID(ctx context.Context, id uint) (models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return models.Project{}, err
	}
	return project, nil
}

func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	query := r.db.WithContext(ctx).Model(&models.Project{})

	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var projects []models.Project
	if err := query.Order("created_at DESC").Order("id DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}
