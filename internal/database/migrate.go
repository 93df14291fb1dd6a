package database

import (
	"gorm.io/gorm"

	"github.com/noah-isme/projectflow-api/internal/models"
)

// Migrate creates or updates the tables backing the scoring workflow.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Project{},
		&models.Rubric{},
		&models.Submission{},
		&models.Evaluation{},
		&models.AIScoreSet{},
		&models.FinalScore{},
		&models.ActivityLog{},
	)
}
