package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/projectflow-api/internal/models"
)

func setupScoringDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Project{},
		&models.Rubric{},
		&models.Submission{},
		&models.Evaluation{},
		&models.AIScoreSet{},
		&models.FinalScore{},
		&models.ActivityLog{},
	))
	return db
}

type scoringFixture struct {
	project    models.Project
	rubrics    []models.Rubric
	submission models.Submission
}

func seedScoringFixture(t *testing.T, db *gorm.DB) scoringFixture {
	t.Helper()
	now := time.Now().UTC()

	project := models.Project{
		Title:     "Capstone",
		StartDate: now.Add(-24 * time.Hour),
		EndDate:   now.Add(24 * time.Hour),
		IsActive:  true,
		OwnerID:   10,
	}
	require.NoError(t, db.Create(&project).Error)

	repo := NewRubricRepository(db)
	rubrics := []models.Rubric{
		{ProjectID: project.ID, Name: "Innovation", MaxPoints: 10},
		{ProjectID: project.ID, Name: "Execution", MaxPoints: 10},
	}
	for i := range rubrics {
		require.NoError(t, repo.Create(t.Context(), &rubrics[i]))
	}

	submission := models.Submission{
		ProjectID:   project.ID,
		StudentID:   20,
		StudentName: "Ada",
		Title:       "Smart Garden",
		GithubLink:  "https://github.com/ada/garden",
		Status:      models.SubmissionStatusSubmitted,
		Version:     1,
		SubmittedAt: now,
	}
	require.NoError(t, NewSubmissionRepository(db).Create(t.Context(), &submission))

	return scoringFixture{project: project, rubrics: rubrics, submission: submission}
}
