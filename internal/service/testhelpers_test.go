package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/projectflow-api/internal/authz"
	"github.com/noah-isme/projectflow-api/internal/database"
	"github.com/noah-isme/projectflow-api/internal/models"
	"github.com/noah-isme/projectflow-api/internal/repository"
	"github.com/noah-isme/projectflow-api/internal/scoring"
	"github.com/noah-isme/projectflow-api/pkg/ai"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

var (
	ownerPrincipal   = authz.Principal{ID: 10, Role: authz.RoleFaculty, Name: "Prof. Lin"}
	otherFaculty     = authz.Principal{ID: 11, Role: authz.RoleFaculty, Name: "Dr. Okafor"}
	adminPrincipal   = authz.Principal{ID: 1, Role: authz.RoleAdministrator, Name: "Admin"}
	studentPrincipal = authz.Principal{ID: 20, Role: authz.RoleStudent, Name: "Ada"}
	otherStudent     = authz.Principal{ID: 21, Role: authz.RoleStudent, Name: "Grace"}
)

// scoringHarness wires every scoring service against one in-memory database.
type scoringHarness struct {
	db          *gorm.DB
	redis       *redis.Client
	activity    *memoryActivityRepo
	projects    ProjectService
	rubrics     RubricService
	submissions SubmissionService
	evaluations EvaluationService
	aiScoring   AIScoringService
	leaderboard LeaderboardService
	project     models.Project
	rubricList  []models.Rubric
}

func newScoringHarness(t *testing.T, scorer ai.Scorer, aiTimeout time.Duration) *scoringHarness {
	t.Helper()
	db := setupServiceDB(t)
	cache := setupRedis(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	log := testLogger()

	activityRepo := &memoryActivityRepo{}
	activity := NewActivityService(activityRepo, log)

	projectRepo := repository.NewProjectRepository(db)
	rubricRepo := repository.NewRubricRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	aiScoreRepo := repository.NewAIScoreRepository(db)

	leaderboard := NewLeaderboardService(repository.NewLeaderboardRepository(db), cache, time.Minute, log)
	evaluations, err := NewEvaluationService(EvaluationDependencies{
		Submissions: submissionRepo,
		Rubrics:     rubricRepo,
		Evaluations: evaluationRepo,
		AIScores:    aiScoreRepo,
		Leaderboard: leaderboard,
		Events:      NewScoringEventPublisher(cache, nil, "projectflow:scoring", log),
		Activity:    activity,
		Validator:   validate,
		Weights:     scoring.DefaultWeights(),
	}, log)
	require.NoError(t, err)

	h := &scoringHarness{
		db:          db,
		redis:       cache,
		activity:    activityRepo,
		projects:    NewProjectService(projectRepo, rubricRepo, validate, activity, log),
		rubrics:     NewRubricService(rubricRepo, projectRepo, validate, activity, log),
		submissions: NewSubmissionService(submissionRepo, projectRepo, validate, nil, activity, log),
		evaluations: evaluations,
		aiScoring:   NewAIScoringService(submissionRepo, rubricRepo, aiScoreRepo, scorer, activity, aiTimeout, log),
		leaderboard: leaderboard,
	}

	now := time.Now().UTC()
	h.project = models.Project{
		Title:     "Capstone",
		StartDate: now.Add(-24 * time.Hour),
		EndDate:   now.Add(7 * 24 * time.Hour),
		IsActive:  true,
		OwnerID:   ownerPrincipal.ID,
	}
	require.NoError(t, projectRepo.Create(context.Background(), &h.project))

	for _, def := range []struct {
		name string
		max  int
	}{{"Innovation", 10}, {"Execution", 10}} {
		rubric := models.Rubric{ProjectID: h.project.ID, Name: def.name, MaxPoints: def.max}
		require.NoError(t, rubricRepo.Create(context.Background(), &rubric))
		h.rubricList = append(h.rubricList, rubric)
	}

	return h
}

// submit inserts a submission for student directly, bypassing the project window.
func (h *scoringHarness) submit(t *testing.T, student authz.Principal, submittedAt time.Time) models.Submission {
	t.Helper()
	submission := models.Submission{
		ProjectID:   h.project.ID,
		StudentID:   student.ID,
		StudentName: student.Name,
		Title:       "Smart Garden",
		Description: "A novel, robust and tested irrigation controller with a clean modular design.",
		GithubLink:  "https://github.com/example/garden",
		Status:      models.SubmissionStatusSubmitted,
		Version:     1,
		SubmittedAt: submittedAt,
	}
	require.NoError(t, repository.NewSubmissionRepository(h.db).Create(context.Background(), &submission))
	return submission
}

func (h *scoringHarness) countRows(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Model(model).Where(query, args...).Count(&count).Error)
	return count
}

func intPtr(v int) *int {
	return &v
}
