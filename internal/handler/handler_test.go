package handler_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/projectflow-api/internal/config"
	"github.com/noah-isme/projectflow-api/internal/database"
	"github.com/noah-isme/projectflow-api/internal/handler"
	"github.com/noah-isme/projectflow-api/internal/middleware"
	"github.com/noah-isme/projectflow-api/internal/repository"
	"github.com/noah-isme/projectflow-api/internal/router"
	"github.com/noah-isme/projectflow-api/internal/scoring"
	"github.com/noah-isme/projectflow-api/internal/service"
	"github.com/noah-isme/projectflow-api/pkg/ai"
)

const jwtSecret = "handler-secret"

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	ErrorKind string          `json:"error_kind"`
}

type countingUploader struct {
	calls atomic.Int32
}

func (u *countingUploader) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	u.calls.Add(1)
	_, _ = io.Copy(io.Discard, reader)
	return "https://files.test/" + name, nil
}

type testServer struct {
	app      *fiber.App
	uploader *countingUploader
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	log := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())
	uploader := &countingUploader{}

	projectRepo := repository.NewProjectRepository(db)
	rubricRepo := repository.NewRubricRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	aiScoreRepo := repository.NewAIScoreRepository(db)

	activity := service.NewActivityService(repository.NewActivityLogRepository(db), log)
	leaderboard := service.NewLeaderboardService(repository.NewLeaderboardRepository(db), cache, time.Minute, log)
	evaluations, err := service.NewEvaluationService(service.EvaluationDependencies{
		Submissions: submissionRepo,
		Rubrics:     rubricRepo,
		Evaluations: repository.NewEvaluationRepository(db),
		AIScores:    aiScoreRepo,
		Leaderboard: leaderboard,
		Events:      service.NewScoringEventPublisher(cache, nil, "projectflow:scoring", log),
		Activity:    activity,
		Validator:   validate,
		Weights:     scoring.DefaultWeights(),
	}, log)
	require.NoError(t, err)

	app := fiber.New()
	middleware.Register(app, middleware.Config{})
	router.Register(app, config.Config{AppName: "ProjectFlow Test"}, router.Dependencies{
		ProjectHandler: handler.NewProjectHandler(
			service.NewProjectService(projectRepo, rubricRepo, validate, activity, log),
			service.NewRubricService(rubricRepo, projectRepo, validate, activity, log),
			log,
		),
		SubmissionHandler: handler.NewSubmissionHandler(
			service.NewSubmissionService(submissionRepo, projectRepo, validate, uploader, activity, log),
			evaluations,
			service.NewAIScoringService(submissionRepo, rubricRepo, aiScoreRepo, ai.NewKeywordScorer(), activity, time.Second, log),
			100,
			log,
		),
		LeaderboardHandler: handler.NewLeaderboardHandler(leaderboard, log),
		ActivityHandler:    handler.NewActivityHandler(activity, log),
		JWTMiddleware:      middleware.JWTProtected(jwtSecret),
		HealthCheckers: map[string]handler.HealthChecker{
			"database": database.PingDatabase(db),
			"redis":    database.PingRedis(cache),
		},
	})

	return &testServer{app: app, uploader: uploader}
}

func bearer(t *testing.T, id uint, role, name string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  fmt.Sprint(id),
		"role": role,
		"name": name,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope, *http.Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (int, envelope, *http.Response) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env, resp
}

func decode(t *testing.T, env envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, target))
}

type idOnly struct {
	ID uint `json:"id"`
}

// createProject sets up an open project owned by faculty with two 10-point rubrics.
func createProject(t *testing.T, s *testServer, faculty string) (uint, []uint) {
	t.Helper()
	now := time.Now().UTC()
	status, env, _ := s.do(t, http.MethodPost, "/api/v1/projects", faculty, map[string]interface{}{
		"title":       "Capstone 2026",
		"description": "Final year <b>project</b>",
		"start_date":  now.Add(-time.Hour).Format(time.RFC3339),
		"end_date":    now.Add(48 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	var project idOnly
	decode(t, env, &project)

	var rubricIDs []uint
	for _, name := range []string{"Innovation", "Execution"} {
		status, env, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/rubrics", project.ID), faculty, map[string]interface{}{
			"name":       name,
			"max_points": 10,
		})
		require.Equal(t, fiber.StatusCreated, status, env.Message)
		var rubric idOnly
		decode(t, env, &rubric)
		rubricIDs = append(rubricIDs, rubric.ID)
	}
	return project.ID, rubricIDs
}

func TestScoringWorkflowOverHTTP(t *testing.T) {
	s := setupServer(t)
	faculty := bearer(t, 10, "faculty", "Prof. Lin")
	student := bearer(t, 20, "student", "Ada")
	admin := bearer(t, 1, "admin", "Admin")

	projectID, rubricIDs := createProject(t, s, faculty)

	status, env, _ := s.do(t, http.MethodPost, "/api/v1/submissions", student, map[string]interface{}{
		"project_id":  projectID,
		"title":       "Smart Garden",
		"description": "A novel and robust irrigation controller.",
		"github_link": "https://github.com/ada/garden",
	})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	var submission idOnly
	decode(t, env, &submission)

	status, env, _ = s.do(t, http.MethodPost, "/api/v1/submissions", student, map[string]interface{}{
		"project_id":  projectID,
		"title":       "Smart Garden v2",
		"github_link": "https://github.com/ada/garden2",
	})
	require.Equal(t, fiber.StatusConflict, status)
	require.Equal(t, "submission_exists", env.ErrorKind)

	base := fmt.Sprintf("/api/v1/submissions/%d", submission.ID)

	status, env, _ = s.do(t, http.MethodPost, base+"/evaluations", student, map[string]interface{}{
		"rubric_id": rubricIDs[0], "points_awarded": 9,
	})
	require.Equal(t, fiber.StatusForbidden, status)
	require.Equal(t, "authorization_error", env.ErrorKind)

	status, env, _ = s.do(t, http.MethodPost, base+"/evaluations", faculty, map[string]interface{}{
		"rubric_id": rubricIDs[0], "points_awarded": 12,
	})
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "validation_error", env.ErrorKind)

	status, env, _ = s.do(t, http.MethodPost, base+"/finalize", faculty, nil)
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	require.Equal(t, "incomplete_evaluation", env.ErrorKind)

	for i, points := range []int{8, 7} {
		status, env, _ = s.do(t, http.MethodPost, base+"/evaluations", faculty, map[string]interface{}{
			"rubric_id": rubricIDs[i], "points_awarded": points, "feedback": "solid",
		})
		require.Equal(t, fiber.StatusCreated, status, env.Message)
	}

	status, env, _ = s.do(t, http.MethodPost, base+"/evaluations", faculty, map[string]interface{}{
		"rubric_id": rubricIDs[0], "points_awarded": 3,
	})
	require.Equal(t, fiber.StatusConflict, status)
	require.Equal(t, "already_evaluated", env.ErrorKind)

	status, env, _ = s.do(t, http.MethodGet, base+"/evaluations", student, nil)
	require.Equal(t, fiber.StatusOK, status)
	var evaluations []idOnly
	decode(t, env, &evaluations)
	require.Len(t, evaluations, 2)

	status, env, _ = s.do(t, http.MethodPost, base+"/finalize", faculty, nil)
	require.Equal(t, fiber.StatusOK, status, env.Message)
	var final struct {
		ManualScore  float64 `json:"manual_score"`
		OverallScore float64 `json:"overall_score"`
		AIIncluded   bool    `json:"ai_included"`
	}
	decode(t, env, &final)
	require.Equal(t, 15.0, final.ManualScore)
	require.Equal(t, 15.0, final.OverallScore)
	require.False(t, final.AIIncluded)

	status, env, _ = s.do(t, http.MethodPost, base+"/finalize", admin, nil)
	require.Equal(t, fiber.StatusConflict, status)
	require.Equal(t, "already_finalized", env.ErrorKind)

	status, env, _ = s.do(t, http.MethodPost, base+"/ai-score", faculty, nil)
	require.Equal(t, fiber.StatusConflict, status)
	require.Equal(t, "already_finalized", env.ErrorKind)

	status, env, resp := s.do(t, http.MethodGet, "/api/v1/leaderboard?project_id="+fmt.Sprint(projectID), "", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	var board struct {
		Entries []struct {
			Rank         int     `json:"rank"`
			SubmissionID uint    `json:"submission_id"`
			OverallScore float64 `json:"overall_score"`
		} `json:"entries"`
	}
	decode(t, env, &board)
	require.Len(t, board.Entries, 1)
	require.Equal(t, 1, board.Entries[0].Rank)
	require.Equal(t, submission.ID, board.Entries[0].SubmissionID)

	_, _, resp = s.do(t, http.MethodGet, "/api/v1/leaderboard?project_id="+fmt.Sprint(projectID), "", nil)
	require.Equal(t, "HIT", resp.Header.Get("X-Cache"))

	status, env, _ = s.do(t, http.MethodGet, base, student, nil)
	require.Equal(t, fiber.StatusOK, status)
	var detail struct {
		Status     string `json:"status"`
		FinalScore *struct {
			OverallScore float64 `json:"overall_score"`
		} `json:"final_score"`
	}
	decode(t, env, &detail)
	require.Equal(t, "evaluated", detail.Status)
	require.NotNil(t, detail.FinalScore)

	status, env, _ = s.do(t, http.MethodGet, "/api/v1/activities?action=submission.finalized", admin, nil)
	require.Equal(t, fiber.StatusOK, status, env.Message)

	status, env, _ = s.do(t, http.MethodGet, "/api/v1/activities", student, nil)
	require.Equal(t, fiber.StatusForbidden, status)
	require.Equal(t, "authorization_error", env.ErrorKind)
}

func TestAIScoreTriggerOverHTTP(t *testing.T) {
	s := setupServer(t)
	faculty := bearer(t, 10, "faculty", "Prof. Lin")
	student := bearer(t, 20, "student", "Ada")

	projectID, _ := createProject(t, s, faculty)
	status, env, _ := s.do(t, http.MethodPost, "/api/v1/submissions", student, map[string]interface{}{
		"project_id":  projectID,
		"title":       "Weather Station",
		"description": "Innovative, well tested and documented sensor network.",
		"github_link": "https://github.com/ada/weather",
	})
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	var submission idOnly
	decode(t, env, &submission)
	path := fmt.Sprintf("/api/v1/submissions/%d/ai-score", submission.ID)

	status, env, _ = s.do(t, http.MethodGet, path, faculty, nil)
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, "not_found", env.ErrorKind)

	status, env, _ = s.do(t, http.MethodPost, path, student, nil)
	require.Equal(t, fiber.StatusForbidden, status)

	status, env, _ = s.do(t, http.MethodPost, path, faculty, nil)
	require.Equal(t, fiber.StatusOK, status, env.Message)
	var set struct {
		Provider string `json:"provider"`
		Criteria []struct {
			RubricID uint    `json:"rubric_id"`
			Value    float64 `json:"value"`
		} `json:"criteria"`
	}
	decode(t, env, &set)
	require.Len(t, set.Criteria, 2)
	for _, criterion := range set.Criteria {
		require.GreaterOrEqual(t, criterion.Value, 0.0)
		require.LessOrEqual(t, criterion.Value, 1.0)
	}

	status, _, _ = s.do(t, http.MethodGet, path, student, nil)
	require.Equal(t, fiber.StatusOK, status)
}

func TestSubmissionMultipartArchiveUpload(t *testing.T) {
	s := setupServer(t)
	faculty := bearer(t, 10, "faculty", "Prof. Lin")
	projectID, _ := createProject(t, s, faculty)

	var archive bytes.Buffer
	zw := zip.NewWriter(&archive)
	entry, err := zw.Create("README.md")
	require.NoError(t, err)
	_, err = entry.Write([]byte("# Garden"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("project_id", fmt.Sprint(projectID)))
	require.NoError(t, form.WriteField("title", "Archive Upload"))
	part, err := form.CreateFormFile("archive", "garden.zip")
	require.NoError(t, err)
	_, err = part.Write(archive.Bytes())
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", bearer(t, 20, "student", "Ada"))

	status, env, _ := s.send(t, req)
	require.Equal(t, fiber.StatusCreated, status, env.Message)
	var created struct {
		ArchiveURL string `json:"archive_url"`
	}
	decode(t, env, &created)
	require.True(t, strings.HasSuffix(created.ArchiveURL, "garden.zip"))
	require.EqualValues(t, 1, s.uploader.calls.Load())
}

func TestRequestGuards(t *testing.T) {
	s := setupServer(t)

	status, env, _ := s.do(t, http.MethodGet, "/api/v1/projects", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)
	require.Equal(t, "unauthenticated", env.ErrorKind)

	noRole := bearer(t, 5, "guest", "Nobody")
	status, env, _ = s.do(t, http.MethodGet, "/api/v1/projects", noRole, nil)
	require.Equal(t, fiber.StatusUnauthorized, status)
	require.Equal(t, "unauthenticated", env.ErrorKind)

	faculty := bearer(t, 10, "faculty", "Prof. Lin")
	status, env, _ = s.do(t, http.MethodGet, "/api/v1/submissions/abc", faculty, nil)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "validation_error", env.ErrorKind)

	status, env, _ = s.do(t, http.MethodGet, "/api/v1/submissions/999", faculty, nil)
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, "not_found", env.ErrorKind)

	status, env, _ = s.do(t, http.MethodPost, "/api/v1/submissions", bearer(t, 20, "student", "Ada"), map[string]interface{}{
		"project_id":  4242,
		"title":       "Ghost project",
		"github_link": "https://github.com/ada/ghost",
	})
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	require.Equal(t, "invalid_project", env.ErrorKind)

	status, env, _ = s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, fiber.StatusOK, status, env.Message)
}
