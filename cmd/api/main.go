package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/projectflow-api/internal/config"
	"github.com/noah-isme/projectflow-api/internal/database"
	"github.com/noah-isme/projectflow-api/internal/handler"
	"github.com/noah-isme/projectflow-api/internal/middleware"
	"github.com/noah-isme/projectflow-api/internal/repository"
	"github.com/noah-isme/projectflow-api/internal/router"
	"github.com/noah-isme/projectflow-api/internal/scoring"
	"github.com/noah-isme/projectflow-api/internal/service"
	"github.com/noah-isme/projectflow-api/pkg/ai"
	cloud "github.com/noah-isme/projectflow-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "projectflow-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx := context.Background()

	db, err := database.ConnectPostgres(ctx, cfg.DatabaseURL, database.DefaultPoolConfig(), logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	checkers := map[string]handler.HealthChecker{"database": database.PingDatabase(db)}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, leaderboard cache and pubsub disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
			checkers["redis"] = database.PingRedis(redisClient)
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, scoring events limited to redis")
			natsConn = nil
		} else {
			defer natsConn.Drain()
		}
	}

	var uploader service.FileUploader
	if cfg.CloudinaryCloudName != "" {
		cloudinaryService, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("cloudinary disabled, archive uploads rejected")
		} else {
			uploader = cloudinaryService
		}
	}

	scorer := buildScorer(cfg, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	projectRepo := repository.NewProjectRepository(db)
	rubricRepo := repository.NewRubricRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	aiScoreRepo := repository.NewAIScoreRepository(db)
	leaderboardRepo := repository.NewLeaderboardRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	projectService := service.NewProjectService(projectRepo, rubricRepo, validate, activityService, logger)
	rubricService := service.NewRubricService(rubricRepo, projectRepo, validate, activityService, logger)
	submissionService := service.NewSubmissionService(submissionRepo, projectRepo, validate, uploader, activityService, logger)
	leaderboardService := service.NewLeaderboardService(leaderboardRepo, redisClient, cfg.LeaderboardCacheTTL, logger)
	aiScoringService := service.NewAIScoringService(submissionRepo, rubricRepo, aiScoreRepo, scorer, activityService, cfg.AITimeout, logger)
	evaluationService, err := service.NewEvaluationService(service.EvaluationDependencies{
		Submissions: submissionRepo,
		Rubrics:     rubricRepo,
		Evaluations: evaluationRepo,
		AIScores:    aiScoreRepo,
		Leaderboard: leaderboardService,
		Events:      service.NewScoringEventPublisher(redisClient, natsConn, cfg.EventsChannel, logger),
		Activity:    activityService,
		Validator:   validate,
		Weights:     scoring.Weights{Manual: cfg.ManualWeight, AI: cfg.AIWeight},
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid scoring configuration")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    50 * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ProjectHandler:     handler.NewProjectHandler(projectService, rubricService, logger),
		SubmissionHandler:  handler.NewSubmissionHandler(submissionService, evaluationService, aiScoringService, cfg.AIRateLimitPerMinute, logger),
		LeaderboardHandler: handler.NewLeaderboardHandler(leaderboardService, logger),
		ActivityHandler:    handler.NewActivityHandler(activityService, logger),
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
		HealthCheckers:     checkers,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Msg("http server listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

// buildScorer selects the AI provider. A nil scorer makes AI triggers return ai_scoring_unavailable.
func buildScorer(cfg config.Config, logger zerolog.Logger) ai.Scorer {
	switch cfg.AIProvider {
	case "openai":
		scorer, err := ai.NewOpenAIScorer(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.AIModel,
			Logger: logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("openai scorer disabled")
			return nil
		}
		return scorer
	case "keyword":
		return ai.NewKeywordScorer()
	default:
		logger.Info().Str("provider", cfg.AIProvider).Msg("ai scoring disabled")
		return nil
	}
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
