package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codepractice-api/internal/config"
	"github.com/noah-isme/codepractice-api/internal/database"
	"github.com/noah-isme/codepractice-api/internal/events"
	"github.com/noah-isme/codepractice-api/internal/handler"
	"github.com/noah-isme/codepractice-api/internal/middleware"
	"github.com/noah-isme/codepractice-api/internal/repository"
	"github.com/noah-isme/codepractice-api/internal/router"
	"github.com/noah-isme/codepractice-api/internal/service"
	"github.com/noah-isme/codepractice-api/pkg/judge"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.IsProduction() {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, caching and pub/sub disabled")
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, events only go to redis")
		} else {
			defer natsConn.Drain()
		}
	}

	judgeClient, err := judge.NewClient(judge.Config{
		BaseURL:        cfg.JudgeBaseURL,
		APIKey:         cfg.JudgeAPIKey,
		APIHost:        cfg.JudgeAPIHost,
		PollInterval:   cfg.JudgePollInterval,
		MaxAttempts:    cfg.JudgeMaxAttempts,
		RequestTimeout: cfg.JudgeTimeout,
		Logger:         logger,
		CorrelationID:  middleware.CorrelationIDFromContext,
	})
	if err != nil {
		log.Fatalf("failed to create judge client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	problemRepo := repository.NewProblemRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	userRepo := repository.NewUserRepository(db)

	hub := events.NewHub(logger)
	publisher := hub.Wrap(events.NewPublisher(redisClient, natsConn, cfg.EventsChannel, logger))
	go publisher.Listen(ctx, func(event events.SubmissionEvent) {
		logger.Debug().
			Str("source", event.Source).
			Uint("user_id", event.UserID).
			Uint("problem_id", event.ProblemID).
			Str("status", event.Status).
			Msg("submission recorded on peer")
		hub.Deliver(event)
	})

	progressService := service.NewProgressService(problemRepo, submissionRepo, progressRepo, redisClient, service.ProgressConfig{
		CacheTTL:   cfg.StatsCacheTTL,
		WeeklyGoal: cfg.WeeklyGoal,
	}, logger)
	evaluationService := service.NewEvaluationService(judgeClient, judgeClient.Defaults(), logger)
	submissionService := service.NewSubmissionService(problemRepo, submissionRepo, progressService, evaluationService, judgeClient, judgeClient.Defaults(), publisher, validate, logger)
	problemService := service.NewProblemService(problemRepo, redisClient, validate, logger)
	authService := service.NewAuthService(userRepo, validate, service.AuthConfig{Secret: cfg.JWTSecret, TokenTTL: cfg.JWTTTL}, logger)
	seedService := service.NewSeedService(problemRepo, cfg.SeedEnabled, cfg.SeedToken, validate, logger)

	app := fiber.New(serverConfig(cfg))

	middleware.Register(app, middleware.Config{
		Logger:         &logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AccessLog:      !cfg.IsProduction(),
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(authService, validate, logger),
		ProblemHandler:  handler.NewProblemHandler(problemService, logger),
		CompilerHandler: handler.NewCompilerHandler(submissionService, validate, logger),
		UserHandler:     handler.NewUserHandler(progressService, submissionService, validate, logger),
		SeedHandler:     handler.NewSeedHandler(seedService, logger),
		FeedHandler:     handler.NewFeedHandler(hub, logger),
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(ctx, app, logger)
}

// serverConfig leaves writes unbounded: grading time grows with the number of test cases and is
// capped by the judge poll budget of each case instead.
func serverConfig(cfg config.Config) fiber.Config {
	return fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ReadTimeout:  15 * time.Second,
	}
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
