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
	"github.com/rs/zerolog"

	"github.com/revizorlab/revizor-api/internal/config"
	"github.com/revizorlab/revizor-api/internal/database"
	"github.com/revizorlab/revizor-api/internal/handler"
	"github.com/revizorlab/revizor-api/internal/middleware"
	"github.com/revizorlab/revizor-api/internal/review"
	"github.com/revizorlab/revizor-api/internal/router"
	"github.com/revizorlab/revizor-api/internal/service"

	"github.com/revizorlab/revizor-api/internal/grader"
	"github.com/revizorlab/revizor-api/internal/repository"
	"github.com/revizorlab/revizor-api/pkg/ai"
	cloud "github.com/revizorlab/revizor-api/pkg/cloudinary"
	"github.com/revizorlab/revizor-api/pkg/extract"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	// Stage events and document archiving are optional capabilities: the
	// review loop works without them, so failures here only log.
	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, stage events disabled")
			natsConn = nil
		} else {
			defer natsConn.Close()
		}
	}

	var archiver service.DocumentArchiver
	if cfg.CloudinaryCloudName != "" {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("cloudinary unavailable, document archiving disabled")
		} else {
			archiver = uploader
		}
	}

	judge, err := ai.NewOpenAIJudge(ai.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: float32(cfg.OpenAITemperature),
		Timeout:     cfg.JudgeTimeout,
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("failed to create judge client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	engine := review.NewEngine(judge, extract.Text, grader.Similarity, logger)

	assignmentService := service.NewAssignmentService(assignmentRepo, redisClient, cfg.TaskCacheTTL, validate, logger)
	studentService := service.NewStudentService(studentRepo, validate, logger)
	events := service.NewNATSStagePublisher(natsConn, cfg.NATSStageSubject, logger)
	reviewService := service.NewReviewService(
		sessionRepo,
		messageRepo,
		assignmentService,
		studentRepo,
		engine,
		judge,
		cfg.JudgeTimeout,
		events,
		archiver,
		validate,
		logger,
	)

	reviewHandler := handler.NewReviewHandler(reviewService, logger)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService, logger)
	studentHandler := handler.NewStudentHandler(studentService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.UploadMaxMB * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.AllowOrigins,
	})
	router.Register(app, cfg, router.Dependencies{
		ReviewHandler:     reviewHandler,
		AssignmentHandler: assignmentHandler,
		StudentHandler:    studentHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
