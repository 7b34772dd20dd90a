package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acompanha-api/internal/config"
	"github.com/noah-isme/acompanha-api/internal/database"
	"github.com/noah-isme/acompanha-api/internal/handler"
	"github.com/noah-isme/acompanha-api/internal/middleware"
	"github.com/noah-isme/acompanha-api/internal/repository"
	"github.com/noah-isme/acompanha-api/internal/router"
	"github.com/noah-isme/acompanha-api/internal/service"
	"github.com/noah-isme/acompanha-api/pkg/blob"
	cloud "github.com/noah-isme/acompanha-api/pkg/cloudinary"
	mailer "github.com/noah-isme/acompanha-api/pkg/mail"
	"github.com/noah-isme/acompanha-api/pkg/secret"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if !cfg.IsProduction() {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, dashboard cache disabled")
		} else {
			defer redisClient.Close()
		}
	}

	box, err := credentialsBox(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid credentials key")
	}

	store, localUploads, err := blobStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure file storage")
	}

	var sender mailer.Sender = mailer.NewLogSender(logger)
	if cfg.SendGridAPIKey != "" {
		sender = mailer.NewSendGridSender(cfg.SendGridAPIKey, cfg.AppName, cfg.MailFrom)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var queue service.NotificationQueue
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer drainNATS(conn, logger)
		queue = service.NewNATSQueue(conn, cfg.NATSSubject, sender, logger)
	} else {
		channelQueue := service.NewChannelQueue(sender, cfg.NotificationWorkers, logger)
		defer channelQueue.Close()
		queue = channelQueue
	}
	queue.Start(ctx)

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	evaluatorRepo := repository.NewEvaluatorRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	unitRepo := repository.NewCurricularUnitRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	transactor := repository.NewTransactor(db)

	activityService := service.NewActivityService(activityRepo, logger)
	notifier := service.NewNotifier(queue, cfg.AppName, logger)
	uploadService := service.NewUploadService(store, cfg.UploadMaxMB, logger)
	semesterService := service.NewSemesterService(semesterRepo, transactor, activityService, validate, logger)
	reconciler := service.NewScheduleReconciler(scheduleRepo, evaluationRepo, logger)
	scheduleService := service.NewScheduleService(scheduleRepo, teacherRepo, unitRepo, semesterService, transactor, notifier, activityService, validate, logger)
	credentialService := service.NewCredentialService(credentialRepo, teacherRepo, userRepo, transactor, box, notifier, activityService, cfg.CredentialsTTL, logger)
	teacherService := service.NewTeacherService(teacherRepo, userRepo, evaluationRepo, scheduleRepo, credentialService, transactor, notifier, activityService, validate, logger)
	evaluatorService := service.NewEvaluatorService(evaluatorRepo, userRepo, evaluationRepo, validate, logger)
	courseService := service.NewCourseService(courseRepo, unitRepo, evaluationRepo, scheduleRepo, transactor, validate, logger)
	evaluationService := service.NewEvaluationService(service.EvaluationDeps{
		Evaluations: evaluationRepo,
		Teachers:    teacherRepo,
		Evaluators:  evaluatorRepo,
		Courses:     courseRepo,
		Units:       unitRepo,
		Semesters:   semesterService,
		Reconciler:  reconciler,
		Transactor:  transactor,
		Uploads:     uploadService,
		Activity:    activityService,
	}, validate, logger)
	signatureService := service.NewSignatureService(service.SignatureDeps{
		Evaluations: evaluationRepo,
		Reconciler:  reconciler,
		Transactor:  transactor,
		Uploads:     uploadService,
		Notifier:    notifier,
		Activity:    activityService,
	}, validate, logger)
	reportService := service.NewReportService(evaluationService, evaluationRepo, teacherRepo, logger)
	dashboardService := service.NewDashboardService(dashboardRepo, semesterService, redisClient, cfg.DashboardCacheTTL, logger)
	importService := service.NewImportService(teacherService, teacherRepo, courseRepo, unitRepo, transactor, activityService, logger)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL, validate, logger)

	bootstrap(ctx, service.NewSeedService(userRepo, semesterService, logger), cfg, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowedOrigins: cfg.AllowedOrigins})
	if localUploads {
		app.Static(cfg.UploadPublicURL, cfg.UploadDir)
	}
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:       handler.NewAuthHandler(authService, logger),
		TeacherHandler:    handler.NewTeacherHandler(teacherService, credentialService, logger),
		CatalogueHandler:  handler.NewCatalogueHandler(evaluatorService, courseService, logger),
		ScheduleHandler:   handler.NewScheduleHandler(semesterService, scheduleService, logger),
		EvaluationHandler: handler.NewEvaluationHandler(evaluationService, signatureService, reportService, logger),
		CredentialHandler: handler.NewCredentialHandler(credentialService, logger),
		ReportHandler:     handler.NewReportHandler(reportService, dashboardService, logger),
		ImportHandler:     handler.NewImportHandler(importService, logger),
		ActivityHandler:   handler.NewActivityHandler(activityService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Str("env", cfg.AppEnv).Msg("server starting")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(ctx, app, logger)
}

// credentialsBox parses the configured key, generating an ephemeral one outside production.
func credentialsBox(cfg config.Config, logger zerolog.Logger) (*secret.Box, error) {
	key := cfg.CredentialsKey
	if key == "" {
		generated, err := secret.GenerateKey()
		if err != nil {
			return nil, err
		}
		logger.Warn().Msg("EVAL_CREDENTIALS_KEY not set, pending credentials will not survive a restart")
		key = generated
	}
	return secret.ParseKey(key)
}

// blobStore prefers Cloudinary and falls back to the local upload directory.
func blobStore(cfg config.Config, logger zerolog.Logger) (blob.Store, bool, error) {
	if cfg.CloudinaryEnabled() {
		store, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			return nil, false, err
		}
		return store, false, nil
	}

	store, err := blob.NewLocalStore(cfg.UploadDir, cfg.UploadPublicURL)
	if err != nil {
		return nil, false, err
	}
	logger.Info().Str("dir", cfg.UploadDir).Msg("storing uploads on local disk")
	return store, true, nil
}

func bootstrap(ctx context.Context, seeds service.SeedService, cfg config.Config, logger zerolog.Logger) {
	if _, err := seeds.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		if errors.Is(err, service.ErrSeedDisabled) {
			logger.Info().Msg("EVAL_ADMIN_PASSWORD not set, skipping admin bootstrap")
		} else {
			logger.Fatal().Err(err).Msg("failed to bootstrap admin account")
		}
	}
	if _, err := seeds.EnsureCurrentSemester(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve current semester")
	}
}

func drainNATS(conn *nats.Conn, logger zerolog.Logger) {
	if err := conn.Drain(); err != nil {
		logger.Warn().Err(err).Msg("failed to drain nats connection")
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
