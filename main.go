package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quiz-study-system/config"
	"quiz-study-system/handlers"
	"quiz-study-system/logger"
	"quiz-study-system/middleware"
	"quiz-study-system/services"
	"quiz-study-system/store"
	"quiz-study-system/utils"
	"quiz-study-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	appLog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		appLog.Fatal("failed to connect to database", "error", err)
	}

	progressStore := store.NewGormStore(db)
	if err := progressStore.AutoMigrate(); err != nil {
		appLog.Fatal("failed to migrate database", "error", err)
	}

	var uploader services.IconUploader
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Uploader(ctx, cfg.R2)
		if err != nil {
			appLog.Fatal("failed to initialize R2 client", "error", err)
		}
		uploader = r2
	} else {
		appLog.Warn("⚠️ R2 not configured, achievement icon uploads disabled")
	}

	catalogueService := services.NewCatalogueService(db, uploader, appLog)
	if err := catalogueService.Seed(ctx); err != nil {
		appLog.Fatal("failed to seed achievement catalogue", "error", err)
	}

	dbSink := services.NewDBNotificationSink(db, appLog)
	var sink services.NotificationSink = dbSink
	if cfg.RedisURL != "" {
		queue, err := workers.NewNotificationQueue(cfg.RedisURL, dbSink, appLog)
		if err != nil {
			appLog.Fatal("failed to create notification queue", "error", err)
		}
		if err := queue.Start(); err != nil {
			appLog.Fatal("failed to start notification queue", "error", err)
		}
		defer queue.Stop()
		sink = queue
	}

	achievementService := services.NewAchievementService(progressStore, sink, appLog)
	progressionService := services.NewProgressionService(progressStore, achievementService, appLog)
	sessionService := services.NewSessionService(progressStore, progressionService, sink, appLog)
	historyService := services.NewHistoryService(db)
	teamService := services.NewTeamService(db, appLog)
	assignmentService := services.NewAssignmentService(db)
	notificationService := services.NewNotificationService(db, appLog)

	reconciler := services.NewReconciler(progressionService, progressStore, cfg.ReconcileWindow, appLog)
	scheduler, err := reconciler.Start(ctx, cfg.ReconcileInterval)
	if err != nil {
		appLog.Fatal("failed to start reconciliation job", "error", err)
	}
	defer func() { _ = scheduler.Shutdown() }()

	if cfg.SyncServiceURL != "" {
		profileWorker := workers.NewProfileSyncWorker(db, cfg.SyncServiceURL, "/api/v1/public/profiles", cfg.GatewayToken, appLog)
		go profileWorker.Start(ctx)

		assignmentClient := workers.NewAssignmentSyncClient(db, cfg.SyncServiceURL, cfg.GatewayToken, appLog)
		go workers.PollAssignments(ctx, assignmentClient, 30*time.Second)
	} else {
		appLog.Warn("⚠️ SYNC_SERVICE_URL not set, profile and assignment sync disabled")
	}

	guards := handlers.Guards{
		User:   middleware.UserContextMiddleware(appLog),
		Admin:  middleware.RequireRole("admin"),
		Stream: middleware.UserContextMiddleware(appLog),
	}
	if cfg.AuthServiceURL != "" {
		authClient := services.NewAuthServiceClient(cfg.AuthServiceURL, cfg.GatewayToken)
		guards.Stream = middleware.SSEAuthMiddleware(authClient, appLog)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	// only Gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken, appLog))

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token, X-Device-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupSessionRoutes(app, sessionService, guards)
	handlers.SetupProgressionRoutes(app, progressionService, historyService, catalogueService, guards)
	handlers.SetupTeamRoutes(app, teamService, assignmentService, guards)
	handlers.SetupNotificationRoutes(app, notificationService, guards)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			appLog.Error("server error", "error", err)
			stop()
		}
	}()

	appLog.Info("✅ Server running", "port", cfg.Port)
	appLog.Info("✅ Reconciliation job scheduled", "interval", cfg.ReconcileInterval.String(), "window", cfg.ReconcileWindow.String())
	appLog.Info("✅ CORS configured", "origins", allowedOrigins)

	<-ctx.Done()
	appLog.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLog.Error("shutdown failed", "error", err)
	}
}
