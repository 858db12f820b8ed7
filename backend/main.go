package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/CodeAnubhav/teenskool-next-sub000/backend/config"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/controllers"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/middleware"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/repository"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/routes"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/chat"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/enrollment"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/leveling"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/modules"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/onboarding"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/services/xp"
	"github.com/CodeAnubhav/teenskool-next-sub000/backend/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		logger.Fatal("Error initializing database", zap.Error(err))
	}
	if err := utils.Migrate(db); err != nil {
		logger.Fatal("Error migrating database", zap.Error(err))
	}

	// Founder OS progress lives in Redis when configured
	var store modules.Store = modules.NewMemoryStore()
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("Error connecting to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		store = modules.NewRedisStore(rdb)
	} else {
		logger.Info("redis.addr not set, keeping Founder OS progress in memory")
	}

	// Repositories and services
	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	tracker := enrollment.NewTracker(
		repository.NewEnrollmentRepository(db),
		courseRepo,
		repository.NewPaymentRepository(db),
		logger,
	)
	xpService := xp.NewService(
		progressRepo,
		leveling.DefaultTable(),
		onboarding.Scorer{
			BaseAward:         cfg.Onboarding.BaseAward,
			ElevatedThreshold: cfg.Onboarding.ElevatedThreshold,
			BaseTierID:        cfg.Onboarding.BaseTier,
			ElevatedTierID:    cfg.Onboarding.ElevatedTier,
		},
		onboarding.DefaultQuiz(),
		xp.Awards{Lesson: cfg.XP.LessonAward, Course: cfg.XP.CourseAward},
		logger,
	)
	chatClient := chat.NewClient(chat.Config{
		BaseURL:      cfg.AI.BaseURL,
		APIKey:       cfg.AI.APIKey,
		Model:        cfg.AI.Model,
		Temperature:  cfg.AI.Temperature,
		SystemPrompt: cfg.AI.SystemPrompt,
		Timeout:      cfg.AI.Timeout,
	}, logger)
	if cfg.AI.APIKey == "" {
		logger.Warn("ai.api_key not set, chat answers 503")
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "teenskool",
		ErrorHandler: errorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORS.AllowOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + controllers.SessionHeader,
		ExposeHeaders: controllers.SessionHeader,
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, routes.Dependencies{
		DB:        db,
		Cfg:       cfg,
		Logger:    logger,
		Courses:   courseRepo,
		Progress:  progressRepo,
		Tracker:   tracker,
		XP:        xpService,
		FounderOS: modules.NewAggregator(store, modules.DefaultModules()),
		Chat:      chatClient,
	})

	// Start server
	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			logger.Fatal("Server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// errorHandler keeps fiber's own status codes and maps everything else by
// error kind.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.Error(c, fe.Code, fe)
	}
	return utils.FromError(c, err)
}
