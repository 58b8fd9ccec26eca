package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	swagger "github.com/gofiber/swagger"
	"github.com/google/uuid"

	"github.com/localnerve/jam-build-crm/internal/config"
	"github.com/localnerve/jam-build-crm/internal/database"
	"github.com/localnerve/jam-build-crm/internal/handlers"
	crmlog "github.com/localnerve/jam-build-crm/internal/logger"
	"github.com/localnerve/jam-build-crm/internal/notify"
	"github.com/localnerve/jam-build-crm/internal/services"
	"github.com/localnerve/jam-build-crm/internal/storage"
	"github.com/localnerve/jam-build-crm/internal/utils"

	_ "github.com/localnerve/jam-build-crm/docs/api" // Swagger docs
)

// @title Jam Build CRM API
// @version 1.0.0
// @description Go Fiber CRM data service with multi-database and object storage support
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/jam-build-crm
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		boot, _ := crmlog.New().Make()
		boot.Logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logs, err := crmlog.New().
		WithLevel(cfg.LogLevel).
		Console(!cfg.IsProduction()).
		Service("jam-build-crm").
		Make()
	if err != nil {
		boot, _ := crmlog.New().Make()
		boot.Logger.Fatal().Err(err).Msg("Failed to create logger")
	}
	defer logs.Close()
	log := logs.Logger

	// Connect to database
	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Object storage
	bucket, err := storage.Open(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open object storage")
	}
	files := storage.NewLifecycle(bucket, cfg.StorageHost, log)

	sink := notify.NewGormSink(db, notify.RetentionPolicy{
		Ceiling: int64(cfg.MaxNotificationsBeforeCleanup),
		Window:  cfg.RetentionWindow(),
	}, log)

	reg := services.New(services.Deps{
		DB:      db,
		Sink:    sink,
		Storage: files,
		Mailer:  services.NewMailer(cfg, log),
		Config:  cfg,
		Log:     log,
	})

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(log),
		// Multipart framing needs headroom over the file limit
		BodyLimit:             cfg.UploadLimitBytes() + 1024*1024,
		DisableStartupMessage: cfg.IsProduction(),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.ClientURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Api-Version",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:                    cfg.RateLimitMax,
		Expiration:             cfg.RateLimitWin,
		SkipSuccessfulRequests: true,
		LimitReached: func(c *fiber.Ctx) error {
			return utils.ErrorResponse(c, fiber.StatusTooManyRequests, "Too many requests, please try again later.")
		},
	}))

	// Prometheus metrics
	prometheus := fiberprometheus.New("jam_build_crm")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api
	handlers.Register(app.Group("/api"), reg, log)

	// 404 handler
	app.Use(utils.NotFoundResponse)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Dur("grace", cfg.ShutdownGrace).Msg("Gracefully shutting down...")
		if err := app.ShutdownWithTimeout(cfg.ShutdownGrace); err != nil {
			log.Error().Err(err).Msg("Forcing exit after shutdown grace")
			os.Exit(1)
		}
	}()

	// Start server
	log.Info().Str("port", cfg.Port).Str("storage", bucket.Name()).Msg("Starting server")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}

	log.Info().Msg("Server stopped")
}
