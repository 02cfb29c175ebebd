package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"studioops_go/config"
	"studioops_go/controllers"
	"studioops_go/database"
	"studioops_go/database/seeders"
	"studioops_go/handlers"
	"studioops_go/middleware"
	"studioops_go/routes"
	"studioops_go/services"
	"studioops_go/services/notifications"
	"studioops_go/services/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	setupLogging(cfg)

	database.Connect()
	defer database.Close()
	if cfg.SeedData {
		if err := seeders.SeedAll(database.DB); err != nil {
			log.Fatal("Seeding failed:", err)
		}
	}

	store := database.NewGormStore(database.DB)
	redisClient := database.GetRedisClient()

	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Any notifications.Service created later broadcasts over the same hub.
	notifications.SetDefaultWSHub(wsHub)
	notifService := notifications.NewService(store, redisClient, cfg.UseRedisNotifications)
	stopNotif := make(chan struct{})
	notifService.StartWorker(stopNotif)

	lineService := services.NewLineMessagingService(cfg)
	catalog := services.NewCatalog(store)
	detector := services.NewConflictDetector()
	assignmentService := services.NewAssignmentService(store)

	creationOpts := []services.CreationOption{
		services.WithNotifier(services.NewNotificationDispatcher(notifService, lineService, catalog)),
		services.WithDefaultTimezone(cfg.DefaultTimezone),
	}
	if cfg.StrictOverlapGuard {
		creationOpts = append(creationOpts, services.WithStrictGuard(services.NewSlotLocker(redisClient)))
		log.Println("Strict overlap guard enabled")
	}
	creator := services.NewAssignmentCreationService(store, creationOpts...)
	exportService := services.NewExportService(assignmentService, catalog, cfg.AWSRegion, cfg.ExportBucket)

	scheduleManager := services.NewScheduleManager(assignmentService, notifService, cfg.ReminderCron, cfg.UpcomingCron)
	if err := scheduleManager.Start(); err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}

	healthService := services.NewHealthService("", "",
		services.WithHealthDB(database.DB),
		services.WithHealthRedis(redisClient),
		services.WithHealthConfig(cfg),
		services.WithHealthLine(lineService),
		services.WithClientCounter(wsHub.GetClientCount),
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Form-Key",
	}))
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.LogActivityMiddleware(store))

	formService := services.NewAssignmentFormService(catalog, detector)
	routes.SetupRoutes(app, routes.Controllers{
		Assignments:   controllers.NewAssignmentController(formService, creator, assignmentService, exportService),
		Catalog:       controllers.NewCatalogController(catalog),
		Health:        controllers.NewHealthController(healthService),
		Notifications: controllers.NewNotificationController(notifService),
		WebSocket:     controllers.NewWebSocketController(wsHub, cfg.JWTSecret),
		LineWebhook:   handlers.NewLineWebhookHandler(lineService, cfg.LineChannelSecret, assignmentService),
	}, cfg.JWTSecret)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down...")
		scheduleManager.Stop()
		close(stopNotif)
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on port %s", cfg.Port)
	log.Printf("Environment: %s", cfg.AppEnv)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// setupLogging configures the logging system
func setupLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.AppEnv == "development" || cfg.LogFile == "" {
		logrus.SetOutput(os.Stdout)
		return
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		log.Printf("Warning: Could not create log directory: %v", err)
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err == nil {
		logrus.SetOutput(file)
	}
}

// customErrorHandler handles application errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
		"ip":     c.IP(),
		"status": code,
	}).Error("Request error")

	return c.Status(code).JSON(fiber.Map{
		"error":  message,
		"code":   code,
		"path":   c.Path(),
		"method": c.Method(),
	})
}
