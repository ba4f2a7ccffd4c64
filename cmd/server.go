package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/Abraxas-365/placement/pkg/config"
	"github.com/Abraxas-365/placement/pkg/logx"
	"github.com/Abraxas-365/placement/pkg/metricsx"
	"github.com/Abraxas-365/placement/pkg/placement/placementapi"
)

func main() {
	// 1. Configuration and logger. The logger is rebuilt so values from .env
	// apply to it too.
	cfg := config.Load()
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))

	logx.Infof("🚀 Starting Placement Notification Service (log level: %s)...", logx.GetDefaultLogger().GetLevel())

	// 2. Dependency container
	container := NewContainer(cfg)
	defer container.Cleanup()

	// 3. Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "Placement Notifications",
		DisableStartupMessage: true,
		ErrorHandler:          placementapi.ErrorHandler(cfg.Server.Debug),
		BodyLimit:             10 * 1024 * 1024,
		IdleTimeout:           120 * time.Second,
	})

	// 4. Global middleware
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:  "GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
		ExposeHeaders: "X-Request-ID",
	}))
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${ip} | ${reqHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	}))

	// 5. Operational endpoints
	app.Get("/health", healthCheckHandler(container))
	app.Get("/metrics", adaptor.HTTPHandler(metricsx.Handler()))

	// 6. Placement routes: /api/v1/campaigns/*, /api/v1/drives/*, /api/v1/notifications
	container.Placement.Handlers.RegisterRoutes(app)
	logx.Info("✓ Placement routes registered")

	// 7. 404
	app.Use(placementapi.NotFound)

	// 8. Background services stop with the process context
	ctx, cancel := context.WithCancel(context.Background())
	container.StartBackgroundServices(ctx)

	startServer(app, cfg.Server, func() {
		cancel()
		container.Placement.Wait()
	})
}

// healthCheckHandler reports database, Redis and mail gateway health.
func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":  "healthy",
			"service": "placement-notifications",
			"version": container.Config.Server.Version,
		}

		if err := container.DB.PingContext(c.UserContext()); err != nil {
			health["db"] = "unhealthy"
			health["db_error"] = err.Error()
			health["status"] = "degraded"
		} else {
			health["db"] = "healthy"
		}

		if err := container.Redis.Ping(c.UserContext()).Err(); err != nil {
			health["redis"] = "unhealthy"
			health["redis_error"] = err.Error()
			health["status"] = "degraded"
		} else {
			health["redis"] = "healthy"
		}

		// A failing mail transport degrades delivery, not the service.
		if container.Placement.Gateway.Degraded() {
			health["mail"] = "degraded"
		} else {
			health["mail"] = "healthy"
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(health)
	}
}

// startServer listens in the background and blocks until a shutdown signal.
func startServer(app *fiber.App, cfg config.ServerConfig, stopBackground func()) {
	go func() {
		logx.Info(strings.Repeat("=", 61))
		logx.Infof("🚀 Server listening on port %s", cfg.Port)
		logx.Infof("💚 Health Check: http://localhost:%s/health", cfg.Port)
		logx.Infof("📈 Metrics: http://localhost:%s/metrics", cfg.Port)
		logx.Info(strings.Repeat("=", 61))

		if err := app.Listen(":" + cfg.Port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	gracefulShutdown(app, stopBackground)
}

// gracefulShutdown stops the HTTP server, then the workers and scheduler.
func gracefulShutdown(app *fiber.App, stopBackground func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logx.Infof("🛑 Received signal: %v", sig)
	logx.Info("Shutting down gracefully...")

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}
	stopBackground()

	logx.Info("✅ Server exited successfully")
}
