package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/layerpipe/api/internal/config"
	"github.com/layerpipe/api/internal/handler"
	"github.com/layerpipe/api/internal/middleware"
	"github.com/layerpipe/api/internal/scheduler"
	ws "github.com/layerpipe/api/internal/websocket"
	"github.com/layerpipe/api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client (rate limiting only; limiter fails open)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize scheduler; terminal transitions feed the hub
	sched := scheduler.New(
		scheduler.WithMaxConcurrentJobs(cfg.Scheduler.MaxConcurrentJobs),
		scheduler.WithTerminalHook(hub.BroadcastJobUpdate),
	)

	// Simulated stage workers (development only)
	var runner *worker.StageRunner
	if cfg.Scheduler.SimulateWorkers {
		runner = worker.NewStageRunner(sched)
		go runner.Run(ctx)
		log.Println("Simulated stage workers enabled")
	}

	// Initialize handlers
	layerHandler := handler.NewLayerHandler(sched, validate)
	jobHandler := handler.NewJobHandler(sched, validate, runner, cfg.Scheduler.WaitTimeout)
	systemHandler := handler.NewSystemHandler(sched, cfg.Scheduler.Retention)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    50 * 1024 * 1024, // 50MB
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Layer routes
	api.Post("/projects/:projectId/layers", rateLimiter.LayerLimit(cfg.RateLimit.LayersPerMin), layerHandler.Create)
	api.Get("/projects/:projectId/layers", layerHandler.List)
	api.Get("/layers/:layerId", layerHandler.Get)
	api.Put("/layers/:layerId/status", layerHandler.UpdateStatus)
	api.Post("/layers/:layerId/audio", layerHandler.AttachAudio)
	api.Get("/layers/:layerId/audio", layerHandler.DownloadAudio)
	api.Delete("/layers/:layerId", layerHandler.Delete)

	// Job routes
	api.Post("/jobs", rateLimiter.JobLimit(cfg.RateLimit.JobsPerMin), jobHandler.Create)
	api.Get("/jobs", jobHandler.List)
	api.Get("/jobs/:jobId", jobHandler.Get)
	api.Post("/jobs/:jobId/status", jobHandler.UpdateStatus)
	api.Get("/jobs/:jobId/wait", jobHandler.Wait)

	// Stats and maintenance
	api.Get("/stats", systemHandler.Stats)
	api.Post("/maintenance/sweep", systemHandler.Sweep)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Periodic retention sweep
	go runSweeper(ctx, sched, cfg.Scheduler.SweepInterval, cfg.Scheduler.Retention)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// runSweeper invokes the retention sweep on a fixed cadence. The scheduler
// keeps everything in process memory, so the sweep is mandatory
// infrastructure rather than an optional cleanup.
func runSweeper(ctx context.Context, sched *scheduler.Scheduler, interval, retention time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := sched.ClearCompletedJobs(retention); removed > 0 {
				log.Printf("Retention sweep removed %d completed jobs", removed)
			}
		}
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
