package server

import (
	"time"

	"ai-finance-assistant-be/internal/bootstrap"
	"ai-finance-assistant-be/internal/config"
	"ai-finance-assistant-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
		// Streams flush as they go; no server-side write timeout.
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	if cfg.App.MetricsEnabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	registerRoutes(app, cfg, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.container.Logger.Info("SERVER", "Server is running", map[string]interface{}{"port": s.cfg.App.Port})
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}

func registerRoutes(app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	c.HealthController.RegisterRoutes(app)

	c.AssistantController.RegisterRoutes(app, assistantLimiter(cfg.App.RateLimitPerMinute))
	c.ChatController.RegisterRoutes(app)
	c.ExampleController.RegisterRoutes(app)
}

// assistantLimiter caps questions per user per minute; anonymous callers are keyed by IP.
func assistantLimiter(perMinute int) fiber.Handler {
	if perMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if userId, ok := c.Locals("user_id").(string); ok && userId != "" {
				return userId
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(serverutils.ErrorResponse(fiber.StatusTooManyRequests, "Too many requests, slow down"))
		},
	})
}
