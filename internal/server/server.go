package server

import (
	"context"
	"time"

	"study-assistant-be/internal/bootstrap"
	"study-assistant-be/internal/config"
	"study-assistant-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // generation can be slow
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type",
	}))

	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || c.Path() == "/healthz"
	})))

	app.Use(serverutils.ErrorHandlerMiddleware())

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

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	app.Get("/healthz", func(ctx *fiber.Ctx) error {
		return ctx.JSON(serverutils.SuccessResponse[any]("ok", nil))
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(c.MetricsRegistry, promhttp.HandlerOpts{})))

	auth := serverutils.JwtMiddleware(cfg.Keys.JwtSecret)

	api := app.Group("/api")
	c.WorkflowController.RegisterRoutes(api, auth)
	c.WebSocketHandler.RegisterRoutes(api, auth)
}
