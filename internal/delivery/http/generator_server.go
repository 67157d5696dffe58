package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/config"
	"github.com/nearyou-pipeline/internal/delivery/http/handler"
	"github.com/nearyou-pipeline/internal/delivery/http/middleware"
	"github.com/nearyou-pipeline/internal/pkg/metrics"
)

// GeneratorServer hosts the message generation API.
type GeneratorServer struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	generateHandler *handler.GenerateHandler
	httpMetrics     *metrics.HTTPMetrics
}

func NewGeneratorServer(cfg *config.Config, logger *zap.Logger, generateHandler *handler.GenerateHandler) *GeneratorServer {
	app := fiber.New(fiber.Config{
		AppName:      "Message Generator",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &GeneratorServer{
		app:             app,
		config:          cfg,
		logger:          logger,
		generateHandler: generateHandler,
		httpMetrics:     metrics.NewHTTP("generator"),
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

func (s *GeneratorServer) setupMiddlewares() {
	s.app.Use(middleware.Recovery())
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS())
	s.app.Use(s.httpMetrics.Middleware())
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *GeneratorServer) setupRoutes() {
	s.app.Get("/metrics", s.httpMetrics.Handler())

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"provider": s.config.LLM.Provider,
			"time":     time.Now(),
		})
	})

	s.app.Post("/generate", s.generateHandler.Generate)
	s.app.Get("/cache/stats", s.generateHandler.Stats)
}

func (s *GeneratorServer) Start() error {
	addr := s.config.GetGeneratorAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

func (s *GeneratorServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}
