package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/config"
	"github.com/nearyou-pipeline/internal/delivery/http/handler"
	"github.com/nearyou-pipeline/internal/delivery/http/middleware"
	"github.com/nearyou-pipeline/internal/pkg/metrics"
)

// QueryServer hosts the analytics API.
type QueryServer struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	queryHandler *handler.QueryHandler
	httpMetrics  *metrics.HTTPMetrics
}

func NewQueryServer(cfg *config.Config, logger *zap.Logger, queryHandler *handler.QueryHandler) *QueryServer {
	app := fiber.New(fiber.Config{
		AppName:      "Query Service",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &QueryServer{
		app:          app,
		config:       cfg,
		logger:       logger,
		queryHandler: queryHandler,
		httpMetrics:  metrics.NewHTTP("query"),
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

func (s *QueryServer) setupMiddlewares() {
	s.app.Use(middleware.Recovery())
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS())
	s.app.Use(s.httpMetrics.Middleware())
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

func (s *QueryServer) setupRoutes() {
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)
	s.app.Get("/metrics", s.httpMetrics.Handler())

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	s.app.Post("/timeseries", s.queryHandler.Timeseries)
	s.app.Post("/aggregate", s.queryHandler.Aggregate)
	s.app.Post("/user/activity", s.queryHandler.UserActivity)
	s.app.Post("/shop/performance", s.queryHandler.ShopPerformance)
	s.app.Get("/data/sources", s.queryHandler.Sources)
}

func (s *QueryServer) Start() error {
	addr := s.config.GetQueryAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

func (s *QueryServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}
