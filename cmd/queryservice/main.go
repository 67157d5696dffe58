package main

// @title NearYou Query Service API
// @version 1.0.0
// @description Analytics over enriched GPS events: timeseries, aggregates, user activity and shop performance, routed between the raw event log and pre-aggregated projections.

// @host localhost:8002
// @BasePath /
// @schemes http

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/nearyou-pipeline/docs"
	"github.com/nearyou-pipeline/internal/cache"
	"github.com/nearyou-pipeline/internal/config"
	httpDelivery "github.com/nearyou-pipeline/internal/delivery/http"
	"github.com/nearyou-pipeline/internal/delivery/http/handler"
	"github.com/nearyou-pipeline/internal/pkg/logger"
	"github.com/nearyou-pipeline/internal/query"
	"github.com/nearyou-pipeline/internal/repository/clickhouse"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Query Service", zap.String("env", cfg.Environment))

	chDB, err := clickhouse.NewDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to ClickHouse", zap.Error(err))
	}
	defer chDB.Close()
	log.Info("ClickHouse connected", zap.String("addr", cfg.GetClickHouseAddr()))

	cacheRepo := cache.New(cfg, log)
	cacheManager := query.NewCacheManager(cacheRepo, cfg.Query.ResultTTL, log)

	analyticsRepo := clickhouse.NewAnalyticsRepository(chDB)
	service := query.NewService(analyticsRepo, cacheManager, log)

	server := httpDelivery.NewQueryServer(cfg, log, handler.NewQueryHandler(service, log))

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Query Service stopped")
}
