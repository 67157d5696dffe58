package main

// @title NearYou Message Generator API
// @version 1.0.0
// @description Generates personalised promotional messages for users near shops, with content-addressed caching.

// @host localhost:8001
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

	"github.com/nearyou-pipeline/internal/cache"
	"github.com/nearyou-pipeline/internal/config"
	httpDelivery "github.com/nearyou-pipeline/internal/delivery/http"
	"github.com/nearyou-pipeline/internal/delivery/http/handler"
	"github.com/nearyou-pipeline/internal/generator"
	"github.com/nearyou-pipeline/internal/pkg/logger"
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

	log.Info("Starting Message Generator",
		zap.String("env", cfg.Environment),
		zap.String("provider", cfg.LLM.Provider),
	)

	cacheRepo := cache.New(cfg, log)
	llm := generator.NewOpenAIClient(cfg)
	service := generator.NewService(cacheRepo, llm, cfg.Cache.TTL, log)

	server := httpDelivery.NewGeneratorServer(cfg, log, handler.NewGenerateHandler(service, log))

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

	log.Info("Message Generator stopped")
}
