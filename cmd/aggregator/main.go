package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/aggregate"
	"github.com/nearyou-pipeline/internal/config"
	"github.com/nearyou-pipeline/internal/pkg/logger"
	"github.com/nearyou-pipeline/internal/repository/clickhouse"
	"github.com/nearyou-pipeline/internal/worker"
)

func main() {
	runOnce := flag.Bool("once", false, "run one aggregation cycle and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Aggregator",
		zap.String("env", cfg.Environment),
		zap.Duration("interval", cfg.Aggregator.Interval),
	)

	chDB, err := clickhouse.NewDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to ClickHouse", zap.Error(err))
	}
	defer chDB.Close()

	projections := clickhouse.NewProjectionRepository(chDB)
	job := aggregate.NewJob(projections, cfg.Aggregator.Interval, log)

	if *runOnce {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := projections.EnsureTables(ctx); err != nil {
			log.Fatal("Failed to ensure projection tables", zap.Error(err))
		}
		job.RunOnce(ctx)
		return
	}

	manager := worker.NewManager(log)
	manager.Register(job)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")
	if err := manager.Stop(); err != nil {
		log.Error("Worker shutdown error", zap.Error(err))
	}

	log.Info("Aggregator stopped")
}
