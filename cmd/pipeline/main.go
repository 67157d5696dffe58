package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/config"
	"github.com/nearyou-pipeline/internal/generator"
	"github.com/nearyou-pipeline/internal/pipeline"
	"github.com/nearyou-pipeline/internal/pkg/logger"
	"github.com/nearyou-pipeline/internal/repository/clickhouse"
	"github.com/nearyou-pipeline/internal/repository/postgres"
	"github.com/nearyou-pipeline/internal/worker"
)

const metricsAddr = ":9101"

func main() {
	replay := flag.Bool("replay", false, "replay a time window instead of consuming live")
	hoursBack := flag.Int("hours", 0, "replay the last N hours")
	startFlag := flag.String("start", "", "replay window start (RFC3339)")
	endFlag := flag.String("end", "", "replay window end (RFC3339)")
	usersFlag := flag.String("users", "", "comma separated user ids to replay, empty for all")
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

	log.Info("Starting GPS Pipeline",
		zap.String("env", cfg.Environment),
		zap.String("broker", cfg.Kafka.Broker),
		zap.String("topic", cfg.Kafka.Topic),
	)

	pgDB, err := postgres.NewDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to PostGIS", zap.Error(err))
	}
	defer pgDB.Close()

	chDB, err := clickhouse.NewDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to ClickHouse", zap.Error(err))
	}
	defer chDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := pgDB.Health(ctx); err != nil {
		cancel()
		log.Fatal("PostGIS health check failed", zap.Error(err))
	}
	cancel()
	log.Info("All connections healthy")

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := chDB.EnsureBaseTables(bootCtx); err != nil {
		bootCancel()
		log.Fatal("Failed to ensure base tables", zap.Error(err))
	}
	bootCancel()

	processor := pipeline.NewProcessor(
		postgres.NewShopRepository(pgDB),
		clickhouse.NewProfileRepository(chDB),
		clickhouse.NewEventRepository(chDB),
		generator.NewHTTPClient(cfg.Generator.URL),
		log,
	)

	if *replay {
		runReplay(cfg, processor, log, *hoursBack, *startFlag, *endFlag, *usersFlag)
		return
	}

	reader, err := pipeline.NewReader(cfg)
	if err != nil {
		log.Fatal("Failed to build consumer", zap.Error(err))
	}

	dispatcher := pipeline.NewDispatcher(
		cfg.Pipeline.Shards,
		cfg.Pipeline.QueueDepth,
		processor,
		reader,
		log,
	)

	manager := worker.NewManager(log)
	manager.Register(pipeline.NewConsumerWorker(reader, dispatcher, log))

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	if err := manager.Start(runCtx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	go serveMetrics(log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")
	if err := manager.Stop(); err != nil {
		log.Error("Worker shutdown error", zap.Error(err))
	}

	log.Info("GPS Pipeline stopped")
}

func runReplay(cfg *config.Config, processor *pipeline.Processor, log *zap.Logger, hoursBack int, startFlag, endFlag, usersFlag string) {
	controller := pipeline.NewReplayController(cfg, processor, log)

	users, err := parseUsers(usersFlag)
	if err != nil {
		log.Fatal("Invalid users flag", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var count int
	if hoursBack > 0 {
		count, err = controller.ReplayLastHours(ctx, hoursBack, users)
	} else {
		var start, end time.Time
		start, err = time.Parse(time.RFC3339, startFlag)
		if err != nil {
			log.Fatal("Invalid start flag", zap.Error(err))
		}
		end, err = time.Parse(time.RFC3339, endFlag)
		if err != nil {
			log.Fatal("Invalid end flag", zap.Error(err))
		}
		count, err = controller.Replay(ctx, start, end, users)
	}

	if err != nil {
		log.Fatal("Replay failed", zap.Int("processed", count), zap.Error(err))
	}
	log.Info("Replay complete", zap.Int("processed", count))
}

func parseUsers(raw string) ([]uint64, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	users := make([]uint64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", part, err)
		}
		users = append(users, id)
	}
	return users, nil
}

// serveMetrics exposes the pipeline counters for scraping.
func serveMetrics(log *zap.Logger) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	if err := app.Listen(metricsAddr); err != nil {
		log.Error("Metrics listener failed", zap.Error(err))
	}
}
