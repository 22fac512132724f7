package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/project-tktt/indeed-crawler/internal/common/cleaner"
	"github.com/project-tktt/indeed-crawler/internal/common/indexer"
	"github.com/project-tktt/indeed-crawler/internal/common/logging"
	"github.com/project-tktt/indeed-crawler/internal/common/normalizer"
	"github.com/project-tktt/indeed-crawler/internal/config"
	"github.com/project-tktt/indeed-crawler/internal/module/worker"
	"github.com/project-tktt/indeed-crawler/internal/queue"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Log)

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Starting Job Worker Service", "indexer", cfg.Worker.Indexer, "queue", cfg.Redis.JobQueue)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	logger.Info("Redis connected", "addr", cfg.Redis.Addr)

	idx, closeIdx, err := openIndexer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeIdx()

	consumer := queue.NewConsumer(rdb, cfg.Redis.JobQueue, 5*time.Second, logger)
	w := worker.NewWorker(consumer, normalizer.NewNormalizer(), cleaner.NewCleaner(), idx, worker.Config{
		Concurrency: cfg.Worker.Concurrency,
		BatchSize:   cfg.Worker.BatchSize,
	}, logger)

	err = w.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker: %w", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func openIndexer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (indexer.Indexer, func(), error) {
	switch strings.ToLower(cfg.Worker.Indexer) {
	case "elasticsearch":
		es, err := indexer.NewElasticsearchIndexer(ctx, cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Index, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("elasticsearch connection failed: %w", err)
		}
		if err := es.EnsureIndex(ctx); err != nil {
			logger.Warn("Failed to ensure index", "index", cfg.Elasticsearch.Index, "error", err)
		}
		logger.Info("Elasticsearch connected", "index", cfg.Elasticsearch.Index)
		return es, func() {}, nil

	case "postgres", "":
		pg, err := indexer.NewPostgresIndexer(ctx, cfg.Postgres.ConnectionString, cfg.Postgres.TableName, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		logger.Info("PostgreSQL connected", "table", cfg.Postgres.TableName)
		return pg, func() { _ = pg.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown indexer %q", cfg.Worker.Indexer)
	}
}
