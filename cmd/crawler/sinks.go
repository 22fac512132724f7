package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/project-tktt/indeed-crawler/internal/common/dedup"
	"github.com/project-tktt/indeed-crawler/internal/common/indexer"
	"github.com/project-tktt/indeed-crawler/internal/config"
	"github.com/project-tktt/indeed-crawler/internal/domain"
	"github.com/project-tktt/indeed-crawler/internal/queue"
)

const (
	sinkJSON          = "json"
	sinkQueue         = "queue"
	sinkPostgres      = "postgres"
	sinkElasticsearch = "elasticsearch"
)

// The JSON file is written whether or not it is listed
var knownSinks = []string{sinkJSON, sinkQueue, sinkPostgres, sinkElasticsearch}

type namedIndexer struct {
	name string
	idx  indexer.Indexer
}

// sinks fans extracted jobs out to the JSON file and any optional backends.
// Optional backends that cannot be reached are logged and skipped.
type sinks struct {
	output    *indexer.JSONFileIndexer
	stores    []namedIndexer
	publisher *queue.Publisher
	dedup     *dedup.Deduplicator
	closers   []func() error
	logger    *slog.Logger
}

func openSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) *sinks {
	s := &sinks{
		output: indexer.NewJSONFileIndexer(cfg.Output.Path),
		logger: logger,
	}

	for _, name := range cfg.Crawler.Sinks {
		if !slices.Contains(knownSinks, strings.ToLower(name)) {
			logger.Warn("[Sinks] Unknown sink, ignoring", "sink", name)
		}
	}

	if cfg.Crawler.HasSink(sinkQueue) {
		s.openQueue(ctx, cfg.Redis)
	}
	if cfg.Crawler.HasSink(sinkPostgres) {
		s.openPostgres(ctx, cfg.Postgres)
	}
	if cfg.Crawler.HasSink(sinkElasticsearch) {
		s.openElasticsearch(ctx, cfg.Elasticsearch)
	}

	return s
}

func (s *sinks) openPostgres(ctx context.Context, cfg config.PostgresConfig) {
	pg, err := indexer.NewPostgresIndexer(ctx, cfg.ConnectionString, cfg.TableName, s.logger)
	if err != nil {
		s.logger.Warn("[Sinks] PostgreSQL unavailable, skipping", "error", err)
		return
	}
	s.stores = append(s.stores, namedIndexer{name: sinkPostgres, idx: pg})
	s.closers = append(s.closers, pg.Close)
}

func (s *sinks) openElasticsearch(ctx context.Context, cfg config.ESConfig) {
	es, err := indexer.NewElasticsearchIndexer(ctx, cfg.Addresses, cfg.Index, s.logger)
	if err != nil {
		s.logger.Warn("[Sinks] Elasticsearch unavailable, skipping", "error", err)
		return
	}
	if err := es.EnsureIndex(ctx); err != nil {
		s.logger.Warn("[Sinks] Failed to ensure index", "index", cfg.Index, "error", err)
	}
	s.stores = append(s.stores, namedIndexer{name: sinkElasticsearch, idx: es})
}

func (s *sinks) openQueue(ctx context.Context, cfg config.RedisConfig) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		s.logger.Warn("[Sinks] Redis unavailable, queue disabled", "addr", cfg.Addr, "error", err)
		rdb.Close()
		return
	}
	s.publisher = queue.NewPublisher(rdb, cfg.JobQueue)
	s.dedup = dedup.NewDeduplicator(rdb, dedup.DefaultPrefix, dedup.DefaultTTL)
	s.closers = append(s.closers, rdb.Close)
}

// PublishPage queues the jobs of one page that no earlier run has published
func (s *sinks) PublishPage(ctx context.Context, jobs []*domain.Job) error {
	if s.publisher == nil || len(jobs) == 0 {
		return nil
	}

	fresh, err := s.dedup.FilterNew(ctx, jobs)
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if err := s.publisher.BulkIndex(ctx, fresh); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	depth, err := s.publisher.QueueLength(ctx)
	if err != nil {
		s.logger.Warn("[Sinks] Failed to read queue length", "error", err)
	}
	s.logger.Info("[Sinks] Queued jobs", "new", len(fresh), "seen", len(jobs)-len(fresh), "depth", depth)
	return nil
}

// WriteAll writes the final sequence. Only a JSON file failure is returned.
func (s *sinks) WriteAll(ctx context.Context, jobs []*domain.Job) error {
	if err := s.output.BulkIndex(ctx, jobs); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	for _, st := range s.stores {
		if err := st.idx.BulkIndex(ctx, jobs); err != nil {
			s.logger.Error("[Sinks] Index error", "sink", st.name, "error", err)
			continue
		}
		s.logger.Info("[Sinks] Indexed jobs", "sink", st.name, "count", len(jobs))
	}
	return nil
}

func (s *sinks) OutputPath() string {
	return s.output.Path()
}

func (s *sinks) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			s.logger.Warn("[Sinks] Close error", "error", err)
		}
	}
}
