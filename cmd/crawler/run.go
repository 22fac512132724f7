package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/project-tktt/indeed-crawler/internal/common/blocker"
	"github.com/project-tktt/indeed-crawler/internal/common/display"
	"github.com/project-tktt/indeed-crawler/internal/common/extractor"
	"github.com/project-tktt/indeed-crawler/internal/common/fetcher"
	"github.com/project-tktt/indeed-crawler/internal/config"
	"github.com/project-tktt/indeed-crawler/internal/domain"
	"github.com/project-tktt/indeed-crawler/internal/metrics"
	"github.com/project-tktt/indeed-crawler/internal/module"
	"github.com/project-tktt/indeed-crawler/internal/module/indeed"
)

// run wires the crawler from cfg and executes one search inside the display scope
func run(ctx context.Context, opts options, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		stop := metrics.Serve(cfg.Metrics.Addr, reg, logger)
		defer stop()
	}

	crawler, err := newCrawler(cfg, logger, m)
	if err != nil {
		return fmt.Errorf("setup crawler: %w", err)
	}

	out := openSinks(ctx, cfg, logger)
	defer out.Close()

	query := domain.SearchQuery{
		Position: opts.position,
		Location: opts.location,
		MaxPages: opts.maxPages,
	}

	return display.Run(ctx, newDisplay(opts.headless, cfg.Display, logger), func(ctx context.Context) error {
		return crawl(ctx, crawler, query, out, logger)
	})
}

func newDisplay(headless bool, cfg config.DisplayConfig, logger *slog.Logger) display.Display {
	if !headless {
		return display.Noop{}
	}
	return display.NewXvfb(cfg, logger)
}

func newTransport(cfg config.CrawlerConfig) (fetcher.Transport, error) {
	switch strings.ToLower(cfg.Transport) {
	case "", "http":
		return fetcher.NewHTTPTransport(cfg.RequestTimeout), nil
	case "colly":
		return fetcher.NewCollyTransport(cfg.UserAgent, cfg.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

func newCrawler(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*indeed.Crawler, error) {
	transport, err := newTransport(cfg.Crawler)
	if err != nil {
		return nil, err
	}

	f, err := fetcher.New(
		transport,
		blocker.NewDetector(cfg.Crawler.BlockIndicators...),
		fetcher.Config{BaseURL: cfg.Crawler.BaseURL, UserAgent: cfg.Crawler.UserAgent},
		logger,
		fetcher.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	icfg := indeed.DefaultConfig()
	icfg.Retry = fetcher.RetryPolicy{MaxRetries: cfg.Crawler.MaxRetries, BaseDelay: cfg.Crawler.RetryDelay}
	icfg.PageDelayMin = cfg.Crawler.PageDelayMin
	icfg.PageDelayMax = cfg.Crawler.PageDelayMax
	icfg.DedupAcrossPages = cfg.Crawler.DedupAcrossPages

	return indeed.NewCrawler(f, extractor.New(nil, logger), icfg, logger, indeed.WithMetrics(m)), nil
}

// crawl runs the search, streams pages to the queue and writes the final
// sequence. Results gathered before a cancellation are still written.
func crawl(ctx context.Context, c module.Crawler, query domain.SearchQuery, out *sinks, logger *slog.Logger) error {
	logger.Info("[Indeed] Starting search",
		"position", query.Position, "location", query.Location, "maxPages", query.MaxPages)

	var all []*domain.Job
	searchErr := c.SearchWithCallback(ctx, query, func(page int, jobs []*domain.Job) error {
		all = append(all, jobs...)
		return out.PublishPage(ctx, jobs)
	})

	if err := out.WriteAll(context.WithoutCancel(ctx), all); err != nil {
		return err
	}

	logger.Info("[Indeed] Crawl complete", "records", len(all), "output", out.OutputPath())
	return searchErr
}
