package indeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/project-tktt/indeed-crawler/internal/common/fetcher"
	"github.com/project-tktt/indeed-crawler/internal/domain"
	"github.com/project-tktt/indeed-crawler/internal/metrics"
	"github.com/project-tktt/indeed-crawler/internal/module"
)

var errDetailUnavailable = errors.New("detail page unavailable")

// Crawler implements paginated job search for Indeed
type Crawler struct {
	fetcher   PageFetcher
	extractor DetailExtractor
	config    Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	sleeper   fetcher.Sleeper
	rand      func() float64
	now       func() time.Time
}

var _ module.Crawler = (*Crawler)(nil)

// Option customizes a Crawler
type Option func(*Crawler)

// WithSleeper replaces the politeness delay timer
func WithSleeper(s fetcher.Sleeper) Option {
	return func(c *Crawler) { c.sleeper = s }
}

// WithRand replaces the random source for the politeness delay; fn must return values in [0,1)
func WithRand(fn func() float64) Option {
	return func(c *Crawler) { c.rand = fn }
}

// WithClock replaces the clock used to stamp records
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) { c.now = now }
}

// WithMetrics records pages, records and extraction failures
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Crawler) { c.metrics = m }
}

// NewCrawler creates a new Indeed crawler
func NewCrawler(f PageFetcher, e DetailExtractor, cfg Config, logger *slog.Logger, opts ...Option) *Crawler {
	def := DefaultConfig()
	if cfg.SearchPath == "" {
		cfg.SearchPath = def.SearchPath
	}
	if cfg.DetailPath == "" {
		cfg.DetailPath = def.DetailPath
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.ListingSelector == "" {
		cfg.ListingSelector = def.ListingSelector
	}
	if cfg.ListingIDAttr == "" {
		cfg.ListingIDAttr = def.ListingIDAttr
	}
	if cfg.PageDelayMax < cfg.PageDelayMin {
		cfg.PageDelayMax = cfg.PageDelayMin
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Crawler{
		fetcher:   f,
		extractor: e,
		config:    cfg,
		logger:    logger,
		sleeper:   fetcher.SystemSleeper(),
		rand:      rand.Float64,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Crawler) Source() domain.JobSource {
	return domain.SourceIndeed
}

// Search runs query and returns all records. On cancellation the records
// gathered so far are returned together with the context error.
func (c *Crawler) Search(ctx context.Context, query domain.SearchQuery) ([]*domain.Job, error) {
	var allJobs []*domain.Job
	err := c.SearchWithCallback(ctx, query, func(_ int, jobs []*domain.Job) error {
		allJobs = append(allJobs, jobs...)
		return nil
	})
	return allJobs, err
}

// SearchWithCallback walks the result pages and calls handler after each one.
// Failed pages end the run early without an error; only an invalid query or
// cancellation is returned.
func (c *Crawler) SearchWithCallback(ctx context.Context, query domain.SearchQuery, handler module.JobHandler) error {
	if query.MaxPages < 1 {
		return fmt.Errorf("max pages must be at least 1, got %d", query.MaxPages)
	}

	// Crawl state lives for this call only
	seen := make(map[string]bool)
	total := 0

	for page := 0; page < query.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := c.fetcher.Fetch(ctx, c.searchRequest(query, page), c.config.Retry)
		if err != nil {
			return fmt.Errorf("fetch search page %d: %w", page+1, err)
		}
		if !out.OK() {
			c.logger.Warn("[Indeed] Search page unavailable, stopping", "page", page+1, "reason", out.Reason)
			break
		}

		listings, err := parseListings(out.Body, c.config.ListingSelector, c.config.ListingIDAttr)
		if err != nil {
			c.logger.Error("[Indeed] Could not read search page, stopping", "page", page+1, "error", err)
			break
		}
		if listings.Cards == 0 {
			c.logger.Info("[Indeed] No more listings", "page", page+1)
			break
		}
		c.metrics.Page()

		jobs := make([]*domain.Job, 0, len(listings.IDs))
		for _, id := range listings.IDs {
			if err := ctx.Err(); err != nil {
				c.deliver(handler, page, jobs)
				return err
			}
			if c.config.DedupAcrossPages && seen[id] {
				c.logger.Debug("[Indeed] Listing already seen on an earlier page", "id", id)
				continue
			}

			job, err := c.fetchDetail(ctx, id)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					c.deliver(handler, page, jobs)
					return ctxErr
				}
				c.logger.Warn("[Indeed] Skipping listing", "id", id, "error", err)
				continue
			}
			// Failed listings may be retried if a later page lists them again
			seen[id] = true
			jobs = append(jobs, job)
			c.metrics.Record()
		}

		c.logger.Info("[Indeed] Page completed", "page", page+1, "listings", listings.Cards, "records", len(jobs))
		c.deliver(handler, page, jobs)
		total += len(jobs)

		if page < query.MaxPages-1 {
			if err := c.sleeper.Sleep(ctx, c.pageDelay()); err != nil {
				return err
			}
		}
	}

	c.logger.Info("[Indeed] Search finished", "position", query.Position, "location", query.Location, "records", total)
	return nil
}

func (c *Crawler) deliver(handler module.JobHandler, page int, jobs []*domain.Job) {
	if len(jobs) == 0 {
		return
	}
	if err := handler(page, jobs); err != nil {
		c.logger.Error("[Indeed] Handler error", "page", page+1, "error", err)
	}
}

func (c *Crawler) searchRequest(query domain.SearchQuery, page int) fetcher.Request {
	return fetcher.NewRequest(c.config.SearchPath,
		fetcher.Param{Name: "q", Value: query.Position},
		fetcher.Param{Name: "l", Value: query.Location},
		fetcher.Param{Name: "sort", Value: "date"},
		fetcher.Param{Name: "start", Value: strconv.Itoa(page * c.config.PageSize)},
	)
}

// fetchDetail fetches and extracts a single listing
func (c *Crawler) fetchDetail(ctx context.Context, id string) (*domain.Job, error) {
	req := fetcher.NewRequest(c.config.DetailPath, fetcher.Param{Name: "jk", Value: id})
	detailURL, err := c.fetcher.Resolve(req)
	if err != nil {
		return nil, fmt.Errorf("resolve detail url: %w", err)
	}

	out, err := c.fetcher.Fetch(ctx, req, c.config.Retry)
	if err != nil {
		return nil, fmt.Errorf("fetch detail: %w", err)
	}
	if !out.OK() {
		return nil, fmt.Errorf("%w: %s", errDetailUnavailable, out.Reason)
	}

	job, err := c.extractor.Extract(detailURL, out.Body)
	if err != nil {
		c.metrics.ExtractionFailure()
		return nil, fmt.Errorf("extract %s: %w", detailURL, err)
	}

	job.ID = id
	job.URL = detailURL
	job.Source = string(domain.SourceIndeed)
	job.CrawledAt = c.now()
	return job, nil
}

func (c *Crawler) pageDelay() time.Duration {
	span := c.config.PageDelayMax - c.config.PageDelayMin
	return c.config.PageDelayMin + time.Duration(float64(span)*c.rand())
}
