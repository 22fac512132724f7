package indeed

import (
	"context"
	"time"

	"github.com/project-tktt/indeed-crawler/internal/common/fetcher"
	"github.com/project-tktt/indeed-crawler/internal/domain"
)

const (
	SearchPath = "/jobs"
	DetailPath = "/viewjob"
	// Indeed pages search results ten at a time via the start parameter
	JobsPerPage = 10

	ListingSelector = "div.job_seen_beacon"
	ListingIDAttr   = "data-jk"
)

// Config holds Indeed-specific configuration
type Config struct {
	SearchPath string
	DetailPath string
	PageSize   int
	Retry      fetcher.RetryPolicy
	// Politeness delay between search pages, drawn uniformly from [PageDelayMin, PageDelayMax]
	PageDelayMin time.Duration
	PageDelayMax time.Duration
	// Skip listings already extracted on an earlier page of the same run
	DedupAcrossPages bool

	ListingSelector string
	ListingIDAttr   string
}

// DefaultConfig returns the settings used against www.indeed.com
func DefaultConfig() Config {
	return Config{
		SearchPath:       SearchPath,
		DetailPath:       DetailPath,
		PageSize:         JobsPerPage,
		Retry:            fetcher.RetryPolicy{MaxRetries: 4, BaseDelay: 2 * time.Second},
		PageDelayMin:     1 * time.Second,
		PageDelayMax:     3 * time.Second,
		DedupAcrossPages: true,
		ListingSelector:  ListingSelector,
		ListingIDAttr:    ListingIDAttr,
	}
}

// PageFetcher retrieves documents with retries; *fetcher.Fetcher implements it
type PageFetcher interface {
	Fetch(ctx context.Context, req fetcher.Request, policy fetcher.RetryPolicy) (fetcher.Outcome, error)
	Resolve(req fetcher.Request) (string, error)
}

// DetailExtractor turns a detail page into a record; *extractor.Extractor implements it
type DetailExtractor interface {
	Extract(sourceURL, document string) (*domain.Job, error)
}
