package module

import (
	"context"

	"github.com/project-tktt/indeed-crawler/internal/domain"
)

// JobHandler is called after each search page with the records extracted from it.
// page is 0-based.
type JobHandler func(page int, jobs []*domain.Job) error

// Crawler is the common interface for job search crawlers
type Crawler interface {
	// Search runs a query and returns every extracted record in page, then document, order
	Search(ctx context.Context, query domain.SearchQuery) ([]*domain.Job, error)
	// SearchWithCallback runs a query and calls handler after each page
	SearchWithCallback(ctx context.Context, query domain.SearchQuery, handler JobHandler) error
	// Source returns the source identifier
	Source() domain.JobSource
}
