package indexer

import (
	"context"
	"time"

	"github.com/project-tktt/indeed-crawler/internal/domain"
)

// Indexer defines the interface for job sinks
type Indexer interface {
	// BulkIndex writes multiple jobs at once
	BulkIndex(ctx context.Context, jobs []*domain.Job) error
}

// document is the stored form of a job for backends that keep identity and provenance
type document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	SourceURL   string    `json:"source_url"`
	CrawledAt   time.Time `json:"crawled_at"`
}

func newDocument(job *domain.Job) document {
	return document{
		ID:          job.ID,
		Title:       job.Title,
		Company:     job.Company,
		Location:    job.Location,
		Description: job.Description,
		Source:      job.Source,
		SourceURL:   job.URL,
		CrawledAt:   job.CrawledAt,
	}
}

// documentID keys a job across sources
func documentID(job *domain.Job) string {
	if job.Source == "" {
		return job.ID
	}
	return job.Source + ":" + job.ID
}
