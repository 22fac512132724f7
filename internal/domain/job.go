package domain

import "time"

// Job is one extracted job posting. Only the four content fields are
// serialized; identity and provenance travel alongside for the sinks.
type Job struct {
	ID        string    `json:"-"`
	URL       string    `json:"-"`
	Source    string    `json:"-"`
	CrawledAt time.Time `json:"-"`

	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`

	// DescriptionHTML is the markup the description text was read from
	DescriptionHTML string `json:"-"`
}

// RawJob is the queue payload handed from the crawler to the indexing worker
type RawJob struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	// Sanitized by the worker into Description when present
	DescriptionHTML string    `json:"description_html,omitempty"`
	ExtractedAt     time.Time `json:"extracted_at"`
}

// NewRawJob wraps an extracted job for publishing
func NewRawJob(job *Job) *RawJob {
	return &RawJob{
		ID:              job.ID,
		URL:             job.URL,
		Source:          job.Source,
		Title:           job.Title,
		Company:         job.Company,
		Location:        job.Location,
		Description:     job.Description,
		DescriptionHTML: job.DescriptionHTML,
		ExtractedAt:     job.CrawledAt,
	}
}

// Job converts the payload back into a Job
func (r *RawJob) Job() *Job {
	return &Job{
		ID:              r.ID,
		URL:             r.URL,
		Source:          r.Source,
		CrawledAt:       r.ExtractedAt,
		Title:           r.Title,
		Company:         r.Company,
		Location:        r.Location,
		Description:     r.Description,
		DescriptionHTML: r.DescriptionHTML,
	}
}

// SearchQuery is the immutable input of one crawl run
type SearchQuery struct {
	Position string
	Location string
	MaxPages int
}

// JobSource represents a job listing source
type JobSource string

const (
	SourceIndeed JobSource = "indeed"
)
