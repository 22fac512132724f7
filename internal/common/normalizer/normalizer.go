package normalizer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/project-tktt/indeed-crawler/internal/domain"
)

var (
	ErrNoID    = errors.New("job has no id")
	ErrNoTitle = errors.New("job has no title")

	spaceRun      = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	anyWhitespace = regexp.MustCompile(`[\s\x{00a0}]+`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

// Normalizer converts queued RawJobs into the stored Job format
type Normalizer struct {
	now func() time.Time
}

// NewNormalizer creates a new normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize tidies whitespace and fills provenance defaults.
// Jobs without an id or a title are rejected.
func (n *Normalizer) Normalize(raw *domain.RawJob) (*domain.Job, error) {
	job := raw.Job()

	job.ID = strings.TrimSpace(job.ID)
	if job.ID == "" {
		return nil, ErrNoID
	}

	job.Title = singleLine(job.Title)
	if job.Title == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoTitle, job.ID)
	}
	job.Company = singleLine(job.Company)
	job.Location = singleLine(job.Location)
	job.Description = multiLine(job.Description)

	if job.Source == "" {
		job.Source = string(domain.SourceIndeed)
	}
	if job.CrawledAt.IsZero() {
		job.CrawledAt = n.now()
	}

	return job, nil
}

// singleLine collapses all whitespace to single spaces
func singleLine(s string) string {
	return strings.TrimSpace(anyWhitespace.ReplaceAllString(s, " "))
}

// multiLine keeps paragraph breaks but trims each line
func multiLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
