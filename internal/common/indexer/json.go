package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/project-tktt/indeed-crawler/internal/domain"
)

// JSONFileIndexer writes the whole result sequence to a file as a JSON array.
// Each call rewrites the file.
type JSONFileIndexer struct {
	path string
}

// NewJSONFileIndexer creates a file sink at path
func NewJSONFileIndexer(path string) *JSONFileIndexer {
	return &JSONFileIndexer{path: path}
}

func (i *JSONFileIndexer) Path() string {
	return i.path
}

func (i *JSONFileIndexer) BulkIndex(_ context.Context, jobs []*domain.Job) error {
	if jobs == nil {
		jobs = []*domain.Job{}
	}

	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal jobs: %w", err)
	}

	if err := os.WriteFile(i.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", i.path, err)
	}
	return nil
}
