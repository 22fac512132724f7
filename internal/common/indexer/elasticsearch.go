package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/project-tktt/indeed-crawler/internal/domain"
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"id": {"type": "keyword"},
			"title": {
				"type": "text",
				"fields": {"keyword": {"type": "keyword"}}
			},
			"company": {
				"type": "text",
				"fields": {"keyword": {"type": "keyword"}}
			},
			"location": {"type": "text"},
			"description": {"type": "text"},
			"source": {"type": "keyword"},
			"source_url": {"type": "keyword"},
			"crawled_at": {"type": "date"}
		}
	}
}`

// ElasticsearchIndexer indexes jobs to Elasticsearch
type ElasticsearchIndexer struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

// NewElasticsearchIndexer creates a client and checks the cluster is reachable
func NewElasticsearchIndexer(ctx context.Context, addresses []string, indexName string, logger *slog.Logger) (*ElasticsearchIndexer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
	})
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("es error: %s", res.Status())
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &ElasticsearchIndexer{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}, nil
}

// Index indexes a single job
func (i *ElasticsearchIndexer) Index(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(newDocument(job))
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.indexName,
		DocumentID: documentID(job),
		Body:       bytes.NewReader(data),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index error: %s", res.Status())
	}

	return nil
}

// bulkBody renders the NDJSON payload for a bulk request
func (i *ElasticsearchIndexer) bulkBody(jobs []*domain.Job) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for _, job := range jobs {
		meta := map[string]any{
			"index": map[string]any{
				"_index": i.indexName,
				"_id":    documentID(job),
			},
		}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("encode meta %s: %w", job.ID, err)
		}
		if err := enc.Encode(newDocument(job)); err != nil {
			return nil, fmt.Errorf("encode job %s: %w", job.ID, err)
		}
	}
	return buf.Bytes(), nil
}

// BulkIndex indexes multiple jobs at once. Per-item failures are logged and
// counted into the returned error.
func (i *ElasticsearchIndexer) BulkIndex(ctx context.Context, jobs []*domain.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	body, err := i.bulkBody(jobs)
	if err != nil {
		return err
	}

	res, err := i.client.Bulk(bytes.NewReader(body), i.client.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk error: %s", res.Status())
	}

	var bulkRes struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				ID     string `json:"_id"`
				Status int    `json:"status"`
				Error  struct {
					Type   string `json:"type"`
					Reason string `json:"reason"`
				} `json:"error"`
			} `json:"index"`
		} `json:"items"`
	}

	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return fmt.Errorf("parse bulk response: %w", err)
	}

	if !bulkRes.Errors {
		return nil
	}

	failed := 0
	for _, item := range bulkRes.Items {
		if item.Index.Status >= 400 {
			failed++
			i.logger.Error("[Elasticsearch] Bulk index error",
				"id", item.Index.ID, "type", item.Index.Error.Type, "reason", item.Index.Error.Reason)
		}
	}
	return fmt.Errorf("bulk index: %d of %d items failed", failed, len(jobs))
}

// EnsureIndex creates the index with the job mapping if it doesn't exist
func (i *ElasticsearchIndexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.indexName}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	res, err = i.client.Indices.Create(
		i.indexName,
		i.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index error: %s", res.Status())
	}

	i.logger.Info("[Elasticsearch] Created index", "index", i.indexName)
	return nil
}
