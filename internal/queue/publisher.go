package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/project-tktt/indeed-crawler/internal/domain"
	"github.com/redis/go-redis/v9"
)

const DefaultQueue = "jobs:raw"

// Publisher pushes jobs to Redis queue
type Publisher struct {
	client    *redis.Client
	queueName string
}

// NewPublisher creates a new queue publisher
func NewPublisher(client *redis.Client, queueName string) *Publisher {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Publisher{
		client:    client,
		queueName: queueName,
	}
}

// PublishBatch pushes multiple jobs to the queue in one round trip
func (p *Publisher) PublishBatch(ctx context.Context, jobs []*domain.RawJob) error {
	if len(jobs) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, job := range jobs {
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}
		pipe.LPush(ctx, p.queueName, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}

	return nil
}

// BulkIndex publishes extracted jobs, letting the queue act as a crawler sink
func (p *Publisher) BulkIndex(ctx context.Context, jobs []*domain.Job) error {
	raw := make([]*domain.RawJob, len(jobs))
	for i, job := range jobs {
		raw[i] = domain.NewRawJob(job)
	}
	return p.PublishBatch(ctx, raw)
}

// QueueLength returns the current queue length
func (p *Publisher) QueueLength(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.queueName).Result()
}
