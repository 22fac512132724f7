package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/project-tktt/indeed-crawler/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Consumer consumes jobs from Redis queue
type Consumer struct {
	client    *redis.Client
	queueName string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewConsumer creates a new queue consumer
func NewConsumer(client *redis.Client, queueName string, timeout time.Duration, logger *slog.Logger) *Consumer {
	if queueName == "" {
		queueName = DefaultQueue
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		client:    client,
		queueName: queueName,
		timeout:   timeout,
		logger:    logger,
	}
}

// ConsumeBatch consumes up to maxBatch jobs. BRPOP blocks for the first
// item, then RPOP drains the rest without waiting. Malformed payloads are
// logged and dropped.
func (c *Consumer) ConsumeBatch(ctx context.Context, maxBatch int) ([]*domain.RawJob, error) {
	jobs := make([]*domain.RawJob, 0, maxBatch)

	result, err := c.client.BRPop(ctx, c.timeout, c.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return jobs, nil
		}
		return nil, fmt.Errorf("brpop: %w", err)
	}

	if len(result) >= 2 {
		if job, ok := c.decode(result[1]); ok {
			jobs = append(jobs, job)
		}
	}

	for i := 1; i < maxBatch; i++ {
		payload, err := c.client.RPop(ctx, c.queueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				break
			}
			return jobs, fmt.Errorf("rpop: %w", err)
		}

		if job, ok := c.decode(payload); ok {
			jobs = append(jobs, job)
		}
	}

	return jobs, nil
}

func (c *Consumer) decode(payload string) (*domain.RawJob, bool) {
	var job domain.RawJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		c.logger.Warn("[Queue] Dropping malformed job", "queue", c.queueName, "error", err)
		return nil, false
	}
	return &job, true
}
