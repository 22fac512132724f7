package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/project-tktt/indeed-crawler/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultPrefix = "job:seen"
	DefaultTTL    = 30 * 24 * time.Hour
)

// Deduplicator tracks which listings were already handed downstream, across runs
type Deduplicator struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// NewDeduplicator creates a new Redis-based deduplicator
func NewDeduplicator(client *redis.Client, prefix string, defaultTTL time.Duration) *Deduplicator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if defaultTTL == 0 {
		defaultTTL = DefaultTTL
	}
	return &Deduplicator{
		client:     client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

// Claim atomically marks a listing as seen and reports whether it was new
func (d *Deduplicator) Claim(ctx context.Context, source, jobID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.makeKey(source, jobID), time.Now().Unix(), d.defaultTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

// FilterNew claims every job and returns the ones not seen before, in order
func (d *Deduplicator) FilterNew(ctx context.Context, jobs []*domain.Job) ([]*domain.Job, error) {
	fresh := make([]*domain.Job, 0, len(jobs))
	for _, job := range jobs {
		isNew, err := d.Claim(ctx, job.Source, job.ID)
		if err != nil {
			return fresh, err
		}
		if isNew {
			fresh = append(fresh, job)
		}
	}
	return fresh, nil
}

func (d *Deduplicator) makeKey(source, id string) string {
	return fmt.Sprintf("%s:%s:%s", d.prefix, source, id)
}
