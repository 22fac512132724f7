package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/project-tktt/indeed-crawler/internal/common/cleaner"
	"github.com/project-tktt/indeed-crawler/internal/common/indexer"
	"github.com/project-tktt/indeed-crawler/internal/common/normalizer"
	"github.com/project-tktt/indeed-crawler/internal/domain"
)

// BatchConsumer yields queued jobs; *queue.Consumer implements it
type BatchConsumer interface {
	ConsumeBatch(ctx context.Context, maxBatch int) ([]*domain.RawJob, error)
}

// Worker processes jobs from queue and indexes to storage
type Worker struct {
	consumer   BatchConsumer
	normalizer *normalizer.Normalizer
	cleaner    *cleaner.Cleaner
	indexer    indexer.Indexer
	logger     *slog.Logger

	batchSize   int
	concurrency int
	retryPause  time.Duration
}

// Config holds worker configuration
type Config struct {
	Concurrency int
	BatchSize   int
}

// NewWorker creates a new worker
func NewWorker(
	consumer BatchConsumer,
	norm *normalizer.Normalizer,
	clean *cleaner.Cleaner,
	idx indexer.Indexer,
	cfg Config,
	logger *slog.Logger,
) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		consumer:    consumer,
		normalizer:  norm,
		cleaner:     clean,
		indexer:     idx,
		logger:      logger,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		retryPause:  time.Second,
	}
}

// Run starts the worker pool and blocks until ctx is cancelled
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("[Worker] Starting worker pool", "workers", w.concurrency, "batch", w.batchSize)

	var wg sync.WaitGroup
	errChan := make(chan error, w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			if err := w.runSingle(ctx, workerID); err != nil {
				errChan <- fmt.Errorf("worker %d: %w", workerID, err)
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		<-done
		return ctx.Err()
	case err := <-errChan:
		return err
	case <-done:
		return nil
	}
}

func (w *Worker) runSingle(ctx context.Context, workerID int) error {
	logger := w.logger.With("worker", workerID)
	logger.Debug("[Worker] Started")

	for {
		if ctx.Err() != nil {
			logger.Debug("[Worker] Stopping")
			return nil
		}

		// BRPOP blocks for the first item, so an empty queue does not spin
		rawJobs, err := w.consumer.ConsumeBatch(ctx, w.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("[Worker] Consume error", "error", err)
			w.pause(ctx)
			continue
		}

		if len(rawJobs) == 0 {
			continue
		}

		jobs := w.processJobs(rawJobs)
		if len(jobs) == 0 {
			continue
		}
		if err := w.indexer.BulkIndex(ctx, jobs); err != nil {
			logger.Error("[Worker] Index error", "jobs", len(jobs), "error", err)
			continue
		}
		logger.Info("[Worker] Indexed jobs", "count", len(jobs))
	}
}

func (w *Worker) pause(ctx context.Context) {
	t := time.NewTimer(w.retryPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (w *Worker) processJobs(rawJobs []*domain.RawJob) []*domain.Job {
	jobs := make([]*domain.Job, 0, len(rawJobs))

	for _, raw := range rawJobs {
		// Description is already text; only markup gets sanitized
		if raw.DescriptionHTML != "" {
			raw.Description = w.cleaner.CleanToText(raw.DescriptionHTML)
		}

		job, err := w.normalizer.Normalize(raw)
		if err != nil {
			w.logger.Warn("[Worker] Normalize error", "id", raw.ID, "error", err)
			continue
		}

		jobs = append(jobs, job)
	}

	return jobs
}
