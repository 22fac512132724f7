package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/project-tktt/indeed-crawler/internal/config"
	"github.com/project-tktt/indeed-crawler/internal/domain"
)

func TestOpenSinksMatchesNamesCaseInsensitively(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Load()
	cfg.Output.Path = filepath.Join(t.TempDir(), "jobs.json")
	cfg.Crawler.Sinks = []string{"JSON", "Queue", "carrier-pigeon"}
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.JobQueue = "jobs:test"

	s := openSinks(context.Background(), cfg, quiet())
	defer s.Close()

	require.NotNil(t, s.publisher)
	assert.Empty(t, s.stores)

	jobs := []*domain.Job{{ID: "a", Source: "indeed", Title: "A"}}
	require.NoError(t, s.PublishPage(context.Background(), jobs))
	require.NoError(t, s.PublishPage(context.Background(), jobs))

	queued, err := mr.List("jobs:test")
	require.NoError(t, err)
	assert.Len(t, queued, 1)
}
