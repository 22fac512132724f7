package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/project-tktt/indeed-crawler/internal/domain"
)

func newTestDedup(t *testing.T) (*Deduplicator, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewDeduplicator(client, "", 0), mr
}

func TestClaimExpires(t *testing.T) {
	d, mr := newTestDedup(t)
	ctx := context.Background()

	first, err := d.Claim(ctx, "indeed", "abc")
	require.NoError(t, err)
	second, err := d.Claim(ctx, "indeed", "abc")
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, mr.Exists("job:seen:indeed:abc"))
	assert.Equal(t, DefaultTTL, mr.TTL("job:seen:indeed:abc"))

	mr.FastForward(DefaultTTL + time.Second)

	again, err := d.Claim(ctx, "indeed", "abc")
	require.NoError(t, err)
	assert.True(t, again)
}

func TestFilterNew(t *testing.T) {
	d, _ := newTestDedup(t)
	ctx := context.Background()
	_, err := d.Claim(ctx, "indeed", "b")
	require.NoError(t, err)

	jobs := []*domain.Job{
		{ID: "a", Source: "indeed"},
		{ID: "b", Source: "indeed"},
		{ID: "c", Source: "indeed"},
	}

	fresh, err := d.FilterNew(ctx, jobs)
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, "a", fresh[0].ID)
	assert.Equal(t, "c", fresh[1].ID)

	fresh, err = d.FilterNew(ctx, jobs)
	require.NoError(t, err)
	assert.Empty(t, fresh)
}

func TestRedisDown(t *testing.T) {
	d, mr := newTestDedup(t)
	mr.Close()

	_, err := d.Claim(context.Background(), "indeed", "x")
	assert.Error(t, err)
}
