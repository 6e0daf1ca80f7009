package reportcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dukabook/duka-ledger/internal/model"
	"github.com/dukabook/duka-ledger/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Use unique connection name per test to avoid global adapter caching issues
	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	return mr, adapter
}

func TestCache_RoundTrip(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	cache := New(adapter, 30*time.Second)
	ctx := context.Background()

	t.Run("miss on empty cache", func(t *testing.T) {
		totals, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, totals)
	})

	t.Run("set then get", func(t *testing.T) {
		want := &model.LedgerTotals{TotalUnpaid: 600, CountPaid: 2, CountOwing: 3}
		require.NoError(t, cache.Set(ctx, want))

		got, err := cache.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want, got)
	})

	t.Run("invalidate clears the entry", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, &model.LedgerTotals{TotalUnpaid: 100}))
		require.NoError(t, cache.Invalidate(ctx))

		got, err := cache.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestCache_TTLExpiry(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	cache := New(adapter, 5*time.Second)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &model.LedgerTotals{TotalUnpaid: 400}))

	mr.FastForward(6 * time.Second)

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_CorruptEntryTreatedAsMiss(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	cache := New(adapter, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, adapter.Set(totalsKey, []byte("{not json"), 0))

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
