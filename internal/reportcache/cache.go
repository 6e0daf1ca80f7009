package reportcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dukabook/duka-ledger/internal/model"
	"github.com/dukabook/duka-ledger/pkg/redis"
)

const totalsKey = "report:totals"

// Cache keeps the dashboard aggregates in redis for a short TTL so repeated
// dashboard polls don't hammer the debts table. Entries are invalidated on
// every write, so staleness is bounded by the TTL only when invalidation
// itself fails.
type Cache struct {
	redis redis.RedisAdapter
	ttl   time.Duration
}

func New(adapter redis.RedisAdapter, ttl time.Duration) *Cache {
	return &Cache{
		redis: adapter,
		ttl:   ttl,
	}
}

// Get returns the cached totals, or (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context) (*model.LedgerTotals, error) {
	b, err := c.redis.Get(totalsKey)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return nil, nil
		}
		return nil, err
	}

	var totals model.LedgerTotals
	if err := json.Unmarshal(b, &totals); err != nil {
		// A corrupt entry is treated as a miss and dropped.
		_ = c.redis.Del(totalsKey)
		return nil, nil
	}
	return &totals, nil
}

func (c *Cache) Set(ctx context.Context, totals *model.LedgerTotals) error {
	b, err := json.Marshal(totals)
	if err != nil {
		return err
	}
	return c.redis.Set(totalsKey, b, c.ttl)
}

func (c *Cache) Invalidate(ctx context.Context) error {
	return c.redis.Del(totalsKey)
}
