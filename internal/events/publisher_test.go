package events

import (
	"context"
	"encoding/json"
	"testing"

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

func TestPublisher_PaymentApplied(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	pub := NewPublisher(adapter, "ledger:payments", 1000)
	ctx := context.Background()

	payment := &model.Payment{
		ID:           21,
		DebtID:       7,
		CustomerName: "asha",
		AmountPaid:   150,
	}
	receipt := &model.PaymentReceipt{PaymentID: 21, DebtID: 7, NewPaid: 250, NewUnpaid: 250}

	err := pub.PaymentApplied(ctx, payment, receipt)
	require.NoError(t, err)

	length, err := adapter.XLen("ledger:payments")
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	msgs, err := adapter.XRange("ledger:payments", "-", "+")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	raw, ok := msgs[0].Values["event"].(string)
	require.True(t, ok)

	var event PaymentAppliedEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	assert.Equal(t, EventPaymentApplied, event.Type)
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, int64(21), event.PaymentID)
	assert.Equal(t, int64(7), event.DebtID)
	assert.Equal(t, "asha", event.CustomerName)
	assert.Equal(t, uint(150), event.Amount)
	assert.Equal(t, uint(250), event.NewUnpaid)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestPublisher_DistinctEventIDs(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	defer mr.Close()

	pub := NewPublisher(adapter, "ledger:payments", 1000)
	ctx := context.Background()

	payment := &model.Payment{ID: 1, DebtID: 1, CustomerName: "asha", AmountPaid: 10}
	require.NoError(t, pub.PaymentApplied(ctx, payment, nil))
	require.NoError(t, pub.PaymentApplied(ctx, payment, nil))

	msgs, err := adapter.XRange("ledger:payments", "-", "+")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	var first, second PaymentAppliedEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["event"].(string)), &first))
	require.NoError(t, json.Unmarshal([]byte(msgs[1].Values["event"].(string)), &second))
	assert.NotEqual(t, first.EventID, second.EventID)
}
