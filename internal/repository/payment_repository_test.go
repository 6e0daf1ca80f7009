package repository

import (
	"context"
	"testing"
	"time"

	"github.com/dukabook/duka-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPayments(t *testing.T, repo *PaymentRepository, ctx context.Context) {
	t.Helper()
	seed := []*model.Payment{
		{DebtID: 1, CustomerName: "asha", AmountPaid: 100, PaymentDate: date("2024-01-05")},
		{DebtID: 1, CustomerName: "asha", AmountPaid: 50, PaymentDate: date("2024-02-05")},
		{DebtID: 2, CustomerName: "juma", AmountPaid: 200, PaymentDate: date("2024-02-10")},
		{DebtID: 3, CustomerName: "asha", AmountPaid: 75, PaymentDate: date("2024-03-01")},
	}
	for _, p := range seed {
		_, err := repo.Create(ctx, p)
		require.NoError(t, err)
	}
}

func TestPaymentRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewPaymentRepository(db)
	ctx := context.Background()

	payment, err := repo.Create(ctx, &model.Payment{
		DebtID:       42,
		CustomerName: "asha",
		AmountPaid:   150,
		PaymentDate:  date("2024-03-01"),
	})
	require.NoError(t, err)
	assert.NotZero(t, payment.ID)
	assert.Equal(t, int64(42), payment.DebtID)
	assert.Equal(t, uint(150), payment.AmountPaid)
}

func TestPaymentRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewPaymentRepository(db)
	ctx := context.Background()
	seedPayments(t, repo, ctx)

	t.Run("no filter returns everything", func(t *testing.T) {
		payments, total, err := repo.List(ctx, model.PaymentFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, payments, 4)
	})

	t.Run("filter by customer", func(t *testing.T) {
		name := "asha"
		payments, total, err := repo.List(ctx, model.PaymentFilter{CustomerName: &name})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		for _, p := range payments {
			assert.Equal(t, "asha", p.CustomerName)
		}
	})

	t.Run("filter by debt", func(t *testing.T) {
		debtID := int64(1)
		payments, total, err := repo.List(ctx, model.PaymentFilter{DebtID: &debtID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, payments, 2)
	})

	t.Run("date range is half open", func(t *testing.T) {
		from := date("2024-02-01")
		to := date("2024-03-01")
		payments, total, err := repo.List(ctx, model.PaymentFilter{From: &from, To: &to})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, p := range payments {
			assert.True(t, !p.PaymentDate.Before(from))
			assert.True(t, p.PaymentDate.Before(to))
		}
	})

	t.Run("ordering and pagination", func(t *testing.T) {
		payments, total, err := repo.List(ctx, model.PaymentFilter{Desc: true, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, payments, 2)
		assert.Equal(t, date("2024-03-01"), payments[0].PaymentDate)

		next, _, err := repo.List(ctx, model.PaymentFilter{Desc: true, Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, next, 2)
		assert.True(t, next[0].PaymentDate.Before(payments[1].PaymentDate.Add(time.Second)))
	})
}
