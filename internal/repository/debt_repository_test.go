package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dukabook/duka-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDebtRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewDebtRepository(db)
	ctx := context.Background()

	t.Run("successful create", func(t *testing.T) {
		debt, err := repo.Create(ctx, &model.Debt{
			CustomerName:    "asha",
			Product:         "maize flour",
			Total:           500,
			PaidAmount:      100,
			UnpaidAmount:    400,
			TransactionDate: date("2024-03-01"),
		})
		require.NoError(t, err)
		assert.NotZero(t, debt.ID)
		assert.Equal(t, uint(400), debt.UnpaidAmount)
	})

	t.Run("rejects balances that do not add up", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.Debt{
			CustomerName:    "asha",
			Product:         "sugar",
			Total:           500,
			PaidAmount:      100,
			UnpaidAmount:    300,
			TransactionDate: date("2024-03-01"),
		})
		assert.ErrorIs(t, err, ErrInvariantViolation)
	})

	t.Run("fully paid debt is allowed", func(t *testing.T) {
		debt, err := repo.Create(ctx, &model.Debt{
			CustomerName:    "juma",
			Product:         "rice",
			Total:           200,
			PaidAmount:      200,
			UnpaidAmount:    0,
			TransactionDate: date("2024-03-02"),
		})
		require.NoError(t, err)
		assert.False(t, debt.Open())
	})
}

func TestDebtRepository_FindLatestOpen(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewDebtRepository(db)
	ctx := context.Background()

	seed := []*model.Debt{
		{CustomerName: "asha", Product: "flour", Total: 100, UnpaidAmount: 100, TransactionDate: date("2024-01-10")},
		{CustomerName: "asha", Product: "sugar", Total: 200, UnpaidAmount: 200, TransactionDate: date("2024-02-10")},
		{CustomerName: "asha", Product: "salt", Total: 50, PaidAmount: 50, UnpaidAmount: 0, TransactionDate: date("2024-03-10")},
		{CustomerName: "juma", Product: "rice", Total: 300, UnpaidAmount: 300, TransactionDate: date("2024-02-20")},
	}
	for _, d := range seed {
		_, err := repo.Create(ctx, d)
		require.NoError(t, err)
	}

	t.Run("picks latest dated open debt, skipping settled ones", func(t *testing.T) {
		debt, err := repo.FindLatestOpen(ctx, "asha")
		require.NoError(t, err)
		assert.Equal(t, "sugar", debt.Product)
		assert.Equal(t, date("2024-02-10"), debt.TransactionDate)
	})

	t.Run("same result on repeated calls", func(t *testing.T) {
		first, err := repo.FindLatestOpen(ctx, "asha")
		require.NoError(t, err)
		second, err := repo.FindLatestOpen(ctx, "asha")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("tie on transaction_date resolves to highest id", func(t *testing.T) {
		a, err := repo.Create(ctx, &model.Debt{
			CustomerName: "neema", Product: "soap", Total: 80, UnpaidAmount: 80,
			TransactionDate: date("2024-04-01"),
		})
		require.NoError(t, err)
		b, err := repo.Create(ctx, &model.Debt{
			CustomerName: "neema", Product: "oil", Total: 90, UnpaidAmount: 90,
			TransactionDate: date("2024-04-01"),
		})
		require.NoError(t, err)
		require.Greater(t, b.ID, a.ID)

		debt, err := repo.FindLatestOpen(ctx, "neema")
		require.NoError(t, err)
		assert.Equal(t, b.ID, debt.ID)
	})

	t.Run("no open debt", func(t *testing.T) {
		_, err := repo.FindLatestOpen(ctx, "salma")
		assert.ErrorIs(t, err, ErrDebtNotFound)
	})

	t.Run("all debts settled", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.Debt{
			CustomerName: "zuhura", Product: "tea", Total: 60, PaidAmount: 60, UnpaidAmount: 0,
			TransactionDate: date("2024-04-05"),
		})
		require.NoError(t, err)

		_, err = repo.FindLatestOpen(ctx, "zuhura")
		assert.ErrorIs(t, err, ErrDebtNotFound)
	})
}

func TestDebtRepository_ApplyPayment(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewDebtRepository(db)
	ctx := context.Background()

	t.Run("partial payment", func(t *testing.T) {
		debt, err := repo.Create(ctx, &model.Debt{
			CustomerName: "asha", Product: "flour", Total: 500, UnpaidAmount: 500,
			TransactionDate: date("2024-03-01"),
		})
		require.NoError(t, err)

		err = repo.ApplyPayment(ctx, debt.ID, 200)
		assert.NoError(t, err)

		got, err := repo.Get(ctx, debt.ID)
		require.NoError(t, err)
		assert.Equal(t, uint(200), got.PaidAmount)
		assert.Equal(t, uint(300), got.UnpaidAmount)
		assert.Equal(t, uint(500), got.Total)
	})

	t.Run("exact balance payment settles the debt", func(t *testing.T) {
		debt, err := repo.Create(ctx, &model.Debt{
			CustomerName: "juma", Product: "rice", Total: 250, UnpaidAmount: 250,
			TransactionDate: date("2024-03-02"),
		})
		require.NoError(t, err)

		err = repo.ApplyPayment(ctx, debt.ID, 250)
		assert.NoError(t, err)

		got, err := repo.Get(ctx, debt.ID)
		require.NoError(t, err)
		assert.Equal(t, uint(0), got.UnpaidAmount)
		assert.False(t, got.Open())

		_, err = repo.FindLatestOpen(ctx, "juma")
		assert.ErrorIs(t, err, ErrDebtNotFound)
	})

	t.Run("overpayment affects no rows", func(t *testing.T) {
		debt, err := repo.Create(ctx, &model.Debt{
			CustomerName: "neema", Product: "soap", Total: 100, UnpaidAmount: 100,
			TransactionDate: date("2024-03-03"),
		})
		require.NoError(t, err)

		err = repo.ApplyPayment(ctx, debt.ID, 150)
		assert.ErrorIs(t, err, ErrConcurrentUpdate)

		got, err := repo.Get(ctx, debt.ID)
		require.NoError(t, err)
		assert.Equal(t, uint(0), got.PaidAmount)
		assert.Equal(t, uint(100), got.UnpaidAmount)
	})

	t.Run("second payment exceeding remainder fails", func(t *testing.T) {
		debt, err := repo.Create(ctx, &model.Debt{
			CustomerName: "salma", Product: "oil", Total: 50, UnpaidAmount: 50,
			TransactionDate: date("2024-03-04"),
		})
		require.NoError(t, err)

		err = repo.ApplyPayment(ctx, debt.ID, 30)
		require.NoError(t, err)

		err = repo.ApplyPayment(ctx, debt.ID, 30)
		assert.ErrorIs(t, err, ErrConcurrentUpdate)

		got, err := repo.Get(ctx, debt.ID)
		require.NoError(t, err)
		assert.Equal(t, uint(30), got.PaidAmount)
		assert.Equal(t, uint(20), got.UnpaidAmount)
	})

	t.Run("unknown debt id", func(t *testing.T) {
		err := repo.ApplyPayment(ctx, 99999, 10)
		assert.ErrorIs(t, err, ErrConcurrentUpdate)
	})
}

func TestDebtRepository_ListOpen(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewDebtRepository(db)
	ctx := context.Background()

	seed := []*model.Debt{
		{CustomerName: "asha", Product: "flour", Total: 100, UnpaidAmount: 100, TransactionDate: date("2024-01-10")},
		{CustomerName: "juma", Product: "rice", Total: 200, PaidAmount: 200, UnpaidAmount: 0, TransactionDate: date("2024-02-10")},
		{CustomerName: "neema", Product: "soap", Total: 300, PaidAmount: 100, UnpaidAmount: 200, TransactionDate: date("2024-03-10")},
	}
	for _, d := range seed {
		_, err := repo.Create(ctx, d)
		require.NoError(t, err)
	}

	open, err := repo.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)

	// newest first
	assert.Equal(t, "neema", open[0].CustomerName)
	assert.Equal(t, "asha", open[1].CustomerName)
}

func TestDebtRepository_Aggregate(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewDebtRepository(db)
	ctx := context.Background()

	t.Run("empty ledger", func(t *testing.T) {
		totals, err := repo.Aggregate(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), totals.TotalUnpaid)
		assert.Equal(t, int64(0), totals.CountPaid)
		assert.Equal(t, int64(0), totals.CountOwing)
	})

	t.Run("mixed ledger", func(t *testing.T) {
		seed := []*model.Debt{
			{CustomerName: "asha", Product: "flour", Total: 500, PaidAmount: 100, UnpaidAmount: 400, TransactionDate: date("2024-01-10")},
			{CustomerName: "juma", Product: "rice", Total: 300, PaidAmount: 300, UnpaidAmount: 0, TransactionDate: date("2024-02-10")},
			{CustomerName: "neema", Product: "soap", Total: 200, UnpaidAmount: 200, TransactionDate: date("2024-03-10")},
		}
		for _, d := range seed {
			_, err := repo.Create(ctx, d)
			require.NoError(t, err)
		}

		totals, err := repo.Aggregate(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(600), totals.TotalUnpaid)
		assert.Equal(t, int64(2), totals.CountPaid)
		assert.Equal(t, int64(2), totals.CountOwing)
	})
}

func TestDebtRepository_ListCustomers(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewDebtRepository(db)
	ctx := context.Background()

	seed := []*model.Debt{
		{CustomerName: "juma", Product: "rice", Total: 100, UnpaidAmount: 100, TransactionDate: date("2024-01-10")},
		{CustomerName: "asha", Product: "flour", Total: 100, UnpaidAmount: 100, TransactionDate: date("2024-01-11")},
		{CustomerName: "asha", Product: "sugar", Total: 100, UnpaidAmount: 100, TransactionDate: date("2024-01-12")},
	}
	for _, d := range seed {
		_, err := repo.Create(ctx, d)
		require.NoError(t, err)
	}

	names, err := repo.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"asha", "juma"}, names)
}

func TestDebtRepository_ConcurrentPayments(t *testing.T) {
	t.Skip("Skipping concurrent test - SQLite doesn't handle concurrent writes reliably in tests. Use PostgreSQL for concurrent testing.")

	db := setupTestDB(t).DB
	repo := NewDebtRepository(db)
	ctx := context.Background()

	debt, err := repo.Create(ctx, &model.Debt{
		CustomerName: "asha", Product: "flour", Total: 1000, UnpaidAmount: 1000,
		TransactionDate: date("2024-03-01"),
	})
	require.NoError(t, err)

	concurrency := 10
	amountPerPayment := uint(50)
	var wg sync.WaitGroup
	successCount := int32(0)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.ApplyPayment(ctx, debt.ID, amountPerPayment); err == nil {
				successCount++
			}
		}()
	}

	wg.Wait()

	got, err := repo.Get(ctx, debt.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(successCount)*amountPerPayment, got.PaidAmount)
	assert.Equal(t, got.Total, got.PaidAmount+got.UnpaidAmount)
}

func TestDebtRepository_ContextCancellation(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewDebtRepository(db)
	ctx := context.Background()

	debt, err := repo.Create(ctx, &model.Debt{
		CustomerName: "asha", Product: "flour", Total: 100, UnpaidAmount: 100,
		TransactionDate: date("2024-03-01"),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(ctx)
	cancel()

	err = repo.ApplyPayment(ctx, debt.ID, 10)
	assert.Error(t, err)
}
