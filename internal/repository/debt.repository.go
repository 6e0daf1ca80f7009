package repository

import (
	"context"
	"errors"

	"github.com/dukabook/duka-ledger/internal/model"
	"github.com/dukabook/duka-ledger/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDebtNotFound       = errors.New("debt not found")
	ErrConcurrentUpdate   = errors.New("concurrent update detected")
	ErrInvariantViolation = errors.New("debt balance invariant violated")
)

type DebtRepository struct {
	*pg.DB
}

func NewDebtRepository(db *pg.DB) *DebtRepository {
	return &DebtRepository{
		db,
	}
}

func (r *DebtRepository) Create(ctx context.Context, debt *model.Debt) (*model.Debt, error) {
	if debt.PaidAmount+debt.UnpaidAmount != debt.Total {
		return nil, ErrInvariantViolation
	}

	entity := toDebtEntity(debt)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toDebtModel(entity), nil
}

// FindLatestOpen returns the customer's most recently dated debt that still
// carries an outstanding balance. Ties on transaction_date resolve to the
// highest id, so repeated calls without intervening writes are idempotent.
func (r *DebtRepository) FindLatestOpen(ctx context.Context, customerName string) (*model.Debt, error) {
	var entity DebtEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("customer_name = ? AND unpaid_amount > 0", customerName).
		Order("transaction_date DESC, id DESC").
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDebtNotFound
		}
		return nil, err
	}

	return toDebtModel(&entity), nil
}

// FindLatestOpenForUpdate is the locking variant used inside the payment
// transaction. It takes a row lock on the selected debt so a concurrent
// payment against the same customer blocks until this transaction settles.
func (r *DebtRepository) FindLatestOpenForUpdate(ctx context.Context, customerName string) (*model.Debt, error) {
	var entity DebtEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_name = ? AND unpaid_amount > 0", customerName).
		Order("transaction_date DESC, id DESC").
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDebtNotFound
		}
		return nil, err
	}

	return toDebtModel(&entity), nil
}

// ApplyPayment moves amount from unpaid to paid on a single debt row. The
// update is guarded: the predicate re-checks the outstanding balance, so a
// row changed between read and write affects zero rows and reports
// ErrConcurrentUpdate instead of driving the balance negative. Must run
// inside the payment transaction, paired with the read that chose debtID.
func (r *DebtRepository) ApplyPayment(ctx context.Context, debtID int64, amount uint) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&DebtEntity{}).
		Where("id = ? AND unpaid_amount >= ?", debtID, amount).
		Updates(map[string]interface{}{
			"paid_amount":   gorm.Expr("paid_amount + ?", amount),
			"unpaid_amount": gorm.Expr("unpaid_amount - ?", amount),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}

	// Re-read inside the same transaction. A mismatch here is a bug, never
	// repaired in place: the error rolls the whole transaction back.
	var entity DebtEntity
	if err := r.Write(ctx).WithContext(ctx).Where("id = ?", debtID).First(&entity).Error; err != nil {
		return err
	}
	if entity.PaidAmount+entity.UnpaidAmount != entity.Total {
		return ErrInvariantViolation
	}

	return nil
}

func (r *DebtRepository) Get(ctx context.Context, id int64) (*model.Debt, error) {
	var entity DebtEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDebtNotFound
		}
		return nil, err
	}

	return toDebtModel(&entity), nil
}

// ListOpen returns every debt with an outstanding balance, newest first.
func (r *DebtRepository) ListOpen(ctx context.Context) ([]*model.Debt, error) {
	var entities []*DebtEntity

	err := r.Read(ctx).WithContext(ctx).
		Where("unpaid_amount > 0").
		Order("transaction_date DESC, id DESC").
		Find(&entities).
		Error

	if err != nil {
		return nil, err
	}

	return toDebtModels(entities), nil
}

// Aggregate computes the dashboard totals in one scan: the outstanding sum,
// how many debts have received any payment, and how many still owe.
func (r *DebtRepository) Aggregate(ctx context.Context) (*model.LedgerTotals, error) {
	var row struct {
		TotalUnpaid uint64
		CountPaid   int64
		CountOwing  int64
	}

	err := r.Read(ctx).WithContext(ctx).
		Model(&DebtEntity{}).
		Select("COALESCE(SUM(unpaid_amount), 0) AS total_unpaid, " +
			"COALESCE(SUM(CASE WHEN paid_amount > 0 THEN 1 ELSE 0 END), 0) AS count_paid, " +
			"COALESCE(SUM(CASE WHEN unpaid_amount > 0 THEN 1 ELSE 0 END), 0) AS count_owing").
		Scan(&row).
		Error

	if err != nil {
		return nil, err
	}

	return &model.LedgerTotals{
		TotalUnpaid: row.TotalUnpaid,
		CountPaid:   row.CountPaid,
		CountOwing:  row.CountOwing,
	}, nil
}

// ListCustomers returns the distinct customer names on record.
func (r *DebtRepository) ListCustomers(ctx context.Context) ([]string, error) {
	var names []string

	err := r.Read(ctx).WithContext(ctx).
		Model(&DebtEntity{}).
		Distinct("customer_name").
		Order("customer_name ASC").
		Pluck("customer_name", &names).
		Error

	if err != nil {
		return nil, err
	}

	return names, nil
}
