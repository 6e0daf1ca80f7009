package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukabook/duka-ledger/internal/model"
	"github.com/dukabook/duka-ledger/internal/repository"
	"github.com/dukabook/duka-ledger/pkg/logger"
	"github.com/dukabook/duka-ledger/pkg/prom"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidAmount      = errors.New("payment amount exceeds outstanding balance")
	ErrNoOpenDebt         = errors.New("customer has no open debt")
	ErrConflict           = errors.New("payment could not be applied due to concurrent activity")
	ErrInvariantViolation = errors.New("debt balance invariant violated")
	ErrNotFound           = errors.New("not found")
)

type DebtRepository interface {
	Create(ctx context.Context, debt *model.Debt) (*model.Debt, error)
	Get(ctx context.Context, id int64) (*model.Debt, error)
	FindLatestOpen(ctx context.Context, customerName string) (*model.Debt, error)
	FindLatestOpenForUpdate(ctx context.Context, customerName string) (*model.Debt, error)
	ApplyPayment(ctx context.Context, debtID int64, amount uint) error
	ListOpen(ctx context.Context) ([]*model.Debt, error)
	Aggregate(ctx context.Context) (*model.LedgerTotals, error)
	ListCustomers(ctx context.Context) ([]string, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) (*model.Payment, error)
	List(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error)
}

// TotalsCache caches the dashboard aggregates. A nil cache is valid and
// simply means every Totals call hits the database.
type TotalsCache interface {
	Get(ctx context.Context) (*model.LedgerTotals, error) // (nil, nil) on miss
	Set(ctx context.Context, totals *model.LedgerTotals) error
	Invalidate(ctx context.Context) error
}

// PaymentPublisher emits an event after a payment commits. Publishing is
// best effort: a failed publish never rolls back an applied payment.
type PaymentPublisher interface {
	PaymentApplied(ctx context.Context, payment *model.Payment, receipt *model.PaymentReceipt) error
}

type LedgerService struct {
	debtRepo    DebtRepository
	paymentRepo PaymentRepository
	cache       TotalsCache
	publisher   PaymentPublisher
}

func NewLedgerService(debtRepo DebtRepository, paymentRepo PaymentRepository, cache TotalsCache, publisher PaymentPublisher) *LedgerService {
	return &LedgerService{
		debtRepo:    debtRepo,
		paymentRepo: paymentRepo,
		cache:       cache,
		publisher:   publisher,
	}
}

// RecordDebt validates and stores a new debt. The outstanding balance is
// derived server side from total and paid, never taken from the caller.
func (s *LedgerService) RecordDebt(ctx context.Context, p model.DebtCreateRequest) (*model.Debt, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	p.CustomerName = strings.TrimSpace(p.CustomerName)
	p.Product = strings.TrimSpace(p.Product)
	if p.CustomerName == "" || p.Product == "" {
		return nil, fmt.Errorf("%w: customer_name and product are required", ErrInvalidInput)
	}

	debt := &model.Debt{
		CustomerName:    p.CustomerName,
		Product:         p.Product,
		Total:           p.Total,
		PaidAmount:      p.Paid,
		UnpaidAmount:    p.Total - p.Paid,
		TransactionDate: p.TransactionDate,
	}

	created, err := s.debtRepo.Create(ctx, debt)
	if err != nil {
		if errors.Is(err, repository.ErrInvariantViolation) {
			logger.Error("debt balance invariant violated, rejecting insert", "customer_name", p.CustomerName, "total", p.Total, "paid", p.Paid)
			return nil, ErrInvariantViolation
		}
		return nil, fmt.Errorf("create debt: %w", err)
	}

	prom.IncDebtCreated()
	s.invalidateTotals(ctx)

	return created, nil
}

// ApplyPayment applies a payment to the customer's latest open debt. The
// selection and the balance update run in one transaction; a lost race is
// retried with backoff against the freshly selected latest open debt, and
// only reported as ErrConflict once the retry budget runs out.
func (s *LedgerService) ApplyPayment(ctx context.Context, p model.PaymentRequest) (*model.PaymentReceipt, error) {
	if err := p.Validate(); err != nil {
		prom.IncPaymentRejected("invalid_input")
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	p.CustomerName = strings.TrimSpace(p.CustomerName)
	if p.CustomerName == "" {
		prom.IncPaymentRejected("invalid_input")
		return nil, fmt.Errorf("%w: customer_name is required", ErrInvalidInput)
	}
	if p.Amount == 0 {
		prom.IncPaymentRejected("amount_zero")
		return nil, fmt.Errorf("%w: amount must be at least 1", ErrInvalidAmount)
	}

	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	var receipt *model.PaymentReceipt
	var payment *model.Payment

	for attempt := 0; attempt <= maxRetries; attempt++ {
		receipt, payment = nil, nil
		err := s.debtRepo.WithinTransaction(ctx, func(ctx context.Context) error {
			debt, err := s.debtRepo.FindLatestOpenForUpdate(ctx, p.CustomerName)
			if err != nil {
				if errors.Is(err, repository.ErrDebtNotFound) {
					return ErrNoOpenDebt
				}
				return fmt.Errorf("select open debt: %w", err)
			}

			if p.Amount > debt.UnpaidAmount {
				return ErrInvalidAmount
			}

			if err := s.debtRepo.ApplyPayment(ctx, debt.ID, p.Amount); err != nil {
				if errors.Is(err, repository.ErrInvariantViolation) {
					logger.Error("debt balance invariant violated, rolling back", "debt_id", debt.ID, "customer_name", p.CustomerName, "amount", p.Amount)
					return ErrInvariantViolation
				}
				return err
			}

			created, err := s.paymentRepo.Create(ctx, &model.Payment{
				DebtID:       debt.ID,
				CustomerName: p.CustomerName,
				AmountPaid:   p.Amount,
				PaymentDate:  p.PaymentDate,
			})
			if err != nil {
				return fmt.Errorf("record payment: %w", err)
			}

			payment = created
			receipt = &model.PaymentReceipt{
				PaymentID: created.ID,
				DebtID:    debt.ID,
				NewPaid:   debt.PaidAmount + p.Amount,
				NewUnpaid: debt.UnpaidAmount - p.Amount,
			}
			return nil
		})

		if err == nil {
			prom.ObservePaymentApplied(float64(p.Amount))
			s.invalidateTotals(ctx)
			s.publishApplied(ctx, payment, receipt)
			return receipt, nil
		}

		if errors.Is(err, ErrNoOpenDebt) {
			prom.IncPaymentRejected("no_open_debt")
			return nil, err
		}
		if errors.Is(err, ErrInvalidAmount) {
			prom.IncPaymentRejected("amount_exceeds_balance")
			return nil, err
		}
		if errors.Is(err, ErrInvariantViolation) {
			prom.IncPaymentRejected("invariant_violation")
			return nil, err
		}

		// Only a lost update race is worth another attempt. Everything
		// else, storage failures included, surfaces immediately.
		if !errors.Is(err, repository.ErrConcurrentUpdate) {
			return nil, err
		}

		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}

	prom.IncPaymentConflict()
	return nil, fmt.Errorf("%w: gave up after %d attempts", ErrConflict, maxRetries+1)
}

func (s *LedgerService) GetDebt(ctx context.Context, id int64) (*model.Debt, error) {
	debt, err := s.debtRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDebtNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return debt, nil
}

func (s *LedgerService) OpenDebts(ctx context.Context) ([]*model.Debt, error) {
	return s.debtRepo.ListOpen(ctx)
}

// Totals serves the dashboard aggregates, preferring the cache. Cache
// failures degrade to a direct read and are logged, never surfaced.
func (s *LedgerService) Totals(ctx context.Context) (*model.LedgerTotals, error) {
	if s.cache != nil {
		totals, err := s.cache.Get(ctx)
		if err != nil {
			logger.Warn("totals cache read failed", "error", err)
		} else if totals != nil {
			return totals, nil
		}
	}

	totals, err := s.debtRepo.Aggregate(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, totals); err != nil {
			logger.Warn("totals cache write failed", "error", err)
		}
	}

	return totals, nil
}

func (s *LedgerService) Customers(ctx context.Context) ([]string, error) {
	return s.debtRepo.ListCustomers(ctx)
}

func (s *LedgerService) Payments(ctx context.Context, f model.PaymentFilter) ([]*model.Payment, int64, error) {
	return s.paymentRepo.List(ctx, f)
}

func (s *LedgerService) invalidateTotals(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Warn("totals cache invalidation failed", "error", err)
	}
}

func (s *LedgerService) publishApplied(ctx context.Context, payment *model.Payment, receipt *model.PaymentReceipt) {
	if s.publisher == nil || payment == nil {
		return
	}
	if err := s.publisher.PaymentApplied(ctx, payment, receipt); err != nil {
		logger.Warn("payment event publish failed", "payment_id", payment.ID, "error", err)
	}
}
