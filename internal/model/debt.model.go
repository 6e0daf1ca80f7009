package model

import (
	"errors"
	"time"
)

// Debt is a single credit transaction: a customer took product worth Total
// and has paid PaidAmount of it so far. paid + unpaid == total holds after
// every mutation; a fully paid debt stays on record with UnpaidAmount == 0.
type Debt struct {
	ID              int64     `json:"id"               db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	CustomerName    string    `json:"customer_name"    db:"customer_name"    gorm:"column:customer_name;not null;index"`
	Product         string    `json:"product"          db:"product"          gorm:"column:product;not null"`
	Total           uint      `json:"total"            db:"total"            gorm:"column:total;not null"`
	PaidAmount      uint      `json:"paid_amount"      db:"paid_amount"      gorm:"column:paid_amount;not null;default:0"`
	UnpaidAmount    uint      `json:"unpaid_amount"    db:"unpaid_amount"    gorm:"column:unpaid_amount;not null"`
	TransactionDate time.Time `json:"transaction_date" db:"transaction_date" gorm:"column:transaction_date;not null;index"`
	CreatedAt       time.Time `json:"created_at"       db:"created_at"       gorm:"column:created_at;autoCreateTime"`
}

func (Debt) TableName() string { return "debts" }

// Open reports whether the debt still carries an outstanding balance.
func (d *Debt) Open() bool { return d.UnpaidAmount > 0 }

// DebtCreateRequest is the input for recording a new debt.
type DebtCreateRequest struct {
	CustomerName    string
	Product         string
	Total           uint
	Paid            uint
	TransactionDate time.Time
}

func (p DebtCreateRequest) Validate() error {
	if p.CustomerName == "" {
		return errors.New("customer_name is required")
	}
	if p.Product == "" {
		return errors.New("product is required")
	}
	if p.Paid > p.Total {
		return errors.New("paid amount cannot exceed total")
	}
	if p.TransactionDate.IsZero() {
		return errors.New("transaction_date is required")
	}
	return nil
}

// LedgerTotals is the dashboard aggregate over all debts. CountPaid and
// CountOwing are independent: a partially paid debt shows up in both.
type LedgerTotals struct {
	TotalUnpaid uint64 `json:"total_unpaid"`
	CountPaid   int64  `json:"count_paid"`
	CountOwing  int64  `json:"count_owing"`
}
