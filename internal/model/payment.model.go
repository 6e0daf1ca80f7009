package model

import (
	"errors"
	"time"
)

// Payment is an append-only audit record of money applied against a debt.
// Payments are never mutated or deleted; CustomerName is denormalized from
// the debt for query convenience.
type Payment struct {
	ID           int64     `json:"id"            db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	DebtID       int64     `json:"debt_id"       db:"debt_id"       gorm:"column:debt_id;not null;index"`
	Debt         *Debt     `json:"-"                                gorm:"foreignKey:DebtID;references:ID"`
	CustomerName string    `json:"customer_name" db:"customer_name" gorm:"column:customer_name;not null;index"`
	AmountPaid   uint      `json:"amount_paid"   db:"amount_paid"   gorm:"column:amount_paid;not null"`
	PaymentDate  time.Time `json:"payment_date"  db:"payment_date"  gorm:"column:payment_date;not null"`
	CreatedAt    time.Time `json:"created_at"    db:"created_at"    gorm:"column:created_at;autoCreateTime"`
}

func (Payment) TableName() string { return "payments" }

// PaymentRequest is the input for applying a payment. The target debt is
// not caller-supplied: the engine always selects the customer's latest
// dated open debt.
type PaymentRequest struct {
	CustomerName string
	Amount       uint
	PaymentDate  time.Time
}

func (p PaymentRequest) Validate() error {
	if p.CustomerName == "" {
		return errors.New("customer_name is required")
	}
	if p.PaymentDate.IsZero() {
		return errors.New("payment_date is required")
	}
	return nil
}

// PaymentReceipt is what a successful ApplyPayment returns.
type PaymentReceipt struct {
	PaymentID int64 `json:"payment_id"`
	DebtID    int64 `json:"debt_id"`
	NewPaid   uint  `json:"new_paid"`
	NewUnpaid uint  `json:"new_unpaid"`
}

// PaymentFilter controls payment history queries.
type PaymentFilter struct {
	CustomerName *string // equals
	DebtID       *int64  // equals
	From         *time.Time
	To           *time.Time
	Limit        int  // default 50
	Offset       int  // for pagination
	Desc         bool // order by payment_date
}
