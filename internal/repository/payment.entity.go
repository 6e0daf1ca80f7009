package repository

import (
	"time"

	"github.com/dukabook/duka-ledger/internal/model"
)

type PaymentEntity struct {
	ID           int64     `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	DebtID       int64     `db:"debt_id"       gorm:"column:debt_id;not null;index"`
	CustomerName string    `db:"customer_name" gorm:"column:customer_name;not null;index"`
	AmountPaid   uint      `db:"amount_paid"   gorm:"column:amount_paid;not null"`
	PaymentDate  time.Time `db:"payment_date"  gorm:"column:payment_date;not null"`
	CreatedAt    time.Time `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
}

func (PaymentEntity) TableName() string {
	return "payments"
}

func toPaymentEntity(m *model.Payment) *PaymentEntity {
	if m == nil {
		return nil
	}
	return &PaymentEntity{
		ID:           m.ID,
		DebtID:       m.DebtID,
		CustomerName: m.CustomerName,
		AmountPaid:   m.AmountPaid,
		PaymentDate:  m.PaymentDate,
		CreatedAt:    m.CreatedAt,
	}
}

func toPaymentModel(e *PaymentEntity) *model.Payment {
	if e == nil {
		return nil
	}
	return &model.Payment{
		ID:           e.ID,
		DebtID:       e.DebtID,
		CustomerName: e.CustomerName,
		AmountPaid:   e.AmountPaid,
		PaymentDate:  e.PaymentDate,
		CreatedAt:    e.CreatedAt,
	}
}

func toPaymentModels(entities []*PaymentEntity) []*model.Payment {
	if entities == nil {
		return nil
	}
	models := make([]*model.Payment, len(entities))
	for i, e := range entities {
		models[i] = toPaymentModel(e)
	}
	return models
}
