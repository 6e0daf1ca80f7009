package repository

import (
	"time"

	"github.com/dukabook/duka-ledger/internal/model"
)

type DebtEntity struct {
	ID              int64     `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	CustomerName    string    `db:"customer_name"    gorm:"column:customer_name;not null;index"`
	Product         string    `db:"product"          gorm:"column:product;not null"`
	Total           uint      `db:"total"            gorm:"column:total;not null"`
	PaidAmount      uint      `db:"paid_amount"      gorm:"column:paid_amount;not null;default:0"`
	UnpaidAmount    uint      `db:"unpaid_amount"    gorm:"column:unpaid_amount;not null"`
	TransactionDate time.Time `db:"transaction_date" gorm:"column:transaction_date;not null;index"`
	CreatedAt       time.Time `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
}

func (DebtEntity) TableName() string {
	return "debts"
}

func toDebtEntity(m *model.Debt) *DebtEntity {
	if m == nil {
		return nil
	}
	return &DebtEntity{
		ID:              m.ID,
		CustomerName:    m.CustomerName,
		Product:         m.Product,
		Total:           m.Total,
		PaidAmount:      m.PaidAmount,
		UnpaidAmount:    m.UnpaidAmount,
		TransactionDate: m.TransactionDate,
		CreatedAt:       m.CreatedAt,
	}
}

func toDebtModel(e *DebtEntity) *model.Debt {
	if e == nil {
		return nil
	}
	return &model.Debt{
		ID:              e.ID,
		CustomerName:    e.CustomerName,
		Product:         e.Product,
		Total:           e.Total,
		PaidAmount:      e.PaidAmount,
		UnpaidAmount:    e.UnpaidAmount,
		TransactionDate: e.TransactionDate,
		CreatedAt:       e.CreatedAt,
	}
}

func toDebtModels(entities []*DebtEntity) []*model.Debt {
	if entities == nil {
		return nil
	}
	models := make([]*model.Debt, len(entities))
	for i, e := range entities {
		models[i] = toDebtModel(e)
	}
	return models
}
