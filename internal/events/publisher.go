package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dukabook/duka-ledger/internal/model"
	"github.com/dukabook/duka-ledger/pkg/redis"
	"github.com/google/uuid"
)

const EventPaymentApplied = "payment.applied"

// PaymentAppliedEvent is the payload written to the payment stream after a
// payment commits. Downstream consumers (reporting, notifications) read the
// stream; the ledger itself never depends on it.
type PaymentAppliedEvent struct {
	EventID      string    `json:"event_id"`
	Type         string    `json:"type"`
	PaymentID    int64     `json:"payment_id"`
	DebtID       int64     `json:"debt_id"`
	CustomerName string    `json:"customer_name"`
	Amount       uint      `json:"amount"`
	NewPaid      uint      `json:"new_paid"`
	NewUnpaid    uint      `json:"new_unpaid"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type Publisher struct {
	redis  redis.RedisAdapter
	stream string
	maxLen int64
}

func NewPublisher(adapter redis.RedisAdapter, stream string, maxLen int64) *Publisher {
	return &Publisher{
		redis:  adapter,
		stream: stream,
		maxLen: maxLen,
	}
}

func (p *Publisher) PaymentApplied(ctx context.Context, payment *model.Payment, receipt *model.PaymentReceipt) error {
	event := PaymentAppliedEvent{
		EventID:      uuid.New().String(),
		Type:         EventPaymentApplied,
		PaymentID:    payment.ID,
		DebtID:       payment.DebtID,
		CustomerName: payment.CustomerName,
		Amount:       payment.AmountPaid,
		OccurredAt:   time.Now().UTC(),
	}
	if receipt != nil {
		event.NewPaid = receipt.NewPaid
		event.NewUnpaid = receipt.NewUnpaid
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if _, err := p.redis.XAdd(p.stream, map[string]interface{}{
		"event": string(payload),
	}); err != nil {
		return err
	}

	if p.maxLen > 0 {
		if err := p.redis.XTrimApprox(p.stream, p.maxLen); err != nil {
			return err
		}
	}
	return nil
}
