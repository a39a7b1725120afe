package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentRefund is a sub-record appended to a payment ledger entry. The
// parent record is otherwise never mutated after insert.
type PaymentRefund struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PaymentRecordID  uuid.UUID       `gorm:"column:payment_record_id;type:uuid;not null;index"`
	ExternalRefundID *string         `gorm:"column:external_refund_id"`
	Amount           decimal.Decimal `gorm:"column:amount;type:numeric;not null"`
	Reason           string          `gorm:"column:reason"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (r *PaymentRefund) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
