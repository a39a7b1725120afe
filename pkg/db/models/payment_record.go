package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/pkg/enums"
)

// PaymentRecord is an immutable-once-written ledger entry for one payment
// attempt, successful or failed. At most one row exists per external payment
// id; duplicate inserts are treated as a success no-op by the repository.
type PaymentRecord struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ExternalPaymentID *string                   `gorm:"column:external_payment_id;uniqueIndex:ux_payment_records_external_payment_id"`
	ExternalOrderID   string                    `gorm:"column:external_order_id"`
	Signature         string                    `gorm:"column:signature"`
	OrderID           *uuid.UUID                `gorm:"column:order_id;type:uuid;index"`
	UserID            uuid.UUID                 `gorm:"column:user_id;type:uuid;index"`
	Amount            decimal.Decimal           `gorm:"column:amount;type:numeric;not null"`
	Method            enums.PaymentMethod       `gorm:"column:method;type:text;not null"`
	Status            enums.PaymentRecordStatus `gorm:"column:status;type:text;not null"`
	Notes             json.RawMessage           `gorm:"column:notes;type:jsonb"`
	Refunds           []PaymentRefund           `gorm:"foreignKey:PaymentRecordID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt         gorm.DeletedAt            `gorm:"column:deleted_at;index"`
}

func (p *PaymentRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
