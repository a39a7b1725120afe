package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/pkg/enums"
	"github.com/threadline-store/threadline-backend/pkg/types"
)

// Order represents one customer purchase intent and its lifecycle. Orders are
// never physically deleted; cancellation and soft deletion preserve the audit
// trail.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string              `gorm:"column:order_number;uniqueIndex:ux_orders_order_number;not null"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Status            enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'created';index"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod     enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'online'"`
	ExternalOrderID   *string             `gorm:"column:external_order_id"`
	ExternalPaymentID *string             `gorm:"column:external_payment_id;uniqueIndex:ux_orders_external_payment_id"`
	SubtotalAmount    decimal.Decimal     `gorm:"column:subtotal_amount;type:numeric;not null"`
	ShippingCharge    decimal.Decimal     `gorm:"column:shipping_charge;type:numeric;not null"`
	TotalAmount       decimal.Decimal     `gorm:"column:total_amount;type:numeric;not null"`
	ShippingAddress   *types.Address      `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	StockReduced      bool                `gorm:"column:stock_reduced;not null;default:false"`
	StockReducedAt    *time.Time          `gorm:"column:stock_reduced_at"`
	InvoiceRef        *string             `gorm:"column:invoice_ref"`
	CancelReason      *string             `gorm:"column:cancel_reason"`
	Items             []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory     []OrderStatusEvent  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime;index:ix_orders_user_created,priority:2"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt         gorm.DeletedAt      `gorm:"column:deleted_at;index"`
}

// BeforeCreate assigns the primary key so the model works on both Postgres
// and the sqlite test databases.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
