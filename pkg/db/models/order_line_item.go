package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderLineItem is the immutable snapshot of one ordered item. ProductID is
// nil for ad-hoc items that never existed in the catalog; price, name and
// image are captured at settlement time and never recomputed.
type OrderLineItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	Name      string          `gorm:"column:name;not null"`
	ImageURL  string          `gorm:"column:image_url"`
	Size      string          `gorm:"column:size"`
	Color     string          `gorm:"column:color"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric;not null"`
	Qty       int             `gorm:"column:qty;not null"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal;type:numeric;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderLineItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
