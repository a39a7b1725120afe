package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartItem is one prospective line in a user's cart. The cart is a staging
// area only; clearing it after settlement is best-effort and not part of the
// settlement transaction. Items either reference a catalog product (price
// resolved at settlement) or are ad hoc with their own unit price.
type CartItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	Name      string          `gorm:"column:name"`
	Size      string          `gorm:"column:size"`
	Color     string          `gorm:"column:color"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric;not null;default:0"`
	Qty       int             `gorm:"column:qty;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
