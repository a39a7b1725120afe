package outbox

import (
	"github.com/google/uuid"

	"github.com/threadline-store/threadline-backend/pkg/enums"
	"github.com/threadline-store/threadline-backend/pkg/types"
)

// OrderSettledPayload is emitted when settlement commits an order. It carries
// everything the post-commit worker needs so handlers never re-open the
// settlement transaction.
type OrderSettledPayload struct {
	OrderID       uuid.UUID           `json:"orderId"`
	OrderNumber   string              `json:"orderNumber"`
	UserID        uuid.UUID           `json:"userId"`
	TotalAmount   string              `json:"totalAmount"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	Trigger       string              `json:"trigger"`
	Address       *types.Address      `json:"address,omitempty"`
	ClearCart     bool                `json:"clearCart"`
}

// OrderCancelledPayload is emitted when a cancellation commits.
type OrderCancelledPayload struct {
	OrderID       uuid.UUID `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	UserID        uuid.UUID `json:"userId"`
	Reason        string    `json:"reason,omitempty"`
	StockRestored bool      `json:"stockRestored"`
}

// PaymentFailedPayload is emitted when a failed payment attempt is recorded.
type PaymentFailedPayload struct {
	PaymentRecordID   uuid.UUID `json:"paymentRecordId"`
	UserID            uuid.UUID `json:"userId"`
	ExternalPaymentID string    `json:"externalPaymentId,omitempty"`
	Reason            string    `json:"reason,omitempty"`
}
