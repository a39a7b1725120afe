package settlement

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadline-store/threadline-backend/pkg/enums"
	"github.com/threadline-store/threadline-backend/pkg/types"
)

// Request carries one settlement attempt, regardless of trigger. Fields that
// do not apply to a trigger stay zero.
type Request struct {
	Trigger enums.SettlementTrigger

	// UserID is the acting customer. For webhook triggers it is resolved
	// from the payment notes before the service is called.
	UserID uuid.UUID

	// OrderID targets a pre-existing order (ExistingOrderConfirm, COD).
	OrderID *uuid.UUID

	ExternalOrderID   string
	ExternalPaymentID string
	Signature         string

	// Amount is the gateway-reported amount for webhook triggers. It is
	// recorded on the ledger row but never overrides the stored totals.
	Amount decimal.Decimal

	// Address is the shipping address for cart-built orders.
	Address *types.Address

	// Notes carries gateway metadata echoed back on webhooks.
	Notes map[string]string
}

// FailureInput records an authentication failure as a FAILED ledger row so
// rejected webhook attempts stay visible for audit.
type FailureInput struct {
	UserID            uuid.UUID
	ExternalOrderID   string
	ExternalPaymentID string
	Method            enums.PaymentMethod
	Amount            decimal.Decimal
	Reason            string
}
