package orders

import (
	"fmt"

	"github.com/threadline-store/threadline-backend/pkg/db/models"
	"github.com/threadline-store/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-store/threadline-backend/pkg/errors"
)

// transitions holds the legal forward edges of the order lifecycle.
// CANCELLED is handled separately because it is reachable from every
// non-terminal state except SHIPPED and DELIVERED.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusCreated:   {enums.OrderStatusPending, enums.OrderStatusPaid, enums.OrderStatusPlaced},
	enums.OrderStatusPending:   {enums.OrderStatusPaid, enums.OrderStatusPlaced},
	enums.OrderStatusPaid:      {enums.OrderStatusPlaced, enums.OrderStatusShipped},
	enums.OrderStatusPlaced:    {enums.OrderStatusShipped},
	enums.OrderStatusShipped:   {enums.OrderStatusDelivered},
	enums.OrderStatusDelivered: {},
	enums.OrderStatusCancelled: {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to enums.OrderStatus) bool {
	if from == to {
		return false
	}
	if to == enums.OrderStatusCancelled {
		return !from.IsTerminal() && from != enums.OrderStatusShipped
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition enforces the state machine plus the payment guard:
// PAID and PLACED require payment status Paid, except COD orders which are
// placed while payment stays pending until delivery.
func ValidateTransition(order *models.Order, to enums.OrderStatus) error {
	if !to.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", to))
	}
	if !CanTransition(order.Status, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("illegal transition %s -> %s", order.Status, to))
	}
	requiresPaid := to == enums.OrderStatusPaid || to == enums.OrderStatusPlaced
	if requiresPaid && order.PaymentStatus != enums.PaymentStatusPaid {
		if !(order.PaymentMethod == enums.PaymentMethodCOD && to == enums.OrderStatusPlaced) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("status %s requires payment status paid", to))
		}
	}
	return nil
}
