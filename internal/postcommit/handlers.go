package postcommit

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/threadline-store/threadline-backend/internal/notifications"
	"github.com/threadline-store/threadline-backend/pkg/db/models"
	"github.com/threadline-store/threadline-backend/pkg/logger"
	"github.com/threadline-store/threadline-backend/pkg/outbox"
	"github.com/threadline-store/threadline-backend/pkg/types"
)

type invoiceWriter interface {
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}

type notifier interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
}

type cartClearer interface {
	Clear(ctx context.Context, userID uuid.UUID) error
}

type addressSaver interface {
	SaveIfAbsent(ctx context.Context, userID uuid.UUID, addr types.Address) (bool, error)
}

// Handlers run the side effects that follow a committed settlement or
// cancellation. Every handler is idempotent enough to tolerate a redelivery;
// a retried settled event rewrites the same invoice ref and re-clears an
// already empty cart.
type Handlers struct {
	orders    invoiceWriter
	notifier  notifier
	cart      cartClearer
	addresses addressSaver
	logg      *logger.Logger
}

func NewHandlers(orders invoiceWriter, notifier notifier, cart cartClearer, addresses addressSaver, logg *logger.Logger) (*Handlers, error) {
	if orders == nil || notifier == nil || cart == nil || addresses == nil {
		return nil, fmt.Errorf("orders, notifier, cart and addresses are required")
	}
	return &Handlers{
		orders:    orders,
		notifier:  notifier,
		cart:      cart,
		addresses: addresses,
		logg:      logg,
	}, nil
}

// InvoiceRefFor derives the invoice reference from the order number.
func InvoiceRefFor(orderNumber string) string {
	return "INV-" + strings.TrimPrefix(orderNumber, "ORD-")
}

// HandleOrderSettled stamps the invoice reference, clears the staged cart,
// saves the shipping address for reuse and notifies the customer. Each step
// runs even when an earlier one fails; the aggregated error drives the retry.
func (h *Handlers) HandleOrderSettled(ctx context.Context, payload outbox.OrderSettledPayload) error {
	var errs error

	invoiceRef := InvoiceRefFor(payload.OrderNumber)
	if err := h.orders.Update(ctx, payload.OrderID, map[string]any{"invoice_ref": invoiceRef}); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("stamping invoice ref: %w", err))
	}

	if payload.ClearCart {
		if err := h.cart.Clear(ctx, payload.UserID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("clearing cart: %w", err))
		}
	}

	if payload.Address != nil {
		if _, err := h.addresses.SaveIfAbsent(ctx, payload.UserID, *payload.Address); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("saving address: %w", err))
		}
	}

	body := fmt.Sprintf("Order %s confirmed, total %s", payload.OrderNumber, payload.TotalAmount)
	if _, err := h.notifier.Create(ctx, &models.Notification{
		UserID: payload.UserID,
		Kind:   notifications.KindOrderSettled,
		Body:   body,
	}); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("creating notification: %w", err))
	}

	return errs
}

// HandleOrderCancelled notifies the customer that the cancellation went
// through.
func (h *Handlers) HandleOrderCancelled(ctx context.Context, payload outbox.OrderCancelledPayload) error {
	body := fmt.Sprintf("Order %s cancelled", payload.OrderNumber)
	if payload.Reason != "" {
		body = fmt.Sprintf("%s: %s", body, payload.Reason)
	}
	_, err := h.notifier.Create(ctx, &models.Notification{
		UserID: payload.UserID,
		Kind:   notifications.KindOrderCancelled,
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// HandlePaymentFailed notifies the customer about a failed payment attempt.
func (h *Handlers) HandlePaymentFailed(ctx context.Context, payload outbox.PaymentFailedPayload) error {
	if payload.UserID == uuid.Nil {
		// Rejected webhooks do not always resolve to a user.
		return nil
	}
	_, err := h.notifier.Create(ctx, &models.Notification{
		UserID: payload.UserID,
		Kind:   notifications.KindPaymentFailed,
		Body:   "A payment attempt could not be verified. No money was captured for it.",
	})
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}
