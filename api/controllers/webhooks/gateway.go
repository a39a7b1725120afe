package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadline-store/threadline-backend/api/responses"
	"github.com/threadline-store/threadline-backend/internal/settlement"
	"github.com/threadline-store/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-store/threadline-backend/pkg/errors"
	"github.com/threadline-store/threadline-backend/pkg/logger"
	"github.com/threadline-store/threadline-backend/pkg/types"
)

const (
	signatureHeader = "X-Gateway-Signature"
	eventIDHeader   = "X-Gateway-Event-Id"

	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
)

// GatewayEvent is the envelope the payment gateway posts to the webhook.
type GatewayEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity GatewayPayment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// GatewayPayment is the payment entity inside a gateway event. Amount is in
// minor currency units. Notes echo back the metadata attached when the
// gateway order was created.
type GatewayPayment struct {
	ID               string            `json:"id"`
	OrderID          string            `json:"order_id"`
	Amount           int64             `json:"amount"`
	Method           string            `json:"method"`
	ErrorDescription string            `json:"error_description"`
	Notes            map[string]string `json:"notes"`
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type webhookVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) error
}

// GatewayWebhook ingests payment events from the gateway. The raw body is
// authenticated before anything is decoded, duplicates are short-circuited
// through the redis guard, and the database unique index stays authoritative.
func GatewayWebhook(settle *settlement.Service, verifier webhookVerifier, guard webhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if settle == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook verifier unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(signatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "gateway signature missing"))
			return
		}

		if err := verifier.VerifyWebhookSignature(body, signature); err != nil {
			recordRejectedWebhook(ctx, settle, body, err)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var event GatewayEvent
		if err := json.Unmarshal(body, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}
		payment := event.Payload.Payment.Entity

		eventID := strings.TrimSpace(r.Header.Get(eventIDHeader))
		if eventID == "" {
			eventID = payment.ID
		}

		if guard != nil {
			first, err := guard.CheckAndMark(ctx, eventID)
			if err != nil && logg != nil {
				// Degrade open; the unique index still dedupes.
				logg.Warn(ctx, fmt.Sprintf("webhook dedupe check failed: %v", err))
			}
			if err == nil && !first {
				responses.WriteSuccess(w, nil)
				return
			}
		}

		switch event.Event {
		case eventPaymentCaptured:
			if err := settleCaptured(ctx, settle, payment); err != nil {
				if guard != nil {
					_ = guard.Delete(ctx, eventID)
				}
				responses.WriteError(ctx, logg, w, err)
				return
			}
		case eventPaymentFailed:
			if err := recordFailedPayment(ctx, settle, payment); err != nil {
				if guard != nil {
					_ = guard.Delete(ctx, eventID)
				}
				responses.WriteError(ctx, logg, w, err)
				return
			}
		default:
			if logg != nil {
				logg.Info(ctx, fmt.Sprintf("ignoring gateway event %s", event.Event))
			}
		}

		responses.WriteSuccess(w, nil)
	}
}

func settleCaptured(ctx context.Context, settle *settlement.Service, payment GatewayPayment) error {
	userID, err := resolveNoteUUID(payment.Notes, "user_id")
	if err != nil {
		return err
	}
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment notes missing user id")
	}

	req := settlement.Request{
		Trigger:           enums.TriggerWebhook,
		UserID:            userID,
		ExternalOrderID:   payment.OrderID,
		ExternalPaymentID: payment.ID,
		Amount:            minorUnitsToAmount(payment.Amount),
		Notes:             payment.Notes,
	}
	if orderID, err := resolveNoteUUID(payment.Notes, "order_id"); err == nil && orderID != uuid.Nil {
		req.OrderID = &orderID
	}
	if addr := resolveNoteAddress(payment.Notes); addr != nil {
		req.Address = addr
	}

	_, err = settle.Settle(ctx, req)
	return err
}

// resolveNoteAddress decodes the shipping address the checkout client embeds
// in the gateway notes. The note is optional and free-form, so a malformed
// value is dropped rather than failing the settlement.
func resolveNoteAddress(notes map[string]string) *types.Address {
	raw := strings.TrimSpace(notes["address"])
	if raw == "" {
		return nil
	}
	var addr types.Address
	if err := json.Unmarshal([]byte(raw), &addr); err != nil || addr.IsZero() {
		return nil
	}
	return &addr
}

func recordFailedPayment(ctx context.Context, settle *settlement.Service, payment GatewayPayment) error {
	userID, _ := resolveNoteUUID(payment.Notes, "user_id")
	reason := payment.ErrorDescription
	if reason == "" {
		reason = "payment failed at gateway"
	}
	return settle.RecordFailure(ctx, settlement.FailureInput{
		UserID:            userID,
		ExternalOrderID:   payment.OrderID,
		ExternalPaymentID: payment.ID,
		Method:            enums.PaymentMethodOnline,
		Amount:            minorUnitsToAmount(payment.Amount),
		Reason:            reason,
	})
}

// recordRejectedWebhook keeps rejected deliveries visible in the ledger. The
// body failed authentication, so decoding is best-effort only.
func recordRejectedWebhook(ctx context.Context, settle *settlement.Service, body []byte, cause error) {
	var event GatewayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return
	}
	payment := event.Payload.Payment.Entity
	userID, _ := resolveNoteUUID(payment.Notes, "user_id")
	_ = settle.RecordFailure(ctx, settlement.FailureInput{
		UserID:            userID,
		ExternalOrderID:   payment.OrderID,
		ExternalPaymentID: payment.ID,
		Method:            enums.PaymentMethodOnline,
		Amount:            minorUnitsToAmount(payment.Amount),
		Reason:            fmt.Sprintf("webhook signature rejected: %v", cause),
	})
}

func resolveNoteUUID(notes map[string]string, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(notes[key])
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid %s note", key))
	}
	return id, nil
}

func minorUnitsToAmount(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
