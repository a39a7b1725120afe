package controllers

import (
	"net/http"

	"github.com/threadline-store/threadline-backend/api/responses"
	"github.com/threadline-store/threadline-backend/api/validators"
	"github.com/threadline-store/threadline-backend/internal/settings"
	"github.com/threadline-store/threadline-backend/internal/settlement"
	"github.com/threadline-store/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-store/threadline-backend/pkg/errors"
	"github.com/threadline-store/threadline-backend/pkg/logger"
	"github.com/threadline-store/threadline-backend/pkg/types"
)

type verifyPaymentRequest struct {
	ExternalOrderID   string         `json:"externalOrderId" validate:"required"`
	ExternalPaymentID string         `json:"externalPaymentId" validate:"required"`
	Signature         string         `json:"signature" validate:"required"`
	Address           *types.Address `json:"address,omitempty"`
}

// VerifyPayment settles a gateway payment the client reports as successful.
// The signature proves the gateway issued the payment id for the order id;
// the order itself is built from the caller's cart.
func VerifyPayment(settle *settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if settle == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := settle.Settle(r.Context(), settlement.Request{
			Trigger:           enums.TriggerClientVerify,
			UserID:            userID,
			ExternalOrderID:   req.ExternalOrderID,
			ExternalPaymentID: req.ExternalPaymentID,
			Signature:         req.Signature,
			Address:           req.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type confirmPaymentRequest struct {
	ExternalOrderID   string `json:"externalOrderId" validate:"required"`
	ExternalPaymentID string `json:"externalPaymentId" validate:"required"`
	Signature         string `json:"signature" validate:"required"`
}

// ConfirmOrderPayment settles a gateway payment against an order that already
// exists, the buy-now path that never touched the cart.
func ConfirmOrderPayment(settle *settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if settle == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := settle.Settle(r.Context(), settlement.Request{
			Trigger:           enums.TriggerExistingOrder,
			UserID:            userID,
			OrderID:           &orderID,
			ExternalOrderID:   req.ExternalOrderID,
			ExternalPaymentID: req.ExternalPaymentID,
			Signature:         req.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// PaymentDestination returns the current payment destination identifier that
// clients hand to the gateway at checkout.
func PaymentDestination(repo settings.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings repository unavailable"))
			return
		}

		setting, err := repo.Latest(r.Context(), settings.KeyPaymentDestination)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, notFoundOr(err, "payment destination not configured"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"destination": setting.Value,
			"version":     setting.Version,
		})
	}
}
