package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/threadline-store/threadline-backend/api/responses"
	"github.com/threadline-store/threadline-backend/api/validators"
	"github.com/threadline-store/threadline-backend/internal/settlement"
	"github.com/threadline-store/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-store/threadline-backend/pkg/errors"
	"github.com/threadline-store/threadline-backend/pkg/logger"
	"github.com/threadline-store/threadline-backend/pkg/types"
)

type codCheckoutRequest struct {
	// OrderID targets an existing unpaid order. When absent the order is
	// built from the caller's cart.
	OrderID *uuid.UUID     `json:"orderId,omitempty"`
	Address *types.Address `json:"address,omitempty"`
}

// CheckoutCOD places a cash-on-delivery order. No gateway proof exists, so
// the order lands in PLACED with payment still pending and a ceiling guards
// the amount the courier has to collect.
func CheckoutCOD(settle *settlement.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req codCheckoutRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		if req.OrderID == nil && (req.Address == nil || req.Address.IsZero()) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required"))
			return
		}

		order, err := settle.Settle(r.Context(), settlement.Request{
			Trigger: enums.TriggerCOD,
			UserID:  userID,
			OrderID: req.OrderID,
			Address: req.Address,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}
