package controllers

import (
	"net/http"

	"github.com/threadline-store/threadline-backend/api/responses"
	"github.com/threadline-store/threadline-backend/api/validators"
	internalorders "github.com/threadline-store/threadline-backend/internal/orders"
	"github.com/threadline-store/threadline-backend/internal/settings"
	"github.com/threadline-store/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-store/threadline-backend/pkg/errors"
	"github.com/threadline-store/threadline-backend/pkg/logger"
)

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}

// AdminUpdateOrderStatus advances an order through the fulfillment states.
// Every change goes through the transition table and lands in the history.
func AdminUpdateOrderStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), internalorders.UpdateStatusInput{
			OrderID:     orderID,
			Status:      status,
			Note:        validators.SanitizeString(req.Note, 500),
			ActorUserID: actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type setPaymentDestinationRequest struct {
	Destination string `json:"destination" validate:"required,max=200"`
}

// AdminSetPaymentDestination writes a new version of the payment destination
// setting. Old versions are kept for audit.
func AdminSetPaymentDestination(repo settings.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings repository unavailable"))
			return
		}

		var req setPaymentDestinationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setting, err := repo.Set(r.Context(), settings.KeyPaymentDestination, validators.SanitizeString(req.Destination, 200))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"destination": setting.Value,
			"version":     setting.Version,
		})
	}
}

// AdminPaymentDestinationHistory lists every version of the payment
// destination setting, newest first.
func AdminPaymentDestinationHistory(repo settings.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings repository unavailable"))
			return
		}

		rows, err := repo.History(r.Context(), settings.KeyPaymentDestination)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			resp = append(resp, map[string]any{
				"destination": row.Value,
				"version":     row.Version,
				"createdAt":   row.CreatedAt,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}
