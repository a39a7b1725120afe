package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/threadline-store/threadline-backend/api/responses"
	"github.com/threadline-store/threadline-backend/api/validators"
	"github.com/threadline-store/threadline-backend/internal/cart"
	"github.com/threadline-store/threadline-backend/pkg/db/models"
	pkgerrors "github.com/threadline-store/threadline-backend/pkg/errors"
	"github.com/threadline-store/threadline-backend/pkg/logger"
)

type cartItemRequest struct {
	ProductID *uuid.UUID       `json:"productId,omitempty"`
	Name      string           `json:"name" validate:"max=200"`
	Size      string           `json:"size" validate:"max=50"`
	Color     string           `json:"color" validate:"max=50"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Qty       int              `json:"qty" validate:"required,min=1,max=99"`
}

type cartItemResponse struct {
	ID        uuid.UUID  `json:"id"`
	ProductID *uuid.UUID `json:"productId,omitempty"`
	Name      string     `json:"name,omitempty"`
	Size      string     `json:"size,omitempty"`
	Color     string     `json:"color,omitempty"`
	Price     string     `json:"price"`
	Qty       int        `json:"qty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// CartList returns the caller's staged cart items.
func CartList(repo cart.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart repository unavailable"))
			return
		}

		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := repo.ListByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := make([]cartItemResponse, 0, len(items))
		for _, item := range items {
			resp = append(resp, cartItemResponse{
				ID:        item.ID,
				ProductID: item.ProductID,
				Name:      item.Name,
				Size:      item.Size,
				Color:     item.Color,
				Price:     item.UnitPrice.String(),
				Qty:       item.Qty,
				CreatedAt: item.CreatedAt,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}

// CartAdd stages one item in the caller's cart.
func CartAdd(repo cart.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart repository unavailable"))
			return
		}

		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req cartItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// ad hoc items carry their own name and price; catalog items
		// resolve both at settlement time
		price := decimal.Zero
		if req.ProductID == nil {
			if strings.TrimSpace(req.Name) == "" || req.Price == nil || !req.Price.IsPositive() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "ad hoc items require a name and a positive price"))
				return
			}
			price = *req.Price
		}

		item, err := repo.Add(r.Context(), &models.CartItem{
			UserID:    userID,
			ProductID: req.ProductID,
			Name:      validators.SanitizeString(req.Name, 200),
			Size:      validators.SanitizeString(req.Size, 50),
			Color:     validators.SanitizeString(req.Color, 50),
			UnitPrice: price,
			Qty:       req.Qty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, cartItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			Color:     item.Color,
			Price:     item.UnitPrice.String(),
			Qty:       item.Qty,
			CreatedAt: item.CreatedAt,
		})
	}
}

// CartRemove deletes one of the caller's cart items.
func CartRemove(repo cart.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart repository unavailable"))
			return
		}

		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "itemId"))
		itemID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
			return
		}

		if err := repo.Remove(r.Context(), userID, itemID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
