package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/threadline-store/threadline-backend/api/responses"
	"github.com/threadline-store/threadline-backend/internal/address"
	pkgerrors "github.com/threadline-store/threadline-backend/pkg/errors"
	"github.com/threadline-store/threadline-backend/pkg/logger"
	"github.com/threadline-store/threadline-backend/pkg/types"
)

type savedAddressResponse struct {
	ID        uuid.UUID     `json:"id"`
	Address   types.Address `json:"address"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ListAddresses returns the caller's saved shipping addresses.
func ListAddresses(repo address.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address repository unavailable"))
			return
		}

		userID, err := actorUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := repo.ListByUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := make([]savedAddressResponse, 0, len(rows))
		for _, row := range rows {
			resp = append(resp, savedAddressResponse{
				ID:        row.ID,
				Address:   row.Address,
				CreatedAt: row.CreatedAt,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}
