package orders

import (
	"github.com/threadline-store/threadline-backend/pkg/db/models"
	"github.com/threadline-store/threadline-backend/pkg/enums"
)

// ListFilters describe the inputs supported by the order list.
type ListFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
