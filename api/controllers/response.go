package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/threadline-store/threadline-backend/internal/orders"
	"github.com/threadline-store/threadline-backend/pkg/db/models"
	"github.com/threadline-store/threadline-backend/pkg/types"
)

type orderLineItemResponse struct {
	ProductID *uuid.UUID `json:"productId,omitempty"`
	Name      string     `json:"name"`
	ImageURL  string     `json:"imageUrl,omitempty"`
	Size      string     `json:"size,omitempty"`
	Color     string     `json:"color,omitempty"`
	UnitPrice string     `json:"unitPrice"`
	Qty       int        `json:"qty"`
	Subtotal  string     `json:"subtotal"`
}

type orderEventResponse struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type orderResponse struct {
	ID                uuid.UUID             `json:"id"`
	OrderNumber       string                `json:"orderNumber"`
	Status            string                `json:"status"`
	PaymentStatus     string                `json:"paymentStatus"`
	PaymentMethod     string                `json:"paymentMethod"`
	ExternalOrderID   *string               `json:"externalOrderId,omitempty"`
	ExternalPaymentID *string               `json:"externalPaymentId,omitempty"`
	Subtotal          string                `json:"subtotal"`
	ShippingCharge    string                `json:"shippingCharge"`
	Total             string                `json:"total"`
	ShippingAddress   *types.Address        `json:"shippingAddress,omitempty"`
	InvoiceRef        *string               `json:"invoiceRef,omitempty"`
	CancelReason      *string               `json:"cancelReason,omitempty"`
	Items             []orderLineItemResponse `json:"items"`
	History           []orderEventResponse  `json:"history,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
}

type orderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderLineItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderLineItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			Size:      item.Size,
			Color:     item.Color,
			UnitPrice: item.UnitPrice.String(),
			Qty:       item.Qty,
			Subtotal:  item.Subtotal.String(),
		})
	}

	history := make([]orderEventResponse, 0, len(order.StatusHistory))
	for _, event := range order.StatusHistory {
		history = append(history, orderEventResponse{
			Status:    string(event.Status),
			Note:      event.Note,
			Actor:     event.Actor,
			CreatedAt: event.CreatedAt,
		})
	}

	return orderResponse{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            string(order.Status),
		PaymentStatus:     string(order.PaymentStatus),
		PaymentMethod:     string(order.PaymentMethod),
		ExternalOrderID:   order.ExternalOrderID,
		ExternalPaymentID: order.ExternalPaymentID,
		Subtotal:          order.SubtotalAmount.String(),
		ShippingCharge:    order.ShippingCharge.String(),
		Total:             order.TotalAmount.String(),
		ShippingAddress:   order.ShippingAddress,
		InvoiceRef:        order.InvoiceRef,
		CancelReason:      order.CancelReason,
		Items:             items,
		History:           history,
		CreatedAt:         order.CreatedAt,
	}
}

func newOrderListResponse(list *orders.OrderList) orderListResponse {
	resp := orderListResponse{
		Orders:     make([]orderResponse, 0, len(list.Orders)),
		NextCursor: list.NextCursor,
	}
	for i := range list.Orders {
		resp.Orders = append(resp.Orders, newOrderResponse(&list.Orders[i]))
	}
	return resp
}
