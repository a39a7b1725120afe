package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/internal/inventory"
	"github.com/threadline-store/threadline-backend/pkg/db"
	"github.com/threadline-store/threadline-backend/pkg/db/models"
	"github.com/threadline-store/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-store/threadline-backend/pkg/errors"
	"github.com/threadline-store/threadline-backend/pkg/outbox"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	client := db.NewFromConn(gdb)
	repo := NewRepository(gdb)
	stock := inventory.NewTxRepository(inventory.NewRepository(gdb))
	publisher := outbox.NewService(outbox.NewRepository(gdb), nil)
	svc, err := NewService(repo, client, stock, publisher, nil, db.AtomicOptions{})
	require.NoError(t, err)
	return svc, gdb
}

func seedSettledOrder(t *testing.T, gdb *gorm.DB, userID uuid.UUID, productStock, qty int) (*models.Order, *models.Product) {
	t.Helper()
	product := &models.Product{
		Name:  "denim jacket",
		Price: decimal.NewFromInt(1500),
		Stock: productStock,
	}
	require.NoError(t, gdb.Create(product).Error)

	order := &models.Order{
		OrderNumber:    "ORD-" + uuid.NewString()[:8],
		UserID:         userID,
		Status:         enums.OrderStatusPlaced,
		PaymentStatus:  enums.PaymentStatusPaid,
		PaymentMethod:  enums.PaymentMethodOnline,
		SubtotalAmount: decimal.NewFromInt(1500),
		ShippingCharge: decimal.Zero,
		TotalAmount:    decimal.NewFromInt(1500),
		StockReduced:   true,
		Items: []models.OrderLineItem{
			{
				ProductID: &product.ID,
				Name:      product.Name,
				UnitPrice: product.Price,
				Qty:       qty,
				Subtotal:  product.Price.Mul(decimal.NewFromInt(int64(qty))),
			},
		},
	}
	require.NoError(t, gdb.Create(order).Error)
	return order, product
}

func TestCancelRestoresStockAndAppendsHistory(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	order, product := seedSettledOrder(t, gdb, userID, 0, 2)

	cancelled, err := svc.Cancel(ctx, CancelInput{
		OrderID:     order.ID,
		Reason:      "changed my mind",
		ActorUserID: userID,
		ActorRole:   enums.RoleCustomer,
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.False(t, cancelled.StockReduced)
	require.NotEmpty(t, cancelled.StatusHistory)
	last := cancelled.StatusHistory[len(cancelled.StatusHistory)-1]
	require.Equal(t, enums.OrderStatusCancelled, last.Status)
	require.Equal(t, "changed my mind", last.Note)

	var got models.Product
	require.NoError(t, gdb.First(&got, "id = ?", product.ID).Error)
	require.Equal(t, 2, got.Stock, "cancel must restore exactly the ordered qty")

	var events []models.OutboxEvent
	require.NoError(t, gdb.Where("aggregate_id = ?", order.ID).Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventOrderCancelled, events[0].EventType)
}

func TestCancelWithoutStockReductionLeavesStockAlone(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	order, product := seedSettledOrder(t, gdb, userID, 7, 2)
	require.NoError(t, gdb.Model(order).Update("stock_reduced", false).Error)

	_, err := svc.Cancel(ctx, CancelInput{
		OrderID:     order.ID,
		ActorUserID: userID,
		ActorRole:   enums.RoleCustomer,
	})
	require.NoError(t, err)

	var got models.Product
	require.NoError(t, gdb.First(&got, "id = ?", product.ID).Error)
	require.Equal(t, 7, got.Stock)
}

func TestCancelRejectsShippedAndRepeatCancel(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	order, _ := seedSettledOrder(t, gdb, userID, 0, 1)
	require.NoError(t, gdb.Model(order).Update("status", enums.OrderStatusShipped).Error)

	_, err := svc.Cancel(ctx, CancelInput{OrderID: order.ID, ActorUserID: userID, ActorRole: enums.RoleCustomer})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	second, product := seedSettledOrder(t, gdb, userID, 0, 1)
	_ = product
	_, err = svc.Cancel(ctx, CancelInput{OrderID: second.ID, ActorUserID: userID, ActorRole: enums.RoleCustomer})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, CancelInput{OrderID: second.ID, ActorUserID: userID, ActorRole: enums.RoleCustomer})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestCancelOwnershipChecks(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	order, _ := seedSettledOrder(t, gdb, owner, 0, 1)

	_, err := svc.Cancel(ctx, CancelInput{
		OrderID:     order.ID,
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleCustomer,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	// Admin actors may cancel on behalf of the owner.
	cancelled, err := svc.Cancel(ctx, CancelInput{
		OrderID:     order.ID,
		Reason:      "fraud review",
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleAdmin,
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
}

func TestCancelUnknownOrder(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Cancel(context.Background(), CancelInput{
		OrderID:     uuid.New(),
		ActorUserID: uuid.New(),
		ActorRole:   enums.RoleCustomer,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestUpdateStatusDeliveredCollectsCODPayment(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	order, _ := seedSettledOrder(t, gdb, userID, 0, 1)
	require.NoError(t, gdb.Model(order).Updates(map[string]any{
		"payment_method": enums.PaymentMethodCOD,
		"payment_status": enums.PaymentStatusPending,
		"status":         enums.OrderStatusShipped,
	}).Error)

	updated, err := svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID:     order.ID,
		Status:      enums.OrderStatusDelivered,
		Note:        "left at door",
		ActorUserID: uuid.New(),
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusDelivered, updated.Status)
	require.Equal(t, enums.PaymentStatusPaid, updated.PaymentStatus)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	order, _ := seedSettledOrder(t, gdb, userID, 0, 1)
	require.NoError(t, gdb.Model(order).Update("status", enums.OrderStatusDelivered).Error)

	_, err := svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID: order.ID,
		Status:  enums.OrderStatusShipped,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestDetailEnforcesOwnership(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	order, _ := seedSettledOrder(t, gdb, owner, 0, 1)

	got, err := svc.Detail(ctx, order.ID, owner, enums.RoleCustomer)
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)

	_, err = svc.Detail(ctx, order.ID, uuid.New(), enums.RoleCustomer)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = svc.Detail(ctx, order.ID, uuid.New(), enums.RoleAdmin)
	require.NoError(t, err)
}
