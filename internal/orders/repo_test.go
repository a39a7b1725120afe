package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/pkg/db/models"
	"github.com/threadline-store/threadline-backend/pkg/enums"
	"github.com/threadline-store/threadline-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&models.Order{},
		&models.OrderLineItem{},
		&models.OrderStatusEvent{},
		&models.OrderCounter{},
		&models.OutboxEvent{},
		&models.Product{},
	))
	return gdb
}

func seedOrder(t *testing.T, gdb *gorm.DB, userID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber:    fmt.Sprintf("ORD-%s", uuid.NewString()[:8]),
		UserID:         userID,
		Status:         status,
		PaymentStatus:  enums.PaymentStatusPending,
		PaymentMethod:  enums.PaymentMethodOnline,
		SubtotalAmount: decimal.NewFromInt(500),
		ShippingCharge: decimal.NewFromInt(70),
		TotalAmount:    decimal.NewFromInt(570),
	}
	require.NoError(t, gdb.Create(order).Error)
	return order
}

func TestNextOrderNumberIsMonotonic(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	first, err := repo.NextOrderNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, "ORD-000001", first)

	second, err := repo.NextOrderNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, "ORD-000002", second)
}

func TestCreateAndFindOrderWithItems(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	productID := uuid.New()
	order := &models.Order{
		OrderNumber:    "ORD-000010",
		UserID:         uuid.New(),
		Status:         enums.OrderStatusCreated,
		PaymentStatus:  enums.PaymentStatusPending,
		PaymentMethod:  enums.PaymentMethodOnline,
		SubtotalAmount: decimal.NewFromInt(1200),
		ShippingCharge: decimal.Zero,
		TotalAmount:    decimal.NewFromInt(1200),
		Items: []models.OrderLineItem{
			{
				ProductID: &productID,
				Name:      "oversized hoodie",
				UnitPrice: decimal.NewFromInt(600),
				Qty:       2,
				Subtotal:  decimal.NewFromInt(1200),
			},
		},
	}
	created, err := repo.Create(ctx, order)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	require.Equal(t, "oversized hoodie", found.Items[0].Name)
}

func TestFindPaidByExternalPaymentID(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	paymentID := "pay_settled"
	order := seedOrder(t, gdb, uuid.New(), enums.OrderStatusPaid)
	require.NoError(t, gdb.Model(order).Updates(map[string]any{
		"external_payment_id": paymentID,
		"payment_status":      enums.PaymentStatusPaid,
	}).Error)

	found, err := repo.FindPaidByExternalPaymentID(ctx, paymentID)
	require.NoError(t, err)
	require.Equal(t, order.ID, found.ID)

	// A pending order with the same shape must not satisfy the guard.
	_, err = repo.FindPaidByExternalPaymentID(ctx, "pay_missing")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMarkStockReducedIsAtMostOnce(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	order := seedOrder(t, gdb, uuid.New(), enums.OrderStatusCreated)

	applied, err := repo.MarkStockReduced(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = repo.MarkStockReduced(ctx, order.ID)
	require.NoError(t, err)
	require.False(t, applied, "second flip must be refused")

	var got models.Order
	require.NoError(t, gdb.First(&got, "id = ?", order.ID).Error)
	require.True(t, got.StockReduced)
	require.NotNil(t, got.StockReducedAt)
}

func TestListPaginatesAndFilters(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		order := seedOrder(t, gdb, userID, enums.OrderStatusPlaced)
		// Spread creation times so cursor ordering is deterministic.
		require.NoError(t, gdb.Model(order).
			Update("created_at", time.Now().Add(time.Duration(-i)*time.Minute)).Error)
	}
	seedOrder(t, gdb, uuid.New(), enums.OrderStatusPlaced)

	page, err := repo.List(ctx, userID, pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.List(ctx, userID, pagination.Params{Limit: 2, Cursor: page.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	require.Empty(t, rest.NextCursor)

	status := enums.OrderStatusCancelled
	filtered, err := repo.List(ctx, userID, pagination.Params{}, ListFilters{Status: &status})
	require.NoError(t, err)
	require.Empty(t, filtered.Orders)
}

func TestAppendStatusEventBuildsHistory(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	order := seedOrder(t, gdb, uuid.New(), enums.OrderStatusCreated)

	for _, status := range []enums.OrderStatus{enums.OrderStatusPaid, enums.OrderStatusPlaced} {
		require.NoError(t, repo.AppendStatusEvent(ctx, &models.OrderStatusEvent{
			OrderID: order.ID,
			Status:  status,
		}))
	}

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.StatusHistory, 2)
}
