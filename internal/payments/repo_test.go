package payments

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/pkg/db/models"
	"github.com/threadline-store/threadline-backend/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.PaymentRecord{}, &models.PaymentRefund{}))
	return gdb
}

func strPtr(s string) *string { return &s }

func TestCreateAndFindPaymentRecord(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	record := &models.PaymentRecord{
		ExternalPaymentID: strPtr("pay_123"),
		ExternalOrderID:   "order_123",
		UserID:            uuid.New(),
		Amount:            decimal.NewFromInt(1200),
		Method:            enums.PaymentMethodOnline,
		Status:            enums.PaymentRecordStatusPaid,
	}
	created, err := repo.Create(ctx, record)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	found, err := repo.FindByExternalPaymentID(ctx, "pay_123")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
}

func TestCreateDuplicateExternalPaymentID(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	first := &models.PaymentRecord{
		ExternalPaymentID: strPtr("pay_dup"),
		UserID:            uuid.New(),
		Amount:            decimal.NewFromInt(500),
		Method:            enums.PaymentMethodOnline,
		Status:            enums.PaymentRecordStatusPaid,
	}
	_, err := repo.Create(ctx, first)
	require.NoError(t, err)

	second := &models.PaymentRecord{
		ExternalPaymentID: strPtr("pay_dup"),
		UserID:            uuid.New(),
		Amount:            decimal.NewFromInt(500),
		Method:            enums.PaymentMethodOnline,
		Status:            enums.PaymentRecordStatusPaid,
	}
	_, err = repo.Create(ctx, second)
	require.ErrorIs(t, err, ErrDuplicatePayment)
}

func TestNilExternalPaymentIDsDoNotCollide(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	// COD records carry no external payment id; several must coexist.
	for i := 0; i < 2; i++ {
		record := &models.PaymentRecord{
			UserID: uuid.New(),
			Amount: decimal.NewFromInt(300),
			Method: enums.PaymentMethodCOD,
			Status: enums.PaymentRecordStatusPending,
		}
		_, err := repo.Create(ctx, record)
		require.NoError(t, err)
	}
}

func TestAppendRefund(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	record := &models.PaymentRecord{
		ExternalPaymentID: strPtr("pay_ref"),
		UserID:            uuid.New(),
		Amount:            decimal.NewFromInt(999),
		Method:            enums.PaymentMethodOnline,
		Status:            enums.PaymentRecordStatusPaid,
	}
	created, err := repo.Create(ctx, record)
	require.NoError(t, err)

	refund := &models.PaymentRefund{
		PaymentRecordID: created.ID,
		Amount:          decimal.NewFromInt(999),
		Reason:          "order cancelled",
	}
	require.NoError(t, repo.AppendRefund(ctx, refund))

	var got models.PaymentRecord
	require.NoError(t, gdb.Preload("Refunds").First(&got, "id = ?", created.ID).Error)
	require.Len(t, got.Refunds, 1)
}

func TestUpdateStatus(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	record := &models.PaymentRecord{
		UserID: uuid.New(),
		Amount: decimal.NewFromInt(100),
		Method: enums.PaymentMethodCOD,
		Status: enums.PaymentRecordStatusPending,
	}
	created, err := repo.Create(ctx, record)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, created.ID, map[string]any{
		"status": enums.PaymentRecordStatusCancelled,
	}))

	var got models.PaymentRecord
	require.NoError(t, gdb.First(&got, "id = ?", created.ID).Error)
	require.Equal(t, enums.PaymentRecordStatusCancelled, got.Status)
}
