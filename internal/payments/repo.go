package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/pkg/db"
	"github.com/threadline-store/threadline-backend/pkg/db/models"
)

// ErrDuplicatePayment is returned when a payment record with the same
// external payment id already exists. Callers treat it as an idempotent
// success, not a failure.
var ErrDuplicatePayment = errors.New("payment already recorded")

// Repository defines persistence operations for the payment ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.PaymentRecord) (*models.PaymentRecord, error)
	FindByExternalPaymentID(ctx context.Context, externalPaymentID string) (*models.PaymentRecord, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error
	AppendRefund(ctx context.Context, refund *models.PaymentRefund) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts a new ledger row. A unique-index collision on the external
// payment id maps to ErrDuplicatePayment so retried settlements and webhook
// redeliveries converge on the existing row.
func (r *repository) Create(ctx context.Context, record *models.PaymentRecord) (*models.PaymentRecord, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if db.IsUniqueViolation(err, "ux_payment_records_external_payment_id") ||
			db.IsUniqueViolation(err, "") {
			return nil, ErrDuplicatePayment
		}
		return nil, err
	}
	return record, nil
}

func (r *repository) FindByExternalPaymentID(ctx context.Context, externalPaymentID string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("external_payment_id = ?", externalPaymentID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.PaymentRecord{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) AppendRefund(ctx context.Context, refund *models.PaymentRefund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}
