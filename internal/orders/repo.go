package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/pkg/db/models"
	"github.com/threadline-store/threadline-backend/pkg/enums"
	"github.com/threadline-store/threadline-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	NextOrderNumber(ctx context.Context) (string, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByExternalOrderID(ctx context.Context, externalOrderID string) (*models.Order, error)
	FindPaidByExternalPaymentID(ctx context.Context, externalPaymentID string) (*models.Order, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	AppendStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error
	MarkStockReduced(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// NextOrderNumber increments the counter row and formats the new value. Must
// run inside the settlement transaction so concurrent settlements serialize
// on the counter row.
func (r *repository) NextOrderNumber(ctx context.Context) (string, error) {
	res := r.db.WithContext(ctx).Model(&models.OrderCounter{}).
		Where("id = ?", 1).
		Update("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		if err := r.db.WithContext(ctx).Create(&models.OrderCounter{ID: 1, Value: 1}).Error; err != nil {
			return "", err
		}
	}
	var counter models.OrderCounter
	if err := r.db.WithContext(ctx).First(&counter, "id = ?", 1).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%06d", counter.Value), nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByExternalOrderID(ctx context.Context, externalOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("external_order_id = ?", externalOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindPaidByExternalPaymentID backs the idempotency guard: an order bearing
// the external payment id with payment status paid means settlement already
// happened.
func (r *repository) FindPaidByExternalPaymentID(ctx context.Context, externalPaymentID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("external_payment_id = ? AND payment_status = ?", externalPaymentID, enums.PaymentStatusPaid).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.Order{}).
		Preload("Items").
		Where("user_id = ?", userID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err = query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &OrderList{}
	pageSize := pagination.NormalizeLimit(params.Limit)
	if len(rows) > pageSize {
		last := rows[pageSize-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:pageSize]
	}
	list.Orders = rows
	return list, nil
}

func (r *repository) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) AppendStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// MarkStockReduced flips the stock_reduced flag only when it is still false.
// The conditional update is what enforces the at-most-once decrement: a
// second settlement attempt sees zero rows affected and skips the decrement.
func (r *repository) MarkStockReduced(ctx context.Context, orderID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND stock_reduced = ?", orderID, false).
		Updates(map[string]any{
			"stock_reduced":    true,
			"stock_reduced_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
