package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/pkg/db"
	"github.com/threadline-store/threadline-backend/pkg/db/models"
	"github.com/threadline-store/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-store/threadline-backend/pkg/errors"
	"github.com/threadline-store/threadline-backend/pkg/logger"
	"github.com/threadline-store/threadline-backend/pkg/outbox"
	"github.com/threadline-store/threadline-backend/pkg/pagination"
)

type txRunner interface {
	RunAtomic(ctx context.Context, opts db.AtomicOptions, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// StockRestorer returns reduced stock when an order is cancelled.
type StockRestorer interface {
	Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// CancelInput captures the data required to cancel an order.
type CancelInput struct {
	OrderID     uuid.UUID
	Reason      string
	ActorUserID uuid.UUID
	ActorRole   enums.MemberRole
}

// UpdateStatusInput captures an administrative status change.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	Status      enums.OrderStatus
	Note        string
	ActorUserID uuid.UUID
}

// Service defines order-level operations beyond repository reads.
type Service interface {
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error)
	Detail(ctx context.Context, orderID, actorUserID uuid.UUID, actorRole enums.MemberRole) (*models.Order, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	stock      StockRestorer
	outbox     outboxPublisher
	logg       *logger.Logger
	atomicOpts db.AtomicOptions
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, stock StockRestorer, publisher outboxPublisher, logg *logger.Logger, atomicOpts db.AtomicOptions) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock restorer required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		stock:      stock,
		outbox:     publisher,
		logg:       logg,
		atomicOpts: atomicOpts,
	}, nil
}

// Cancel moves the order to CANCELLED and restores stock for every line item
// when the order had already reduced it. The whole operation is one atomic
// unit so a crash can never leave stock permanently lost.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	var result *models.Order
	err := s.tx.RunAtomic(ctx, s.atomicOpts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found")
		}
		if input.ActorRole != enums.RoleAdmin && order.UserID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		if err := ValidateTransition(order, enums.OrderStatusCancelled); err != nil {
			return err
		}

		restored := false
		if order.StockReduced {
			for _, item := range order.Items {
				if item.ProductID == nil {
					continue
				}
				if err := s.stock.Restore(ctx, tx, *item.ProductID, item.Qty); err != nil {
					return err
				}
			}
			restored = true
		}

		updates := map[string]any{
			"status":        enums.OrderStatusCancelled,
			"cancel_reason": input.Reason,
		}
		if restored {
			updates["stock_reduced"] = false
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return err
		}

		event := &models.OrderStatusEvent{
			OrderID: order.ID,
			Status:  enums.OrderStatusCancelled,
			Note:    input.Reason,
			Actor:   input.ActorUserID.String(),
		}
		if err := repo.AppendStatusEvent(ctx, event); err != nil {
			return err
		}

		if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole.String()},
			Data: outbox.OrderCancelledPayload{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				Reason:        input.Reason,
				StockRestored: restored,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		result, err = repo.FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus applies an administrative transition such as shipped or
// delivered. Delivered COD orders also flip payment status to paid because
// collection happens at the door.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	var result *models.Order
	err := s.tx.RunAtomic(ctx, s.atomicOpts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found")
		}
		if err := ValidateTransition(order, input.Status); err != nil {
			return err
		}

		updates := map[string]any{"status": input.Status}
		if input.Status == enums.OrderStatusDelivered &&
			order.PaymentMethod == enums.PaymentMethodCOD &&
			order.PaymentStatus == enums.PaymentStatusPending {
			updates["payment_status"] = enums.PaymentStatusPaid
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return err
		}

		event := &models.OrderStatusEvent{
			OrderID: order.ID,
			Status:  input.Status,
			Note:    input.Note,
			Actor:   input.ActorUserID.String(),
		}
		if err := repo.AppendStatusEvent(ctx, event); err != nil {
			return err
		}

		result, err = repo.FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*OrderList, error) {
	return s.repo.List(ctx, userID, params, filters)
}

func (s *service) Detail(ctx context.Context, orderID, actorUserID uuid.UUID, actorRole enums.MemberRole) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found")
	}
	if actorRole != enums.RoleAdmin && order.UserID != actorUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return order, nil
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	return err
}
