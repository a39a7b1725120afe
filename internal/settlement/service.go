package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/threadline-store/threadline-backend/internal/cart"
	"github.com/threadline-store/threadline-backend/internal/orders"
	"github.com/threadline-store/threadline-backend/internal/payments"
	"github.com/threadline-store/threadline-backend/pkg/config"
	"github.com/threadline-store/threadline-backend/pkg/db"
	"github.com/threadline-store/threadline-backend/pkg/db/models"
	"github.com/threadline-store/threadline-backend/pkg/enums"
	pkgerrors "github.com/threadline-store/threadline-backend/pkg/errors"
	"github.com/threadline-store/threadline-backend/pkg/logger"
	"github.com/threadline-store/threadline-backend/pkg/metrics"
	"github.com/threadline-store/threadline-backend/pkg/outbox"
)

type txRunner interface {
	RunAtomic(ctx context.Context, opts db.AtomicOptions, fn func(tx *gorm.DB) error) error
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type proofVerifier interface {
	VerifyPaymentSignature(externalOrderID, externalPaymentID, signature string) error
}

// StockDecrementer applies the conditional stock subtraction inside the
// settlement transaction.
type StockDecrementer interface {
	Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (bool, error)
	FindProducts(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]models.Product, error)
}

// errAlreadySettled aborts the transaction when a concurrent attempt won the
// unique-index race; the caller resolves it to the winning order.
var errAlreadySettled = errors.New("settled by concurrent attempt")

// Service settles payments into orders. All four triggers funnel through
// Settle; the atomic phase commits order state, stock, and the payment
// ledger together, and everything after the commit is best-effort.
type Service struct {
	orders     orders.Repository
	payments   payments.Repository
	cart       cart.Repository
	stock      StockDecrementer
	tx         txRunner
	outbox     outboxPublisher
	verifier   proofVerifier
	cfg        config.SettlementConfig
	logg       *logger.Logger
	metrics    *metrics.SettlementMetrics
	atomicOpts db.AtomicOptions
}

// NewService builds the settlement service with the required dependencies.
func NewService(
	ordersRepo orders.Repository,
	paymentsRepo payments.Repository,
	cartRepo cart.Repository,
	stock StockDecrementer,
	tx txRunner,
	publisher outboxPublisher,
	verifier proofVerifier,
	cfg config.SettlementConfig,
	logg *logger.Logger,
	m *metrics.SettlementMetrics,
	atomicOpts db.AtomicOptions,
) (*Service, error) {
	if ordersRepo == nil || paymentsRepo == nil || cartRepo == nil {
		return nil, fmt.Errorf("orders, payments and cart repositories required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock decrementer required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("proof verifier required")
	}
	return &Service{
		orders:     ordersRepo,
		payments:   paymentsRepo,
		cart:       cartRepo,
		stock:      stock,
		tx:         tx,
		outbox:     publisher,
		verifier:   verifier,
		cfg:        cfg,
		logg:       logg,
		metrics:    m,
		atomicOpts: atomicOpts,
	}, nil
}

// Settle executes one settlement attempt and returns the settled order.
// Retries of the same external payment id converge on the same order.
func (s *Service) Settle(ctx context.Context, req Request) (*models.Order, error) {
	started := time.Now()
	order, err := s.settle(ctx, req)
	trigger := req.Trigger.String()
	s.metrics.ObserveDuration(trigger, time.Since(started))
	if err != nil {
		s.metrics.IncFailure(trigger)
		return nil, err
	}
	s.metrics.IncSuccess(trigger)
	return order, nil
}

func (s *Service) settle(ctx context.Context, req Request) (*models.Order, error) {
	if s.logg != nil {
		ctx = s.logg.WithPaymentID(ctx, req.ExternalPaymentID)
	}

	// Step 1: authenticate the assertion. COD carries no gateway proof.
	if req.Trigger != enums.TriggerCOD && req.Trigger != enums.TriggerWebhook {
		if err := s.verifier.VerifyPaymentSignature(req.ExternalOrderID, req.ExternalPaymentID, req.Signature); err != nil {
			s.recordRejectedProof(ctx, req, err)
			return nil, err
		}
	}

	// Step 2: fast-path idempotency check. The unique index on external
	// payment id remains the authoritative guard.
	if req.ExternalPaymentID != "" {
		if existing, err := s.orders.FindPaidByExternalPaymentID(ctx, req.ExternalPaymentID); err == nil {
			if s.logg != nil {
				s.logg.Info(ctx, "settlement already applied, returning existing order")
			}
			return existing, nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var settled *models.Order
	err := s.tx.RunAtomic(ctx, s.atomicOpts, func(tx *gorm.DB) error {
		var err error
		settled, err = s.settleTx(ctx, tx, req)
		return err
	})
	if errors.Is(err, errAlreadySettled) {
		return s.orders.FindPaidByExternalPaymentID(ctx, req.ExternalPaymentID)
	}
	if err != nil {
		return nil, err
	}
	return settled, nil
}

func (s *Service) settleTx(ctx context.Context, tx *gorm.DB, req Request) (*models.Order, error) {
	repo := s.orders.WithTx(tx)

	var order *models.Order
	var err error
	switch {
	case req.OrderID != nil:
		order, err = repo.FindByID(ctx, *req.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return nil, err
		}
		if order.UserID != req.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			return order, nil
		}
		if order.Status.IsTerminal() {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order is %s and cannot be settled", order.Status))
		}
	default:
		order, err = s.buildOrderFromCart(ctx, tx, req)
		if err != nil {
			return nil, err
		}
	}

	if req.Trigger == enums.TriggerCOD && order.TotalAmount.GreaterThan(s.cfg.CODCeilingAmount()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("cash on delivery is limited to %s", s.cfg.CODCeilingAmount()))
	}

	// Verified online payments land the order in PAID. COD has no proof
	// yet, so the order is PLACED while payment stays pending until
	// delivery.
	target := enums.OrderStatusPaid
	updates := map[string]any{}
	if req.Trigger == enums.TriggerCOD {
		target = enums.OrderStatusPlaced
		order.PaymentMethod = enums.PaymentMethodCOD
		updates["payment_method"] = enums.PaymentMethodCOD
	} else {
		order.PaymentStatus = enums.PaymentStatusPaid
		updates["payment_status"] = enums.PaymentStatusPaid
	}
	updates["status"] = target
	if req.ExternalOrderID != "" {
		updates["external_order_id"] = req.ExternalOrderID
	}
	if req.ExternalPaymentID != "" {
		updates["external_payment_id"] = req.ExternalPaymentID
	}
	if req.Address != nil && order.ShippingAddress == nil {
		order.ShippingAddress = req.Address
		// Map-based Updates bypasses the model's json serializer, so the
		// column value must be marshaled here.
		addrJSON, err := json.Marshal(req.Address)
		if err != nil {
			return nil, err
		}
		updates["shipping_address"] = addrJSON
	}

	if err := orders.ValidateTransition(order, target); err != nil {
		return nil, err
	}
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		if db.IsUniqueViolation(err, "ux_orders_external_payment_id") || db.IsUniqueViolation(err, "") {
			return nil, errAlreadySettled
		}
		return nil, err
	}

	note := fmt.Sprintf("settled via %s", req.Trigger)
	if err := repo.AppendStatusEvent(ctx, &models.OrderStatusEvent{
		OrderID: order.ID,
		Status:  target,
		Note:    note,
		Actor:   req.UserID.String(),
	}); err != nil {
		return nil, err
	}

	if err := s.reduceStock(ctx, tx, repo, order); err != nil {
		return nil, err
	}

	if err := s.appendLedgerEntry(ctx, tx, req, order); err != nil {
		return nil, err
	}

	payload := outbox.OrderSettledPayload{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		TotalAmount:   order.TotalAmount.String(),
		PaymentMethod: order.PaymentMethod,
		Trigger:       req.Trigger.String(),
		Address:       order.ShippingAddress,
		ClearCart:     req.OrderID == nil,
	}
	if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderSettled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: req.UserID},
		Data:          payload,
		Version:       1,
	}); err != nil {
		return nil, err
	}

	return repo.FindByID(ctx, order.ID)
}

// buildOrderFromCart synthesizes a new order from the user's staged cart,
// snapshotting product price, name and image at this instant.
func (s *Service) buildOrderFromCart(ctx context.Context, tx *gorm.DB, req Request) (*models.Order, error) {
	items, err := s.cart.WithTx(tx).ListByUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	productIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.ProductID != nil {
			productIDs = append(productIDs, *item.ProductID)
		}
	}
	products, err := s.stock.FindProducts(ctx, tx, productIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	subtotal := decimal.Zero
	lineItems := make([]models.OrderLineItem, 0, len(items))
	for _, item := range items {
		line := models.OrderLineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Size:      item.Size,
			Color:     item.Color,
			UnitPrice: item.UnitPrice,
			Qty:       item.Qty,
		}
		if item.ProductID != nil {
			if product, ok := byID[*item.ProductID]; ok {
				line.Name = product.Name
				line.ImageURL = product.ImageURL
				line.UnitPrice = product.Price
			} else if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("cart references missing product %s", item.ProductID))
			}
		}
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty)))
		subtotal = subtotal.Add(line.Subtotal)
		lineItems = append(lineItems, line)
	}

	shipping := s.ShippingCharge(subtotal)
	number, err := s.orders.WithTx(tx).NextOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderNumber:     number,
		UserID:          req.UserID,
		Status:          enums.OrderStatusCreated,
		PaymentStatus:   enums.PaymentStatusPending,
		PaymentMethod:   enums.PaymentMethodOnline,
		SubtotalAmount:  subtotal,
		ShippingCharge:  shipping,
		TotalAmount:     subtotal.Add(shipping),
		ShippingAddress: req.Address,
		Items:           lineItems,
	}
	created, err := s.orders.WithTx(tx).Create(ctx, order)
	if err != nil {
		if db.IsUniqueViolation(err, "ux_orders_external_payment_id") || db.IsUniqueViolation(err, "") {
			return nil, errAlreadySettled
		}
		return nil, err
	}
	return created, nil
}

// reduceStock flips the at-most-once flag and applies the conditional
// decrement per line item. Insufficient stock degrades to a warning: the
// payment has already succeeded, so blocking the order over a stock race is
// worse than allowing a backorder.
func (s *Service) reduceStock(ctx context.Context, tx *gorm.DB, repo orders.Repository, order *models.Order) error {
	flipped, err := repo.MarkStockReduced(ctx, order.ID)
	if err != nil {
		return err
	}
	if !flipped {
		return nil
	}
	for _, item := range order.Items {
		if item.ProductID == nil {
			continue
		}
		applied, err := s.stock.Decrement(ctx, tx, *item.ProductID, item.Qty)
		if err != nil {
			return err
		}
		if !applied && s.logg != nil {
			warnCtx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Warn(warnCtx, fmt.Sprintf("insufficient stock for product %s (qty %d), order proceeds", item.ProductID, item.Qty))
		}
	}
	return nil
}

func (s *Service) appendLedgerEntry(ctx context.Context, tx *gorm.DB, req Request, order *models.Order) error {
	status := enums.PaymentRecordStatusPaid
	method := enums.PaymentMethodOnline
	if req.Trigger == enums.TriggerCOD {
		status = enums.PaymentRecordStatusPending
		method = enums.PaymentMethodCOD
	}
	record := &models.PaymentRecord{
		ExternalOrderID: req.ExternalOrderID,
		Signature:       req.Signature,
		OrderID:         &order.ID,
		UserID:          order.UserID,
		Amount:          order.TotalAmount,
		Method:          method,
		Status:          status,
	}
	if req.ExternalPaymentID != "" {
		record.ExternalPaymentID = &req.ExternalPaymentID
	}
	_, err := s.payments.WithTx(tx).Create(ctx, record)
	if errors.Is(err, payments.ErrDuplicatePayment) {
		// The winning attempt already wrote the ledger row.
		return nil
	}
	return err
}

// ShippingCharge computes the flat fee below the free-shipping threshold and
// zero at or above it.
func (s *Service) ShippingCharge(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(s.cfg.FreeShippingThresholdAmount()) {
		return decimal.Zero
	}
	return s.cfg.ShippingFlatFeeAmount()
}

// recordRejectedProof writes a FAILED ledger row for forensic traceability.
// Failures here are logged and swallowed; the caller still gets the
// signature error.
func (s *Service) recordRejectedProof(ctx context.Context, req Request, cause error) {
	input := FailureInput{
		UserID:            req.UserID,
		ExternalOrderID:   req.ExternalOrderID,
		ExternalPaymentID: req.ExternalPaymentID,
		Method:            enums.PaymentMethodOnline,
		Amount:            req.Amount,
		Reason:            cause.Error(),
	}
	if err := s.RecordFailure(ctx, input); err != nil && s.logg != nil {
		s.logg.Error(ctx, "recording rejected proof failed", err)
	}
}

// RecordFailure persists a FAILED payment ledger row and emits the matching
// event. Used for rejected signatures and failed gateway webhooks.
func (s *Service) RecordFailure(ctx context.Context, input FailureInput) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		record := &models.PaymentRecord{
			ExternalOrderID: input.ExternalOrderID,
			UserID:          input.UserID,
			Amount:          input.Amount,
			Method:          input.Method,
			Status:          enums.PaymentRecordStatusFailed,
		}
		if input.ExternalPaymentID != "" {
			record.ExternalPaymentID = &input.ExternalPaymentID
		}
		if input.Reason != "" {
			if notes, err := json.Marshal(map[string]string{"reason": input.Reason}); err == nil {
				record.Notes = notes
			}
		}
		created, err := s.payments.WithTx(tx).Create(ctx, record)
		if errors.Is(err, payments.ErrDuplicatePayment) {
			return nil
		}
		if err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   created.ID,
			Data: outbox.PaymentFailedPayload{
				PaymentRecordID:   created.ID,
				UserID:            input.UserID,
				ExternalPaymentID: input.ExternalPaymentID,
				Reason:            input.Reason,
			},
			Version: 1,
		})
	})
}
