package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/helpnet/helpnet-backend/internal/routing"
	"github.com/helpnet/helpnet-backend/pkg/db/models"
	"github.com/helpnet/helpnet-backend/pkg/enums"
	pkgerrors "github.com/helpnet/helpnet-backend/pkg/errors"
	"github.com/helpnet/helpnet-backend/pkg/logger"
	"github.com/helpnet/helpnet-backend/pkg/metrics"
	"github.com/helpnet/helpnet-backend/pkg/outbox"
	"github.com/helpnet/helpnet-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockReleaser interface {
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type notifier interface {
	CreateTx(ctx context.Context, tx *gorm.DB, notification models.Notification) error
}

// Service reconciles partial payments against order allocations.
type Service interface {
	ApplyPayment(ctx context.Context, input ApplyPaymentInput) (*ApplyPaymentResult, error)
	ExpireStale(ctx context.Context) (int, error)
	Summary(ctx context.Context, orderID, customerID uuid.UUID) (*PaymentSummary, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	router   routing.Service
	stock    stockReleaser
	notifier notifier
	metrics  *metrics.SettlementMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the settlement service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	router routing.Service,
	stock stockReleaser,
	notify notifier,
	settlementMetrics *metrics.SettlementMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if router == nil {
		return nil, fmt.Errorf("routing service required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock releaser required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outboxSvc,
		router:   router,
		stock:    stock,
		notifier: notify,
		metrics:  settlementMetrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// ApplyPayment applies one confirmed amount to an allocation. Amounts beyond
// the allocation remainder are rejected outright so the caller can resubmit a
// corrected amount. The transition to fully paid routes the order to vendors
// inside the same transaction.
func (s *service) ApplyPayment(ctx context.Context, input ApplyPaymentInput) (*ApplyPaymentResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.MethodID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "method id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment source")
	}
	if input.OccurredAt.IsZero() {
		input.OccurredAt = s.now()
	}

	var result *ApplyPaymentResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.PaymentStatus.IsPayable() {
			return pkgerrors.New(pkgerrors.CodeOrderNotPayable, "order is not accepting payments").
				WithDetails(map[string]any{"payment_status": order.PaymentStatus})
		}
		if s.now().After(order.ExpiresAt) {
			// past the window but not yet swept; treat as expired
			return pkgerrors.New(pkgerrors.CodeOrderNotPayable, "payment window has expired").
				WithDetails(map[string]any{"expires_at": order.ExpiresAt})
		}

		alloc, err := repo.FindAllocationForUpdate(ctx, input.OrderID, input.MethodID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeAllocationNotFound, "no allocation for payment method").
					WithDetails(map[string]any{"method_id": input.MethodID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocation")
		}

		orderRemaining := order.TotalCents - order.TotalPaidCents
		if input.AmountCents > orderRemaining {
			s.metrics.IncOverpaymentRejected()
			return pkgerrors.New(pkgerrors.CodeOverpayment, "payment exceeds order balance").
				WithDetails(map[string]any{
					"amount_cents":    input.AmountCents,
					"remaining_cents": orderRemaining,
				})
		}

		allocRemaining := alloc.AllocatedCents - alloc.PaidCents
		if input.AmountCents > allocRemaining {
			s.metrics.IncOverpaymentRejected()
			return pkgerrors.New(pkgerrors.CodeOverpayment, "payment exceeds allocation remainder").
				WithDetails(map[string]any{
					"method_id":       input.MethodID,
					"amount_cents":    input.AmountCents,
					"remaining_cents": allocRemaining,
				})
		}
		applied := input.AmountCents

		if err := repo.UpdateAllocation(ctx, alloc.ID, map[string]any{
			"paid_cents": gorm.Expr("paid_cents + ?", applied),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update allocation")
		}

		paymentEvent := &models.PaymentEvent{
			OrderID:      order.ID,
			AllocationID: alloc.ID,
			Source:       input.Source,
			Status:       enums.PaymentEventConfirmed,
			AmountCents:  applied,
			OccurredAt:   input.OccurredAt,
		}
		if err := repo.CreatePaymentEvent(ctx, paymentEvent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment event")
		}

		newPaid := order.TotalPaidCents + applied
		fullyPaid := newPaid == order.TotalCents
		now := s.now()

		updates := map[string]any{
			"total_paid_cents": newPaid,
		}
		newPaymentStatus := enums.PaymentStatusPartial
		newOrderStatus := order.Status
		if fullyPaid {
			newPaymentStatus = enums.PaymentStatusPaid
			newOrderStatus = enums.OrderStatusPaid
			updates["status"] = newOrderStatus
			updates["paid_at"] = now
		} else if order.Status == enums.OrderStatusAwaitingPayment {
			newOrderStatus = enums.OrderStatusPaymentStarted
			updates["status"] = newOrderStatus
		}
		updates["payment_status"] = newPaymentStatus

		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		order.TotalPaidCents = newPaid
		order.PaymentStatus = newPaymentStatus
		order.Status = newOrderStatus

		if fullyPaid {
			items, err := repo.FindOrderItems(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
			}
			if err := s.router.RouteWithinTx(ctx, tx, order, items); err != nil {
				return err
			}

			vendorIDs := make([]uuid.UUID, 0)
			seen := make(map[uuid.UUID]bool)
			for _, item := range items {
				if item.VendorID != nil && !seen[*item.VendorID] {
					seen[*item.VendorID] = true
					vendorIDs = append(vendorIDs, *item.VendorID)
				}
			}

			paidEvent := outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         actorFor(input),
				Data: payloads.OrderPaidEvent{
					OrderID:        order.ID,
					CustomerID:     order.CustomerID,
					TotalCents:     order.TotalCents,
					TotalPaidCents: newPaid,
					VendorIDs:      vendorIDs,
					PaidAt:         now,
				},
			}
			if err := s.outbox.EmitIfNotExists(ctx, tx, paidEvent); err != nil {
				return err
			}
		}

		result = &ApplyPaymentResult{
			AppliedCents:   applied,
			TotalPaidCents: newPaid,
			PaymentStatus:  newPaymentStatus,
			OrderStatus:    order.Status,
			FullyPaid:      fullyPaid,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncPaymentApplied(input.Source.String())
	if result.FullyPaid {
		s.metrics.IncOrderPaid()
	}
	return result, nil
}

// ExpireStale sweeps orders whose payment window lapsed, releasing stock and
// cancelling them. Each order is handled in its own transaction so one
// failure does not block the sweep.
func (s *service) ExpireStale(ctx context.Context) (int, error) {
	ids, err := s.repo.FindExpiredOrderIDs(ctx, s.now(), 100)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find expired orders")
	}

	expired := 0
	var errs []error
	for _, id := range ids {
		if err := s.expireOne(ctx, id); err != nil {
			if s.logg != nil {
				s.logg.Error(s.logg.WithOrderID(ctx, id.String()), "order expiration failed", err)
			}
			errs = append(errs, err)
			continue
		}
		expired++
		s.metrics.IncOrderExpired()
	}
	return expired, multierr.Combine(errs...)
}

func (s *service) expireOne(ctx context.Context, orderID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		// the sweep raced a payment or cancellation
		if !order.PaymentStatus.IsPayable() || s.now().Before(order.ExpiresAt) {
			return nil
		}

		if !order.StockReleased {
			items, err := repo.FindOrderItems(ctx, order.ID)
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := s.stock.Release(ctx, tx, item.ProductID, item.Qty); err != nil {
					return err
				}
			}
		}

		now := s.now()
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
			"status":         enums.OrderStatusCancelled,
			"payment_status": enums.PaymentStatusExpired,
			"cancelled_at":   now,
			"stock_released": true,
		}); err != nil {
			return err
		}

		notification := models.Notification{
			RecipientID: order.CustomerID,
			Type:        enums.NotificationOrderExpired,
			Title:       "Order expired",
			Message:     "Your order was cancelled because payment was not completed in time.",
		}
		if err := s.notifier.CreateTx(ctx, tx, notification); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderExpiredEvent{
				OrderID:        order.ID,
				CustomerID:     order.CustomerID,
				TotalPaidCents: order.TotalPaidCents,
				ExpiredAt:      now,
			},
		}
		return s.outbox.EmitIfNotExists(ctx, tx, event)
	})
}

func (s *service) Summary(ctx context.Context, orderID, customerID uuid.UUID) (*PaymentSummary, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if customerID != uuid.Nil && order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
	}

	allocations, err := s.repo.ListAllocationSummaries(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocation summaries")
	}
	history, err := s.repo.FindPaymentEvents(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment history")
	}

	return &PaymentSummary{
		OrderID:        order.ID,
		TotalCents:     order.TotalCents,
		TotalPaidCents: order.TotalPaidCents,
		RemainingCents: order.TotalCents - order.TotalPaidCents,
		PaymentStatus:  order.PaymentStatus,
		OrderStatus:    order.Status,
		ExpiresAt:      order.ExpiresAt,
		Allocations:    allocations,
		History:        history,
	}, nil
}

func actorFor(input ApplyPaymentInput) *outbox.ActorRef {
	if input.ActorUserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID: input.ActorUserID,
		Role:   input.ActorRole,
	}
}
