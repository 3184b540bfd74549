package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helpnet/helpnet-backend/internal/catalog"
	"github.com/helpnet/helpnet-backend/internal/paymentmethods"
	"github.com/helpnet/helpnet-backend/pkg/db/models"
	"github.com/helpnet/helpnet-backend/pkg/enums"
	pkgerrors "github.com/helpnet/helpnet-backend/pkg/errors"
	"github.com/helpnet/helpnet-backend/pkg/outbox"
	"github.com/helpnet/helpnet-backend/pkg/outbox/payloads"
	"github.com/helpnet/helpnet-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Inventory reserves and releases catalog stock inside the order transaction.
type Inventory interface {
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (bool, error)
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// Notifier persists in-app notifications inside the order transaction.
type Notifier interface {
	CreateTx(ctx context.Context, tx *gorm.DB, notification models.Notification) error
}

// Service defines the order ledger operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderDetail, error)
	Cancel(ctx context.Context, input CancelOrderInput) error
	GetDetail(ctx context.Context, orderID, customerID uuid.UUID) (*OrderDetail, error)
	List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error)
}

type service struct {
	repo          Repository
	catalogRepo   catalog.Repository
	methodsRepo   paymentmethods.Repository
	tx            txRunner
	outbox        outboxPublisher
	inventory     Inventory
	notifier      Notifier
	paymentWindow time.Duration
	now           func() time.Time
}

// NewService builds the order ledger service with the required dependencies.
func NewService(
	repo Repository,
	catalogRepo catalog.Repository,
	methodsRepo paymentmethods.Repository,
	tx txRunner,
	outboxSvc outboxPublisher,
	inventory Inventory,
	notifier Notifier,
	paymentWindow time.Duration,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if methodsRepo == nil {
		return nil, fmt.Errorf("payment methods repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("inventory required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if paymentWindow <= 0 {
		paymentWindow = 24 * time.Hour
	}
	return &service{
		repo:          repo,
		catalogRepo:   catalogRepo,
		methodsRepo:   methodsRepo,
		tx:            tx,
		outbox:        outboxSvc,
		inventory:     inventory,
		notifier:      notifier,
		paymentWindow: paymentWindow,
		now:           time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*OrderDetail, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAddress, "address id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	if len(input.Allocations) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one payment allocation")
	}
	if input.FreightCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "freight must be non-negative")
	}

	qtyByProduct := make(map[uuid.UUID]int, len(input.Items))
	productIDs := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if _, dup := qtyByProduct[item.ProductID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in order items").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		qtyByProduct[item.ProductID] = item.Qty
		productIDs = append(productIDs, item.ProductID)
	}

	allocByMethod := make(map[uuid.UUID]int64, len(input.Allocations))
	methodIDs := make([]uuid.UUID, 0, len(input.Allocations))
	var allocatedTotal int64
	for _, alloc := range input.Allocations {
		if alloc.MethodID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation method id required")
		}
		if alloc.AllocatedCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation amount must be positive")
		}
		if _, dup := allocByMethod[alloc.MethodID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate payment method in allocations").
				WithDetails(map[string]any{"method_id": alloc.MethodID})
		}
		allocByMethod[alloc.MethodID] = alloc.AllocatedCents
		methodIDs = append(methodIDs, alloc.MethodID)
		allocatedTotal += alloc.AllocatedCents
	}

	var detail *OrderDetail
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindCustomerAddress(ctx, input.AddressID, input.CustomerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeInvalidAddress, "address not found for customer")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
		}

		products, err := s.catalogRepo.WithTx(tx).FindActiveByIDs(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		productByID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			productByID[p.ID] = p
		}
		for _, id := range productIDs {
			if _, ok := productByID[id]; !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found or inactive").
					WithDetails(map[string]any{"product_id": id})
			}
		}

		methods, err := s.methodsRepo.WithTx(tx).FindActiveByIDs(ctx, methodIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment methods")
		}
		if len(methods) != len(methodIDs) {
			found := make(map[uuid.UUID]bool, len(methods))
			for _, m := range methods {
				found[m.ID] = true
			}
			for _, id := range methodIDs {
				if !found[id] {
					return pkgerrors.New(pkgerrors.CodeValidation, "unknown or inactive payment method").
						WithDetails(map[string]any{"method_id": id})
				}
			}
		}

		var subtotal int64
		items := make([]models.OrderItem, 0, len(productIDs))
		for _, id := range productIDs {
			product := productByID[id]
			qty := qtyByProduct[id]
			lineTotal := product.PriceCents * int64(qty)
			subtotal += lineTotal
			items = append(items, models.OrderItem{
				ProductID:      product.ID,
				VendorID:       product.VendorID,
				Name:           product.Name,
				UnitPriceCents: product.PriceCents,
				Qty:            qty,
				TotalCents:     lineTotal,
			})
		}
		total := subtotal + input.FreightCents

		if allocatedTotal != total {
			return pkgerrors.New(pkgerrors.CodeAllocationMismatch, "allocations must sum to order total").
				WithDetails(map[string]any{
					"allocated_cents": allocatedTotal,
					"total_cents":     total,
				})
		}

		for _, id := range productIDs {
			reserved, err := s.inventory.Reserve(ctx, tx, id, qtyByProduct[id])
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
			}
			if !reserved {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
					WithDetails(map[string]any{
						"product_id": id,
						"requested":  qtyByProduct[id],
					})
			}
		}

		now := s.now()
		order := &models.Order{
			CustomerID:    input.CustomerID,
			AddressID:     input.AddressID,
			Status:        enums.OrderStatusAwaitingPayment,
			PaymentStatus: enums.PaymentStatusPending,
			SubtotalCents: subtotal,
			FreightCents:  input.FreightCents,
			TotalCents:    total,
			ExpiresAt:     now.Add(s.paymentWindow),
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}

		allocations := make([]models.PaymentAllocation, 0, len(methodIDs))
		for _, id := range methodIDs {
			allocations = append(allocations, models.PaymentAllocation{
				OrderID:        order.ID,
				MethodID:       id,
				AllocatedCents: allocByMethod[id],
			})
		}
		if err := repo.CreateAllocations(ctx, allocations); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment allocations")
		}

		notification := models.Notification{
			RecipientID: input.CustomerID,
			Type:        enums.NotificationOrderConfirmed,
			Title:       "Order received",
			Message:     fmt.Sprintf("Your order was created and awaits payment until %s.", order.ExpiresAt.Format(time.RFC3339)),
		}
		if err := s.notifier.CreateTx(ctx, tx, notification); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.CustomerID, input.ActorRole),
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				TotalCents: order.TotalCents,
				ItemCount:  len(items),
				ExpiresAt:  order.ExpiresAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		detail = &OrderDetail{
			Order:       *order,
			Items:       items,
			Allocations: allocations,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *service) Cancel(ctx context.Context, input CancelOrderInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.CustomerID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
		if !cancellable(order.Status) {
			return pkgerrors.New(pkgerrors.CodeOrderNotCancellable, "order can no longer be cancelled").
				WithDetails(map[string]any{"status": order.Status})
		}

		if !order.StockReleased {
			items, err := repo.FindOrderItems(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
			}
			for _, item := range items {
				if err := s.inventory.Release(ctx, tx, item.ProductID, item.Qty); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stock")
				}
			}
		}

		now := s.now()
		updates := map[string]any{
			"status":         enums.OrderStatusCancelled,
			"payment_status": enums.PaymentStatusCancelled,
			"cancelled_at":   now,
			"stock_released": true,
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.CustomerID, input.ActorRole),
			Data: payloads.OrderCancelledEvent{
				OrderID:     order.ID,
				CustomerID:  order.CustomerID,
				CancelledAt: now,
				Reason:      input.Reason,
			},
		}
		return s.outbox.EmitIfNotExists(ctx, tx, event)
	})
}

func (s *service) GetDetail(ctx context.Context, orderID, customerID uuid.UUID) (*OrderDetail, error) {
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

	items, err := s.repo.FindOrderItems(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	allocations, err := s.repo.FindAllocations(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load allocations")
	}
	deliveries, err := s.repo.FindDeliveries(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deliveries")
	}

	return &OrderDetail{
		Order:       *order,
		Items:       items,
		Allocations: allocations,
		Deliveries:  deliveries,
	}, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	list, err := s.repo.ListCustomerOrders(ctx, customerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// Customers may only walk away from orders nothing has been paid against.
// Partially paid orders need the expiration sweep or support intervention.
func cancellable(status enums.OrderStatus) bool {
	return status == enums.OrderStatusAwaitingPayment
}

func buildActor(userID uuid.UUID, role string) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: userID,
		Role:   role,
	}
}

// ProductCacheInvalidator drops cached catalog entries after a stock change.
type ProductCacheInvalidator interface {
	InvalidateProduct(ctx context.Context, id uuid.UUID) error
}

type inventoryImpl struct {
	repo  catalog.Repository
	cache ProductCacheInvalidator
}

// NewInventory adapts the catalog repository to the order transaction. The
// invalidator is optional; without one cached reads age out on TTL alone.
func NewInventory(repo catalog.Repository, cache ProductCacheInvalidator) Inventory {
	return inventoryImpl{repo: repo, cache: cache}
}

func (i inventoryImpl) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) (bool, error) {
	if tx == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	reserved, err := i.repo.WithTx(tx).Reserve(ctx, productID, qty)
	if err == nil && reserved {
		i.invalidate(ctx, productID)
	}
	return reserved, err
}

func (i inventoryImpl) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock release")
	}
	if err := i.repo.WithTx(tx).Release(ctx, productID, qty); err != nil {
		return err
	}
	i.invalidate(ctx, productID)
	return nil
}

// invalidation is best effort; the cache TTL bounds how long a stale entry
// outlives a missed delete
func (i inventoryImpl) invalidate(ctx context.Context, productID uuid.UUID) {
	if i.cache == nil {
		return
	}
	_ = i.cache.InvalidateProduct(ctx, productID)
}
