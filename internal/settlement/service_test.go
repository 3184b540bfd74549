package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
	"github.com/helpnet/helpnet-backend/pkg/enums"
	pkgerrors "github.com/helpnet/helpnet-backend/pkg/errors"
	"github.com/helpnet/helpnet-backend/pkg/outbox"
)

type stubSettlementRepo struct {
	orders        map[uuid.UUID]*models.Order
	allocations   map[uuid.UUID]*models.PaymentAllocation
	items         []models.OrderItem
	paymentEvents []models.PaymentEvent
	orderUpdates  []map[string]any
	allocUpdates  []map[string]any
	expiredIDs    []uuid.UUID
	failOrderID   uuid.UUID
}

func (s *stubSettlementRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubSettlementRepo) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.failOrderID != uuid.Nil && orderID == s.failOrderID {
		return nil, errors.New("lock timeout")
	}
	order, ok := s.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubSettlementRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.FindOrderForUpdate(ctx, orderID)
}

func (s *stubSettlementRepo) FindAllocationForUpdate(ctx context.Context, orderID, methodID uuid.UUID) (*models.PaymentAllocation, error) {
	alloc, ok := s.allocations[methodID]
	if !ok || alloc.OrderID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return alloc, nil
}

func (s *stubSettlementRepo) FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	return s.items, nil
}

func (s *stubSettlementRepo) CreatePaymentEvent(ctx context.Context, event *models.PaymentEvent) error {
	s.paymentEvents = append(s.paymentEvents, *event)
	return nil
}

func (s *stubSettlementRepo) FindPaymentEvents(ctx context.Context, orderID uuid.UUID) ([]models.PaymentEvent, error) {
	return s.paymentEvents, nil
}

func (s *stubSettlementRepo) UpdateAllocation(ctx context.Context, allocationID uuid.UUID, updates map[string]any) error {
	s.allocUpdates = append(s.allocUpdates, updates)
	return nil
}

func (s *stubSettlementRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	s.orderUpdates = append(s.orderUpdates, updates)
	return nil
}

func (s *stubSettlementRepo) FindExpiredOrderIDs(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	return s.expiredIDs, nil
}

func (s *stubSettlementRepo) ListAllocationSummaries(ctx context.Context, orderID uuid.UUID) ([]AllocationSummary, error) {
	return nil, nil
}

type stubRouter struct {
	calls int
	order *models.Order
	err   error
}

func (s *stubRouter) RouteWithinTx(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderItem) error {
	if s.err != nil {
		return s.err
	}
	s.calls++
	s.order = order
	return nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutboxPublisher) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	return s.Emit(ctx, tx, event)
}

type releaseCall struct {
	productID uuid.UUID
	qty       int
}

type stubStockReleaser struct {
	calls []releaseCall
}

func (s *stubStockReleaser) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	s.calls = append(s.calls, releaseCall{productID: productID, qty: qty})
	return nil
}

type stubNotifier struct {
	notifications []models.Notification
}

func (s *stubNotifier) CreateTx(ctx context.Context, tx *gorm.DB, notification models.Notification) error {
	s.notifications = append(s.notifications, notification)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func buildService(t *testing.T, repo *stubSettlementRepo, router *stubRouter, out *stubOutboxPublisher, stock *stubStockReleaser, notify *stubNotifier) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, out, router, stock, notify, nil, nil)
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func payableOrder(total, paid int64) *models.Order {
	status := enums.PaymentStatusPending
	if paid > 0 {
		status = enums.PaymentStatusPartial
	}
	return &models.Order{
		ID:             uuid.New(),
		CustomerID:     uuid.New(),
		Status:         enums.OrderStatusAwaitingPayment,
		PaymentStatus:  status,
		TotalCents:     total,
		TotalPaidCents: paid,
		ExpiresAt:      time.Now().Add(time.Hour),
	}
}

func TestApplyPaymentPartial(t *testing.T) {
	order := payableOrder(10000, 0)
	methodID := uuid.New()
	repo := &stubSettlementRepo{
		orders: map[uuid.UUID]*models.Order{order.ID: order},
		allocations: map[uuid.UUID]*models.PaymentAllocation{
			methodID: {ID: uuid.New(), OrderID: order.ID, MethodID: methodID, AllocatedCents: 10000},
		},
	}
	router := &stubRouter{}
	out := &stubOutboxPublisher{}
	svc := buildService(t, repo, router, out, &stubStockReleaser{}, &stubNotifier{})

	result, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		OrderID:     order.ID,
		MethodID:    methodID,
		AmountCents: 4000,
		Source:      enums.PaymentSourceWebhook,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if result.AppliedCents != 4000 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.PaymentStatus != enums.PaymentStatusPartial {
		t.Fatalf("unexpected payment status %s", result.PaymentStatus)
	}
	if result.OrderStatus != enums.OrderStatusPaymentStarted {
		t.Fatalf("unexpected order status %s", result.OrderStatus)
	}
	if result.FullyPaid {
		t.Fatal("order should not be fully paid")
	}
	if router.calls != 0 {
		t.Fatal("routing must wait for full payment")
	}
	if len(repo.paymentEvents) != 1 || repo.paymentEvents[0].AmountCents != 4000 {
		t.Fatalf("unexpected payment events %+v", repo.paymentEvents)
	}
	if repo.paymentEvents[0].Status != enums.PaymentEventConfirmed {
		t.Fatalf("unexpected event status %s", repo.paymentEvents[0].Status)
	}
	if len(out.events) != 0 {
		t.Fatalf("no outbox event expected, got %+v", out.events)
	}
}

func TestApplyPaymentFullRoutesOrder(t *testing.T) {
	order := payableOrder(10000, 6000)
	order.Status = enums.OrderStatusPaymentStarted
	methodID := uuid.New()
	vendorID := uuid.New()
	repo := &stubSettlementRepo{
		orders: map[uuid.UUID]*models.Order{order.ID: order},
		allocations: map[uuid.UUID]*models.PaymentAllocation{
			methodID: {ID: uuid.New(), OrderID: order.ID, MethodID: methodID, AllocatedCents: 10000, PaidCents: 6000},
		},
		items: []models.OrderItem{
			{OrderID: order.ID, ProductID: uuid.New(), VendorID: &vendorID, Qty: 1, TotalCents: 10000},
		},
	}
	router := &stubRouter{}
	out := &stubOutboxPublisher{}
	svc := buildService(t, repo, router, out, &stubStockReleaser{}, &stubNotifier{})

	result, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		OrderID:     order.ID,
		MethodID:    methodID,
		AmountCents: 4000,
		Source:      enums.PaymentSourceManual,
		ActorUserID: uuid.New(),
		ActorRole:   "admin",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !result.FullyPaid {
		t.Fatal("expected fully paid")
	}
	if result.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("unexpected payment status %s", result.PaymentStatus)
	}
	if result.OrderStatus != enums.OrderStatusPaid {
		t.Fatalf("unexpected order status %s", result.OrderStatus)
	}
	if router.calls != 1 {
		t.Fatalf("expected one routing call got %d", router.calls)
	}
	if len(out.events) != 1 || out.events[0].EventType != enums.EventOrderPaid {
		t.Fatalf("unexpected outbox events %+v", out.events)
	}
}

func TestApplyPaymentExceedingAllocationRejected(t *testing.T) {
	// 100.00 split across two 50.00 allocations; 60.00 against one must be
	// rejected even though the order as a whole still owes more than that
	order := payableOrder(10000, 0)
	pixMethod := uuid.New()
	boletoMethod := uuid.New()
	repo := &stubSettlementRepo{
		orders: map[uuid.UUID]*models.Order{order.ID: order},
		allocations: map[uuid.UUID]*models.PaymentAllocation{
			pixMethod:    {ID: uuid.New(), OrderID: order.ID, MethodID: pixMethod, AllocatedCents: 5000},
			boletoMethod: {ID: uuid.New(), OrderID: order.ID, MethodID: boletoMethod, AllocatedCents: 5000},
		},
	}
	svc := buildService(t, repo, &stubRouter{}, &stubOutboxPublisher{}, &stubStockReleaser{}, &stubNotifier{})

	_, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		OrderID:     order.ID,
		MethodID:    pixMethod,
		AmountCents: 6000,
		Source:      enums.PaymentSourceWebhook,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOverpayment {
		t.Fatalf("unexpected error %v", err)
	}
	if len(repo.paymentEvents) != 0 {
		t.Fatal("no payment event expected")
	}
	if len(repo.allocUpdates) != 0 || len(repo.orderUpdates) != 0 {
		t.Fatal("ledger must stay untouched")
	}
}

func TestApplyPaymentFullyPaidAllocationRejected(t *testing.T) {
	order := payableOrder(10000, 3000)
	methodID := uuid.New()
	repo := &stubSettlementRepo{
		orders: map[uuid.UUID]*models.Order{order.ID: order},
		allocations: map[uuid.UUID]*models.PaymentAllocation{
			methodID: {ID: uuid.New(), OrderID: order.ID, MethodID: methodID, AllocatedCents: 3000, PaidCents: 3000},
		},
	}
	svc := buildService(t, repo, &stubRouter{}, &stubOutboxPublisher{}, &stubStockReleaser{}, &stubNotifier{})

	_, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		OrderID:     order.ID,
		MethodID:    methodID,
		AmountCents: 100,
		Source:      enums.PaymentSourceManual,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOverpayment {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestApplyPaymentOverpaymentRejected(t *testing.T) {
	order := payableOrder(10000, 8000)
	methodID := uuid.New()
	repo := &stubSettlementRepo{
		orders: map[uuid.UUID]*models.Order{order.ID: order},
		allocations: map[uuid.UUID]*models.PaymentAllocation{
			methodID: {ID: uuid.New(), OrderID: order.ID, MethodID: methodID, AllocatedCents: 10000, PaidCents: 8000},
		},
	}
	svc := buildService(t, repo, &stubRouter{}, &stubOutboxPublisher{}, &stubStockReleaser{}, &stubNotifier{})

	_, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		OrderID:     order.ID,
		MethodID:    methodID,
		AmountCents: 5000,
		Source:      enums.PaymentSourceWebhook,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOverpayment {
		t.Fatalf("unexpected error %v", err)
	}
	if len(repo.paymentEvents) != 0 {
		t.Fatal("no payment event expected")
	}
}

func TestApplyPaymentUnknownAllocation(t *testing.T) {
	order := payableOrder(10000, 0)
	repo := &stubSettlementRepo{
		orders: map[uuid.UUID]*models.Order{order.ID: order},
	}
	svc := buildService(t, repo, &stubRouter{}, &stubOutboxPublisher{}, &stubStockReleaser{}, &stubNotifier{})

	_, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		OrderID:     order.ID,
		MethodID:    uuid.New(),
		AmountCents: 100,
		Source:      enums.PaymentSourceWebhook,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAllocationNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestApplyPaymentAfterWindowRejected(t *testing.T) {
	order := payableOrder(10000, 0)
	order.ExpiresAt = time.Now().Add(-time.Minute)
	methodID := uuid.New()
	repo := &stubSettlementRepo{
		orders: map[uuid.UUID]*models.Order{order.ID: order},
		allocations: map[uuid.UUID]*models.PaymentAllocation{
			methodID: {ID: uuid.New(), OrderID: order.ID, MethodID: methodID, AllocatedCents: 10000},
		},
	}
	svc := buildService(t, repo, &stubRouter{}, &stubOutboxPublisher{}, &stubStockReleaser{}, &stubNotifier{})

	_, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		OrderID:     order.ID,
		MethodID:    methodID,
		AmountCents: 100,
		Source:      enums.PaymentSourceWebhook,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOrderNotPayable {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestApplyPaymentNotPayableStatus(t *testing.T) {
	order := payableOrder(10000, 0)
	order.PaymentStatus = enums.PaymentStatusPaid
	repo := &stubSettlementRepo{
		orders: map[uuid.UUID]*models.Order{order.ID: order},
	}
	svc := buildService(t, repo, &stubRouter{}, &stubOutboxPublisher{}, &stubStockReleaser{}, &stubNotifier{})

	_, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		OrderID:     order.ID,
		MethodID:    uuid.New(),
		AmountCents: 100,
		Source:      enums.PaymentSourceWebhook,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeOrderNotPayable {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestExpireStaleSweep(t *testing.T) {
	productID := uuid.New()
	expired := payableOrder(5000, 1000)
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	failing := uuid.New()

	repo := &stubSettlementRepo{
		orders: map[uuid.UUID]*models.Order{expired.ID: expired},
		items: []models.OrderItem{
			{OrderID: expired.ID, ProductID: productID, Qty: 2},
		},
		expiredIDs:  []uuid.UUID{expired.ID, failing},
		failOrderID: failing,
	}
	out := &stubOutboxPublisher{}
	stock := &stubStockReleaser{}
	notify := &stubNotifier{}
	svc := buildService(t, repo, &stubRouter{}, out, stock, notify)

	count, err := svc.ExpireStale(context.Background())
	if count != 1 {
		t.Fatalf("expected 1 expiration got %d", count)
	}
	if err == nil {
		t.Fatal("expected aggregated error for failing order")
	}
	if len(stock.calls) != 1 || stock.calls[0].qty != 2 {
		t.Fatalf("unexpected stock releases %+v", stock.calls)
	}
	if len(out.events) != 1 || out.events[0].EventType != enums.EventOrderExpired {
		t.Fatalf("unexpected outbox events %+v", out.events)
	}
	if len(notify.notifications) != 1 || notify.notifications[0].Type != enums.NotificationOrderExpired {
		t.Fatalf("unexpected notifications %+v", notify.notifications)
	}
	if len(repo.orderUpdates) != 1 || repo.orderUpdates[0]["payment_status"] != enums.PaymentStatusExpired {
		t.Fatalf("unexpected order updates %+v", repo.orderUpdates)
	}
}

func TestExpireStaleSkipsRacedOrder(t *testing.T) {
	// paid while the sweep was running
	paid := payableOrder(5000, 5000)
	paid.PaymentStatus = enums.PaymentStatusPaid
	paid.ExpiresAt = time.Now().Add(-time.Hour)

	repo := &stubSettlementRepo{
		orders:     map[uuid.UUID]*models.Order{paid.ID: paid},
		expiredIDs: []uuid.UUID{paid.ID},
	}
	out := &stubOutboxPublisher{}
	svc := buildService(t, repo, &stubRouter{}, out, &stubStockReleaser{}, &stubNotifier{})

	count, err := svc.ExpireStale(context.Background())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1 got %d", count)
	}
	if len(out.events) != 0 {
		t.Fatal("raced order must not emit expiration event")
	}
	if len(repo.orderUpdates) != 0 {
		t.Fatalf("raced order must not be updated: %+v", repo.orderUpdates)
	}
}

func TestSummaryForbidden(t *testing.T) {
	order := payableOrder(5000, 0)
	repo := &stubSettlementRepo{
		orders: map[uuid.UUID]*models.Order{order.ID: order},
	}
	svc := buildService(t, repo, &stubRouter{}, &stubOutboxPublisher{}, &stubStockReleaser{}, &stubNotifier{})

	_, err := svc.Summary(context.Background(), order.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestSummaryReportsRemaining(t *testing.T) {
	order := payableOrder(5000, 2000)
	repo := &stubSettlementRepo{
		orders: map[uuid.UUID]*models.Order{order.ID: order},
	}
	svc := buildService(t, repo, &stubRouter{}, &stubOutboxPublisher{}, &stubStockReleaser{}, &stubNotifier{})

	summary, err := svc.Summary(context.Background(), order.ID, order.CustomerID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if summary.RemainingCents != 3000 {
		t.Fatalf("unexpected remaining %d", summary.RemainingCents)
	}
}

func TestSummaryIncludesPaymentHistory(t *testing.T) {
	order := payableOrder(5000, 5000)
	order.PaymentStatus = enums.PaymentStatusPaid
	repo := &stubSettlementRepo{
		orders: map[uuid.UUID]*models.Order{order.ID: order},
		paymentEvents: []models.PaymentEvent{
			{OrderID: order.ID, Source: enums.PaymentSourceWebhook, Status: enums.PaymentEventConfirmed, AmountCents: 2000},
			{OrderID: order.ID, Source: enums.PaymentSourceManual, Status: enums.PaymentEventConfirmed, AmountCents: 3000},
		},
	}
	svc := buildService(t, repo, &stubRouter{}, &stubOutboxPublisher{}, &stubStockReleaser{}, &stubNotifier{})

	summary, err := svc.Summary(context.Background(), order.ID, order.CustomerID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(summary.History) != 2 {
		t.Fatalf("expected 2 history entries got %d", len(summary.History))
	}
	if summary.History[0].AmountCents != 2000 || summary.History[1].Source != enums.PaymentSourceManual {
		t.Fatalf("unexpected history %+v", summary.History)
	}
}
