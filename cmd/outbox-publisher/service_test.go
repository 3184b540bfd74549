package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helpnet/helpnet-backend/pkg/config"
	"github.com/helpnet/helpnet-backend/pkg/db/models"
	"github.com/helpnet/helpnet-backend/pkg/enums"
	"github.com/helpnet/helpnet-backend/pkg/logger"
	"github.com/helpnet/helpnet-backend/pkg/outbox"
	"github.com/helpnet/helpnet-backend/pkg/outbox/payloads"
	"github.com/helpnet/helpnet-backend/pkg/outbox/registry"
)

type fakeDBClient struct{}

func (fakeDBClient) Ping(context.Context) error { return nil }

func (fakeDBClient) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeOutboxRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeOutboxRepo) FetchUnpublishedForPublishTx(tx *gorm.DB, limit int) ([]models.OutboxEvent, error) {
	events := f.events
	f.events = nil
	return events, nil
}

func (f *fakeOutboxRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeOutboxRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeDispatcher struct {
	err   error
	calls int
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, resolved *registry.ResolvedEvent, event models.OutboxEvent) error {
	f.calls++
	return f.err
}

type publisherTestHarness struct {
	service    *Service
	repo       *fakeOutboxRepo
	dlq        *fakeDLQRepo
	dispatcher *fakeDispatcher
}

func newPublisherTest(t *testing.T, maxAttempts int) *publisherTestHarness {
	t.Helper()
	repo := &fakeOutboxRepo{}
	dlq := &fakeDLQRepo{}
	dispatcher := &fakeDispatcher{}
	cfg := &config.Config{}
	cfg.Outbox.MaxAttempts = maxAttempts

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         fakeDBClient{},
		Repository: repo,
		Registry:   registry.NewEventRegistry(),
		DLQ:        dlq,
		Dispatchers: map[string]Dispatcher{
			registry.ChannelOrders: dispatcher,
		},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &publisherTestHarness{service: service, repo: repo, dlq: dlq, dispatcher: dispatcher}
}

func orderPaidEvent(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	data, err := json.Marshal(payloads.OrderPaidEvent{
		OrderID:        uuid.New(),
		CustomerID:     uuid.New(),
		TotalCents:     10000,
		TotalPaidCents: 10000,
		PaidAt:         time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelope,
		AttemptCount:  attempts,
	}
}

func TestProcessBatchPublishesDispatchedEvents(t *testing.T) {
	harness := newPublisherTest(t, 10)
	event := orderPaidEvent(t, 0)
	harness.repo.events = []models.OutboxEvent{event}

	processed, err := harness.service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report work")
	}
	if harness.dispatcher.calls != 1 {
		t.Fatalf("expected one dispatch, got %d", harness.dispatcher.calls)
	}
	if len(harness.repo.published) != 1 || harness.repo.published[0] != event.ID {
		t.Fatalf("expected event marked published, got %v", harness.repo.published)
	}
	if len(harness.dlq.entries) != 0 {
		t.Fatalf("no dlq entries expected, got %d", len(harness.dlq.entries))
	}
}

func TestProcessBatchEmptyQueueReportsIdle(t *testing.T) {
	harness := newPublisherTest(t, 10)

	processed, err := harness.service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if processed {
		t.Fatal("empty queue must report no work")
	}
}

func TestProcessBatchRetryableFailureMarksFailed(t *testing.T) {
	harness := newPublisherTest(t, 10)
	harness.dispatcher.err = errors.New("broker unavailable")
	event := orderPaidEvent(t, 0)
	harness.repo.events = []models.OutboxEvent{event}

	if _, err := harness.service.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(harness.repo.failed) != 1 || harness.repo.failed[0] != event.ID {
		t.Fatalf("expected event marked failed, got %v", harness.repo.failed)
	}
	if len(harness.repo.terminal) != 0 || len(harness.dlq.entries) != 0 {
		t.Fatal("retryable failure must not be terminal")
	}
}

func TestProcessBatchMaxAttemptsMovesToDLQ(t *testing.T) {
	harness := newPublisherTest(t, 3)
	harness.dispatcher.err = errors.New("broker unavailable")
	event := orderPaidEvent(t, 2)
	harness.repo.events = []models.OutboxEvent{event}

	if _, err := harness.service.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(harness.repo.terminal) != 1 || harness.repo.terminal[0] != event.ID {
		t.Fatalf("expected terminal mark, got %v", harness.repo.terminal)
	}
	if len(harness.dlq.entries) != 1 {
		t.Fatalf("expected 1 dlq entry, got %d", len(harness.dlq.entries))
	}
	if harness.dlq.entries[0].ErrorReason != enums.DLQReasonMaxAttempts {
		t.Fatalf("unexpected dlq reason %s", harness.dlq.entries[0].ErrorReason)
	}
}

func TestProcessBatchNonRetryableDispatchGoesTerminal(t *testing.T) {
	harness := newPublisherTest(t, 10)
	harness.dispatcher.err = registry.NewNonRetryableError(errors.New("unknown recipient"))
	event := orderPaidEvent(t, 0)
	harness.repo.events = []models.OutboxEvent{event}

	if _, err := harness.service.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(harness.repo.terminal) != 1 {
		t.Fatalf("expected terminal mark, got %v", harness.repo.terminal)
	}
	if len(harness.dlq.entries) != 1 || harness.dlq.entries[0].ErrorReason != enums.DLQReasonNonRetryable {
		t.Fatalf("unexpected dlq entries %+v", harness.dlq.entries)
	}
	if len(harness.repo.failed) != 0 {
		t.Fatal("non-retryable failure must not be retried")
	}
}

func TestProcessBatchUnsupportedEventGoesTerminal(t *testing.T) {
	harness := newPublisherTest(t, 10)
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     "something.unknown",
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	harness.repo.events = []models.OutboxEvent{event}

	if _, err := harness.service.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if harness.dispatcher.calls != 0 {
		t.Fatal("unsupported event must not be dispatched")
	}
	if len(harness.repo.terminal) != 1 || len(harness.dlq.entries) != 1 {
		t.Fatalf("expected terminal + dlq, got %v / %d", harness.repo.terminal, len(harness.dlq.entries))
	}
}

func TestProcessBatchMissingDispatcherGoesTerminal(t *testing.T) {
	harness := newPublisherTest(t, 10)
	// notifications channel has no dispatcher registered in this harness
	data, err := json.Marshal(payloads.VendorSaleRecordedEvent{
		OrderID:    uuid.New(),
		VendorID:   uuid.New(),
		CustomerID: uuid.New(),
		DeliveryID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version: 1,
		EventID: uuid.NewString(),
		Data:    data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventVendorSaleRecorded,
		AggregateType: enums.AggregateDelivery,
		AggregateID:   uuid.New(),
		Payload:       envelope,
	}
	harness.repo.events = []models.OutboxEvent{event}

	if _, err := harness.service.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(harness.repo.terminal) != 1 || len(harness.dlq.entries) != 1 {
		t.Fatalf("expected terminal + dlq, got %v / %d", harness.repo.terminal, len(harness.dlq.entries))
	}
}
