package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
	"github.com/helpnet/helpnet-backend/pkg/enums"
	"github.com/helpnet/helpnet-backend/pkg/outbox"
	"github.com/helpnet/helpnet-backend/pkg/outbox/payloads"
)

func TestResolveDecodesTypedPayload(t *testing.T) {
	reg := NewEventRegistry()
	orderID := uuid.New()
	customerID := uuid.New()

	data, err := json.Marshal(payloads.OrderCreatedEvent{
		OrderID:    orderID,
		CustomerID: customerID,
		TotalCents: 21000,
		ItemCount:  2,
		ExpiresAt:  time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       envelope,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Descriptor.Channel != ChannelOrders {
		t.Fatalf("expected orders channel, got %s", resolved.Descriptor.Channel)
	}
	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.OrderID != orderID || payload.TotalCents != 21000 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestResolveUnsupportedEventTypeIsNonRetryable(t *testing.T) {
	reg := NewEventRegistry()
	_, err := reg.Resolve(models.OutboxEvent{
		EventType:     "something.unknown",
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
	})
	assertNonRetryable(t, err)
}

func TestResolveAggregateMismatchIsNonRetryable(t *testing.T) {
	reg := NewEventRegistry()
	_, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateDelivery,
		AggregateID:   uuid.New(),
	})
	assertNonRetryable(t, err)
}

func TestResolveMissingAggregateIDIsNonRetryable(t *testing.T) {
	reg := NewEventRegistry()
	_, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
	})
	assertNonRetryable(t, err)
}

func TestResolveNullDataIsNonRetryable(t *testing.T) {
	reg := NewEventRegistry()
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version: 1,
		EventID: uuid.NewString(),
		Data:    json.RawMessage("null"),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	_, err = reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderExpired,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelope,
	})
	assertNonRetryable(t, err)
}

func TestNonRetryableErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := NewNonRetryableError(cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause")
	}
}

func assertNonRetryable(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	var nonRetryable NonRetryableError
	if !errors.As(err, &nonRetryable) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}
