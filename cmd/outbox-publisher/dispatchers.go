package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/helpnet/helpnet-backend/pkg/config"
	"github.com/helpnet/helpnet-backend/pkg/db/models"
	"github.com/helpnet/helpnet-backend/pkg/email"
	"github.com/helpnet/helpnet-backend/pkg/logger"
	"github.com/helpnet/helpnet-backend/pkg/outbox/idempotency"
	"github.com/helpnet/helpnet-backend/pkg/outbox/payloads"
	"github.com/helpnet/helpnet-backend/pkg/outbox/registry"
	"github.com/helpnet/helpnet-backend/pkg/types"
)

type counterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	CounterKey(name string) string
}

// ordersDispatcher feeds order lifecycle events into the marketplace counters.
type ordersDispatcher struct {
	counters counterStore
	guard    *idempotency.Manager
	logg     *logger.Logger
}

func newOrdersDispatcher(counters counterStore, guard *idempotency.Manager, logg *logger.Logger) (*ordersDispatcher, error) {
	if counters == nil {
		return nil, errors.New("counter store required")
	}
	if guard == nil {
		return nil, errors.New("idempotency guard required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &ordersDispatcher{counters: counters, guard: guard, logg: logg}, nil
}

func (d *ordersDispatcher) Dispatch(ctx context.Context, resolved *registry.ResolvedEvent, event models.OutboxEvent) error {
	processed, err := d.guard.CheckAndMarkProcessed(ctx, "orders-counters", event.ID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if processed {
		return nil
	}

	key := d.counters.CounterKey(fmt.Sprintf("events:%s", event.EventType))
	if _, err := d.counters.Incr(ctx, key); err != nil {
		// Roll back the processed mark so the retry counts the event.
		if delErr := d.guard.Delete(ctx, "orders-counters", event.ID); delErr != nil {
			d.logg.Error(ctx, "failed to reset idempotency mark", delErr)
		}
		return fmt.Errorf("increment counter: %w", err)
	}
	return nil
}

// notificationsDispatcher mirrors vendor and tracking events to the ops inbox.
type notificationsDispatcher struct {
	sender email.Sender
	cfg    config.EmailConfig
	guard  *idempotency.Manager
	logg   *logger.Logger
}

func newNotificationsDispatcher(sender email.Sender, cfg config.EmailConfig, guard *idempotency.Manager, logg *logger.Logger) (*notificationsDispatcher, error) {
	if sender == nil {
		return nil, errors.New("email sender required")
	}
	if guard == nil {
		return nil, errors.New("idempotency guard required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &notificationsDispatcher{sender: sender, cfg: cfg, guard: guard, logg: logg}, nil
}

func (d *notificationsDispatcher) Dispatch(ctx context.Context, resolved *registry.ResolvedEvent, event models.OutboxEvent) error {
	processed, err := d.guard.CheckAndMarkProcessed(ctx, "notifications-email", event.ID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if processed {
		return nil
	}

	msg, err := d.compose(resolved)
	if err != nil {
		return registry.NewNonRetryableError(err)
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		if delErr := d.guard.Delete(ctx, "notifications-email", event.ID); delErr != nil {
			d.logg.Error(ctx, "failed to reset idempotency mark", delErr)
		}
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (d *notificationsDispatcher) compose(resolved *registry.ResolvedEvent) (email.Message, error) {
	switch payload := resolved.Payload.(type) {
	case *payloads.VendorSaleRecordedEvent:
		return email.Message{
			To:      d.cfg.OpsInbox,
			Subject: fmt.Sprintf("New sale for vendor %s", payload.VendorID),
			Body: fmt.Sprintf(
				"Order %s generated a sale of %s across %d item(s). Delivery %s created.",
				payload.OrderID, types.FormatBRL(payload.SaleValueCents), payload.ItemCount, payload.DeliveryID,
			),
		}, nil
	case *payloads.DeliveryStatusUpdatedEvent:
		return email.Message{
			To:      d.cfg.OpsInbox,
			Subject: fmt.Sprintf("Delivery %s is now %s", payload.DeliveryID, payload.Status),
			Body: fmt.Sprintf(
				"Delivery %s for order %s moved to %s at %s.",
				payload.DeliveryID, payload.OrderID, payload.Status, payload.OccurredAt.Format("2006-01-02 15:04:05"),
			),
		}, nil
	default:
		return email.Message{}, fmt.Errorf("unsupported payload type %T", resolved.Payload)
	}
}
