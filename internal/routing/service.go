package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
	"github.com/helpnet/helpnet-backend/pkg/enums"
	pkgerrors "github.com/helpnet/helpnet-backend/pkg/errors"
	"github.com/helpnet/helpnet-backend/pkg/logger"
	"github.com/helpnet/helpnet-backend/pkg/outbox"
	"github.com/helpnet/helpnet-backend/pkg/outbox/payloads"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notifier interface {
	CreateTx(ctx context.Context, tx *gorm.DB, notification models.Notification) error
}

// Service fans a paid order out into per-vendor deliveries. RouteWithinTx is
// invoked by settlement inside the same transaction that marks the order paid,
// so a routing failure rolls the payment application back too.
type Service interface {
	RouteWithinTx(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderItem) error
}

type service struct {
	repo         Repository
	outbox       outboxPublisher
	notifier     notifier
	deliveryLead time.Duration
	logg         *logger.Logger
	now          func() time.Time
}

// NewService builds the routing service.
func NewService(repo Repository, outboxSvc outboxPublisher, notify notifier, deliveryLead time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("routing repository required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if deliveryLead <= 0 {
		deliveryLead = 7 * 24 * time.Hour
	}
	return &service{
		repo:         repo,
		outbox:       outboxSvc,
		notifier:     notify,
		deliveryLead: deliveryLead,
		logg:         logg,
		now:          time.Now,
	}, nil
}

type vendorGroup struct {
	valueCents int64
	itemCount  int
}

func (s *service) RouteWithinTx(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderItem) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for routing")
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}

	groups := make(map[uuid.UUID]*vendorGroup)
	vendorIDs := make([]uuid.UUID, 0)
	for _, item := range items {
		if item.VendorID == nil {
			// legacy products without a vendor cannot be shipped by anyone
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"order_id":   order.ID.String(),
					"product_id": item.ProductID.String(),
				})
				s.logg.Warn(logCtx, "skipping unassigned vendor item during routing")
			}
			continue
		}
		group, ok := groups[*item.VendorID]
		if !ok {
			group = &vendorGroup{}
			groups[*item.VendorID] = group
			vendorIDs = append(vendorIDs, *item.VendorID)
		}
		group.valueCents += item.TotalCents
		group.itemCount += item.Qty
	}

	repo := s.repo.WithTx(tx)
	now := s.now()
	created := 0

	for _, vendorID := range vendorIDs {
		group := groups[vendorID]

		// re-routing the same order must not duplicate shipments
		exists, err := repo.DeliveryExists(ctx, order.ID, vendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check delivery existence")
		}
		if exists {
			continue
		}

		delivery := &models.Delivery{
			OrderID:    order.ID,
			VendorID:   vendorID,
			Status:     enums.DeliveryStatusAwaitingShipment,
			ExpectedAt: now.Add(s.deliveryLead),
		}
		if _, err := repo.CreateDelivery(ctx, delivery); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery")
		}
		created++

		event := &models.TrackingEvent{
			DeliveryID: delivery.ID,
			Status:     enums.DeliveryStatusAwaitingShipment,
			OccurredAt: now,
		}
		if err := repo.CreateTrackingEvent(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tracking event")
		}

		relation := models.VendorCustomerRelation{
			VendorID:        vendorID,
			CustomerID:      order.CustomerID,
			OrderCount:      1,
			TotalValueCents: group.valueCents,
			LastOrderAt:     now,
		}
		if err := repo.UpsertVendorCustomerRelation(ctx, relation); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert vendor relation")
		}

		notification := models.Notification{
			RecipientID: vendorID,
			Type:        enums.NotificationNewSale,
			Title:       "New sale",
			Message:     fmt.Sprintf("You have a new paid order with %d item(s) to ship.", group.itemCount),
		}
		if err := s.notifier.CreateTx(ctx, tx, notification); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor notification")
		}

		saleEvent := outbox.DomainEvent{
			EventType:     enums.EventVendorSaleRecorded,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Data: payloads.VendorSaleRecordedEvent{
				OrderID:        order.ID,
				VendorID:       vendorID,
				CustomerID:     order.CustomerID,
				DeliveryID:     delivery.ID,
				SaleValueCents: group.valueCents,
				ItemCount:      group.itemCount,
			},
		}
		if err := s.outbox.Emit(ctx, tx, saleEvent); err != nil {
			return err
		}
	}

	// a replayed fan-out creates no deliveries and must not re-notify
	if created == 0 {
		return nil
	}

	customerNote := models.Notification{
		RecipientID: order.CustomerID,
		Type:        enums.NotificationOrderPaid,
		Title:       "Payment confirmed",
		Message:     "Your payment was confirmed and vendors are preparing your order.",
	}
	if err := s.notifier.CreateTx(ctx, tx, customerNote); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer notification")
	}

	return nil
}
