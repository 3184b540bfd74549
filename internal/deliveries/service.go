package deliveries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
	"github.com/helpnet/helpnet-backend/pkg/enums"
	pkgerrors "github.com/helpnet/helpnet-backend/pkg/errors"
	"github.com/helpnet/helpnet-backend/pkg/outbox"
	"github.com/helpnet/helpnet-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notifier interface {
	CreateTx(ctx context.Context, tx *gorm.DB, notification models.Notification) error
}

// UpdateStatusInput carries one shipment transition from a vendor.
type UpdateStatusInput struct {
	DeliveryID   uuid.UUID
	VendorID     uuid.UUID
	Status       enums.DeliveryStatus
	Carrier      *string
	TrackingCode *string
	Location     *string
	Notes        *string
	ActorUserID  uuid.UUID
	ActorRole    string
}

// DeliveryDetail is the delivery plus its tracking history.
type DeliveryDetail struct {
	Delivery models.Delivery        `json:"delivery"`
	Events   []models.TrackingEvent `json:"events"`
}

// Service defines delivery operations for vendors and customers.
type Service interface {
	UpdateStatus(ctx context.Context, input UpdateStatusInput) error
	GetDetail(ctx context.Context, deliveryID uuid.UUID) (*DeliveryDetail, error)
	ListVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.Delivery, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	notifier notifier
	now      func() time.Time
}

// NewService builds the deliveries service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, notify notifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deliveries repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outboxSvc,
		notifier: notify,
		now:      time.Now,
	}, nil
}

// statusRank orders the forward shipment progression.
var statusRank = map[enums.DeliveryStatus]int{
	enums.DeliveryStatusAwaitingShipment: 0,
	enums.DeliveryStatusShipped:          1,
	enums.DeliveryStatusInTransit:        2,
	enums.DeliveryStatusOutForDelivery:   3,
	enums.DeliveryStatusDelivered:        4,
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) error {
	if input.DeliveryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	if input.VendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	if !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInvalidStatus, "invalid delivery status").
			WithDetails(map[string]any{"status": input.Status})
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		delivery, err := repo.FindDeliveryForUpdate(ctx, input.DeliveryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
		}
		if delivery.VendorID != input.VendorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "delivery does not belong to vendor")
		}
		if delivery.Status == input.Status {
			return nil
		}
		if !canTransition(delivery.Status, input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivery status cannot move backwards").
				WithDetails(map[string]any{
					"current": delivery.Status,
					"target":  input.Status,
				})
		}

		now := s.now()
		updates := map[string]any{"status": input.Status}
		if input.Carrier != nil {
			updates["carrier"] = *input.Carrier
		}
		if input.TrackingCode != nil {
			updates["tracking_code"] = *input.TrackingCode
		}
		switch input.Status {
		case enums.DeliveryStatusShipped:
			updates["shipped_at"] = now
		case enums.DeliveryStatusDelivered:
			updates["delivered_at"] = now
		}
		if err := repo.UpdateDelivery(ctx, delivery.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery")
		}

		event := &models.TrackingEvent{
			DeliveryID: delivery.ID,
			Status:     input.Status,
			Location:   input.Location,
			Notes:      input.Notes,
			OccurredAt: now,
		}
		if err := repo.CreateTrackingEvent(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tracking event")
		}

		order, err := repo.FindOrder(ctx, delivery.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if err := s.propagateOrderStatus(ctx, repo, order, delivery.ID, input.Status); err != nil {
			return err
		}

		notification := models.Notification{
			RecipientID: order.CustomerID,
			Type:        enums.NotificationDeliveryUpdate,
			Title:       "Delivery update",
			Message:     fmt.Sprintf("A shipment in your order is now %s.", input.Status),
		}
		if err := s.notifier.CreateTx(ctx, tx, notification); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
		}

		domainEvent := outbox.DomainEvent{
			EventType:     enums.EventDeliveryStatusUpdated,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Version:       1,
			Actor: &outbox.ActorRef{
				UserID:   input.ActorUserID,
				VendorID: &input.VendorID,
				Role:     input.ActorRole,
			},
			Data: payloads.DeliveryStatusUpdatedEvent{
				DeliveryID: delivery.ID,
				OrderID:    delivery.OrderID,
				VendorID:   delivery.VendorID,
				Status:     input.Status,
				OccurredAt: now,
			},
		}
		return s.outbox.Emit(ctx, tx, domainEvent)
	})
}

// propagateOrderStatus mirrors shipment progress on the order: the first
// shipped delivery marks the order shipped, and the order becomes delivered
// only when every delivery is delivered.
func (s *service) propagateOrderStatus(ctx context.Context, repo Repository, order *models.Order, updatedID uuid.UUID, newStatus enums.DeliveryStatus) error {
	if order.Status.IsTerminal() {
		return nil
	}

	switch newStatus {
	case enums.DeliveryStatusShipped:
		// payment lands the order on paid; the first shipment moves it forward
		if order.Status == enums.OrderStatusPaid || order.Status == enums.OrderStatusProcessing {
			if err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusShipped); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order to shipped")
			}
		}
	case enums.DeliveryStatusDelivered:
		siblings, err := repo.FindOrderDeliveries(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order deliveries")
		}
		for _, sibling := range siblings {
			if sibling.ID == updatedID {
				continue
			}
			if sibling.Status != enums.DeliveryStatusDelivered {
				return nil
			}
		}
		if err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusDelivered); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order to delivered")
		}
	}
	return nil
}

func (s *service) GetDetail(ctx context.Context, deliveryID uuid.UUID) (*DeliveryDetail, error) {
	if deliveryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	delivery, err := s.repo.FindDelivery(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery")
	}
	events, err := s.repo.FindTrackingEvents(ctx, deliveryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tracking events")
	}
	return &DeliveryDetail{Delivery: *delivery, Events: events}, nil
}

func (s *service) ListVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.Delivery, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	deliveries, err := s.repo.ListVendorDeliveries(ctx, vendorID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deliveries")
	}
	return deliveries, nil
}

func canTransition(current, target enums.DeliveryStatus) bool {
	if current.IsTerminal() {
		return false
	}
	if target == enums.DeliveryStatusCancelled {
		return true
	}
	currentRank, ok := statusRank[current]
	if !ok {
		return false
	}
	targetRank, ok := statusRank[target]
	if !ok {
		return false
	}
	return targetRank > currentRank
}
