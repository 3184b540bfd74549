package deliveries

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
	"github.com/helpnet/helpnet-backend/pkg/enums"
)

// Repository defines persistence operations for vendor deliveries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindDeliveryForUpdate(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error)
	FindDelivery(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error)
	FindOrderDeliveries(ctx context.Context, orderID uuid.UUID) ([]models.Delivery, error)
	ListVendorDeliveries(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.Delivery, error)
	FindTrackingEvents(ctx context.Context, deliveryID uuid.UUID) ([]models.TrackingEvent, error)
	UpdateDelivery(ctx context.Context, deliveryID uuid.UUID, updates map[string]any) error
	CreateTrackingEvent(ctx context.Context, event *models.TrackingEvent) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a deliveries repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindDeliveryForUpdate(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", deliveryID).
		First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) FindDelivery(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Where("id = ?", deliveryID).
		First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) FindOrderDeliveries(ctx context.Context, orderID uuid.UUID) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&deliveries).Error
	return deliveries, err
}

func (r *repository) ListVendorDeliveries(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	var deliveries []models.Delivery
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Limit(limit).
		Find(&deliveries).Error
	return deliveries, err
}

func (r *repository) FindTrackingEvents(ctx context.Context, deliveryID uuid.UUID) ([]models.TrackingEvent, error) {
	var events []models.TrackingEvent
	err := r.db.WithContext(ctx).
		Where("delivery_id = ?", deliveryID).
		Order("occurred_at ASC").
		Find(&events).Error
	return events, err
}

func (r *repository) UpdateDelivery(ctx context.Context, deliveryID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("id = ?", deliveryID).
		Updates(updates).Error
}

func (r *repository) CreateTrackingEvent(ctx context.Context, event *models.TrackingEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}
