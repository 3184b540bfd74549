package routing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
)

// Repository defines persistence operations for order routing.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	DeliveryExists(ctx context.Context, orderID, vendorID uuid.UUID) (bool, error)
	CreateDelivery(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error)
	CreateTrackingEvent(ctx context.Context, event *models.TrackingEvent) error
	UpsertVendorCustomerRelation(ctx context.Context, relation models.VendorCustomerRelation) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a routing repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) DeliveryExists(ctx context.Context, orderID, vendorID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Delivery{}).
		Where("order_id = ? AND vendor_id = ?", orderID, vendorID).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error) {
	if delivery == nil {
		return nil, errors.New("delivery required")
	}
	if err := r.db.WithContext(ctx).Create(delivery).Error; err != nil {
		return nil, err
	}
	return delivery, nil
}

func (r *repository) CreateTrackingEvent(ctx context.Context, event *models.TrackingEvent) error {
	if event == nil {
		return errors.New("tracking event required")
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// UpsertVendorCustomerRelation increments the aggregate counters, inserting
// the row on first purchase from the vendor.
func (r *repository) UpsertVendorCustomerRelation(ctx context.Context, relation models.VendorCustomerRelation) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "vendor_id"}, {Name: "customer_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"order_count":       gorm.Expr("vendor_customer_relations.order_count + ?", relation.OrderCount),
				"total_value_cents": gorm.Expr("vendor_customer_relations.total_value_cents + ?", relation.TotalValueCents),
				"last_order_at":     relation.LastOrderAt,
				"updated_at":        gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).
		Create(&relation).Error
}
