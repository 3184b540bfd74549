package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
	"github.com/helpnet/helpnet-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
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

func (r *repository) FindAllocationForUpdate(ctx context.Context, orderID, methodID uuid.UUID) (*models.PaymentAllocation, error) {
	var alloc models.PaymentAllocation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND method_id = ?", orderID, methodID).
		First(&alloc).Error
	if err != nil {
		return nil, err
	}
	return &alloc, nil
}

func (r *repository) FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) CreatePaymentEvent(ctx context.Context, event *models.PaymentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) FindPaymentEvents(ctx context.Context, orderID uuid.UUID) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("occurred_at ASC").
		Find(&events).Error
	return events, err
}

func (r *repository) UpdateAllocation(ctx context.Context, allocationID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentAllocation{}).
		Where("id = ?", allocationID).
		Updates(updates).Error
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) FindExpiredOrderIDs(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("expires_at < ? AND payment_status IN ?", cutoff, []enums.PaymentStatus{
			enums.PaymentStatusPending,
			enums.PaymentStatusPartial,
		}).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) ListAllocationSummaries(ctx context.Context, orderID uuid.UUID) ([]AllocationSummary, error) {
	var rows []AllocationSummary
	err := r.db.WithContext(ctx).
		Table("payment_allocations").
		Select(`payment_allocations.method_id,
			payment_methods.type AS method_type,
			payment_methods.name AS method_name,
			payment_allocations.allocated_cents,
			payment_allocations.paid_cents,
			payment_allocations.allocated_cents - payment_allocations.paid_cents AS remaining_cents`).
		Joins("JOIN payment_methods ON payment_methods.id = payment_allocations.method_id").
		Where("payment_allocations.order_id = ?", orderID).
		Order("payment_allocations.created_at ASC").
		Scan(&rows).Error
	return rows, err
}
