package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
)

// Repository defines persistence operations for payment reconciliation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindAllocationForUpdate(ctx context.Context, orderID, methodID uuid.UUID) (*models.PaymentAllocation, error)
	FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	CreatePaymentEvent(ctx context.Context, event *models.PaymentEvent) error
	FindPaymentEvents(ctx context.Context, orderID uuid.UUID) ([]models.PaymentEvent, error)
	UpdateAllocation(ctx context.Context, allocationID uuid.UUID, updates map[string]any) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	FindExpiredOrderIDs(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
	ListAllocationSummaries(ctx context.Context, orderID uuid.UUID) ([]AllocationSummary, error)
}
