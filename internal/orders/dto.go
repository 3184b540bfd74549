package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
	"github.com/helpnet/helpnet-backend/pkg/enums"
)

// CreateOrderItemInput is one requested product line.
type CreateOrderItemInput struct {
	ProductID uuid.UUID
	Qty       int
}

// CreateOrderAllocationInput commits part of the order total to one method.
type CreateOrderAllocationInput struct {
	MethodID       uuid.UUID
	AllocatedCents int64
}

// CreateOrderInput carries everything needed to open an order.
type CreateOrderInput struct {
	CustomerID   uuid.UUID
	AddressID    uuid.UUID
	FreightCents int64
	Items        []CreateOrderItemInput
	Allocations  []CreateOrderAllocationInput
	ActorRole    string
}

// CancelOrderInput identifies the order and the customer asking to cancel.
type CancelOrderInput struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Reason     string
	ActorRole  string
}

// OrderFilters describe the inputs supported by the customer orders list.
type OrderFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}

// OrderSummary exposes the aggregated fields returned in the list.
type OrderSummary struct {
	ID             uuid.UUID           `json:"id"`
	CreatedAt      time.Time           `json:"created_at"`
	Status         enums.OrderStatus   `json:"status"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	TotalCents     int64               `json:"total_cents"`
	TotalPaidCents int64               `json:"total_paid_cents"`
	TotalItems     int                 `json:"total_items"`
	ExpiresAt      time.Time           `json:"expires_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderDetail is the full order view with lines and allocations.
type OrderDetail struct {
	Order       models.Order               `json:"order"`
	Items       []models.OrderItem         `json:"items"`
	Allocations []models.PaymentAllocation `json:"allocations"`
	Deliveries  []models.Delivery          `json:"deliveries,omitempty"`
}
