package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/helpnet/helpnet-backend/pkg/enums"
)

// OrderCreatedEvent signals a new order awaiting payment.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	TotalCents int64     `json:"total_cents"`
	ItemCount  int       `json:"item_count"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// OrderPaidEvent is emitted exactly once, when accumulated payments reach the
// order total.
type OrderPaidEvent struct {
	OrderID        uuid.UUID   `json:"order_id"`
	CustomerID     uuid.UUID   `json:"customer_id"`
	TotalCents     int64       `json:"total_cents"`
	TotalPaidCents int64       `json:"total_paid_cents"`
	VendorIDs      []uuid.UUID `json:"vendor_ids"`
	PaidAt         time.Time   `json:"paid_at"`
}

// OrderCancelledEvent is emitted whenever a customer cancels before payment
// completes.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	CustomerID  uuid.UUID `json:"customer_id"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

// OrderExpiredEvent reports that the payment window lapsed and stock was
// returned to the catalog.
type OrderExpiredEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	TotalPaidCents int64     `json:"total_paid_cents"`
	ExpiredAt      time.Time `json:"expired_at"`
}

// VendorSaleRecordedEvent tells downstream systems a vendor gained a sale.
type VendorSaleRecordedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	VendorID       uuid.UUID `json:"vendor_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	DeliveryID     uuid.UUID `json:"delivery_id"`
	SaleValueCents int64     `json:"sale_value_cents"`
	ItemCount      int       `json:"item_count"`
}

// DeliveryStatusUpdatedEvent surfaces a shipment transition to the customer.
type DeliveryStatusUpdatedEvent struct {
	DeliveryID uuid.UUID            `json:"delivery_id"`
	OrderID    uuid.UUID            `json:"order_id"`
	VendorID   uuid.UUID            `json:"vendor_id"`
	Status     enums.DeliveryStatus `json:"status"`
	OccurredAt time.Time            `json:"occurred_at"`
}
