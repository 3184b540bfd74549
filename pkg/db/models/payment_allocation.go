package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentAllocation is the amount the customer committed to one payment
// method. PaidCents <= AllocatedCents always; the sum of AllocatedCents
// across an order equals the order total at creation.
type PaymentAllocation struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_payment_allocations_order_method"`
	MethodID       uuid.UUID `gorm:"column:method_id;type:uuid;not null;uniqueIndex:ux_payment_allocations_order_method"`
	AllocatedCents int64     `gorm:"column:allocated_cents;not null"`
	PaidCents      int64     `gorm:"column:paid_cents;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
