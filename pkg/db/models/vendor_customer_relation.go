package models

import (
	"time"

	"github.com/google/uuid"
)

// VendorCustomerRelation aggregates how much and how often a customer bought
// from a vendor. Append-only growth: never decremented, even on cancellation.
type VendorCustomerRelation struct {
	VendorID        uuid.UUID `gorm:"column:vendor_id;type:uuid;primaryKey"`
	CustomerID      uuid.UUID `gorm:"column:customer_id;type:uuid;primaryKey"`
	OrderCount      int       `gorm:"column:order_count;not null;default:0"`
	TotalValueCents int64     `gorm:"column:total_value_cents;not null;default:0"`
	LastOrderAt     time.Time `gorm:"column:last_order_at;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
