package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/helpnet/helpnet-backend/pkg/enums"
)

// Delivery is one shipment per vendor represented in a paid order.
type Delivery struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_deliveries_order_vendor"`
	VendorID     uuid.UUID            `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:ux_deliveries_order_vendor"`
	Status       enums.DeliveryStatus `gorm:"column:status;type:text;not null;default:'awaiting_shipment'"`
	Carrier      *string              `gorm:"column:carrier"`
	TrackingCode *string              `gorm:"column:tracking_code"`
	ExpectedAt   time.Time            `gorm:"column:expected_at;not null"`
	ShippedAt    *time.Time           `gorm:"column:shipped_at"`
	DeliveredAt  *time.Time           `gorm:"column:delivered_at"`
	Events       []TrackingEvent      `gorm:"foreignKey:DeliveryID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
