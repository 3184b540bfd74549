package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/helpnet/helpnet-backend/pkg/enums"
)

// Order is the ledger root. Totals are fixed at creation; TotalPaidCents is
// the only mutable monetary column and always equals the sum of confirmed
// allocation payments.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	AddressID      uuid.UUID           `gorm:"column:address_id;type:uuid;not null"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'awaiting_payment'"`
	PaymentStatus  enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	SubtotalCents  int64               `gorm:"column:subtotal_cents;not null"`
	FreightCents   int64               `gorm:"column:freight_cents;not null;default:0"`
	TotalCents     int64               `gorm:"column:total_cents;not null"`
	TotalPaidCents int64               `gorm:"column:total_paid_cents;not null;default:0"`
	ExpiresAt      time.Time           `gorm:"column:expires_at;not null"`
	PaidAt         *time.Time          `gorm:"column:paid_at"`
	CancelledAt    *time.Time          `gorm:"column:cancelled_at"`
	StockReleased  bool                `gorm:"column:stock_released;not null;default:false"`
	Items          []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Allocations    []PaymentAllocation `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
