package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/helpnet/helpnet-backend/pkg/enums"
)

// PaymentEvent is the append-only audit record of one confirmation.
type PaymentEvent struct {
	ID           uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID                `gorm:"column:order_id;type:uuid;not null;index"`
	AllocationID uuid.UUID                `gorm:"column:allocation_id;type:uuid;not null"`
	Source       enums.PaymentSource      `gorm:"column:source;type:text;not null"`
	Status       enums.PaymentEventStatus `gorm:"column:status;type:text;not null"`
	AmountCents  int64                    `gorm:"column:amount_cents;not null"`
	OccurredAt   time.Time                `gorm:"column:occurred_at;not null"`
	CreatedAt    time.Time                `gorm:"column:created_at;autoCreateTime"`
}
