package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/helpnet/helpnet-backend/pkg/enums"
)

// TrackingEvent is the append-only audit trail of a delivery.
type TrackingEvent struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DeliveryID uuid.UUID            `gorm:"column:delivery_id;type:uuid;not null;index"`
	Status     enums.DeliveryStatus `gorm:"column:status;type:text;not null"`
	Location   *string              `gorm:"column:location"`
	Notes      *string              `gorm:"column:notes"`
	OccurredAt time.Time            `gorm:"column:occurred_at;not null"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}
