package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/helpnet/helpnet-backend/pkg/enums"
)

// PaymentMethod is one row per accepted collection method.
type PaymentMethod struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type      enums.PaymentMethodType `gorm:"column:type;type:text;not null;uniqueIndex"`
	Name      string                  `gorm:"column:name;not null"`
	IsActive  bool                    `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
