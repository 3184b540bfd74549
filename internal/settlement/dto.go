package settlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/helpnet/helpnet-backend/pkg/db/models"
	"github.com/helpnet/helpnet-backend/pkg/enums"
)

// ApplyPaymentInput is one confirmed payment against an order allocation.
type ApplyPaymentInput struct {
	OrderID     uuid.UUID
	MethodID    uuid.UUID
	AmountCents int64
	Source      enums.PaymentSource
	OccurredAt  time.Time
	ActorUserID uuid.UUID
	ActorRole   string
}

// ApplyPaymentResult reports what the reconciler did with the confirmation.
type ApplyPaymentResult struct {
	AppliedCents   int64               `json:"applied_cents"`
	TotalPaidCents int64               `json:"total_paid_cents"`
	PaymentStatus  enums.PaymentStatus `json:"payment_status"`
	OrderStatus    enums.OrderStatus   `json:"order_status"`
	FullyPaid      bool                `json:"fully_paid"`
}

// AllocationSummary is the per-method view in the payment summary.
type AllocationSummary struct {
	MethodID       uuid.UUID               `json:"method_id"`
	MethodType     enums.PaymentMethodType `json:"method_type"`
	MethodName     string                  `json:"method_name"`
	AllocatedCents int64                   `json:"allocated_cents"`
	PaidCents      int64                   `json:"paid_cents"`
	RemainingCents int64                   `json:"remaining_cents"`
}

// PaymentSummary is the reconciliation snapshot for one order.
type PaymentSummary struct {
	OrderID        uuid.UUID             `json:"order_id"`
	TotalCents     int64                 `json:"total_cents"`
	TotalPaidCents int64                 `json:"total_paid_cents"`
	RemainingCents int64                 `json:"remaining_cents"`
	PaymentStatus  enums.PaymentStatus   `json:"payment_status"`
	OrderStatus    enums.OrderStatus     `json:"order_status"`
	ExpiresAt      time.Time             `json:"expires_at"`
	Allocations    []AllocationSummary   `json:"allocations"`
	History        []models.PaymentEvent `json:"history"`
}
