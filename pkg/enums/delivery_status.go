package enums

import "fmt"

// DeliveryStatus tracks a per-vendor shipment.
type DeliveryStatus string

const (
	DeliveryStatusAwaitingShipment DeliveryStatus = "awaiting_shipment"
	DeliveryStatusShipped          DeliveryStatus = "shipped"
	DeliveryStatusInTransit        DeliveryStatus = "in_transit"
	DeliveryStatusOutForDelivery   DeliveryStatus = "out_for_delivery"
	DeliveryStatusDelivered        DeliveryStatus = "delivered"
	DeliveryStatusCancelled        DeliveryStatus = "cancelled"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusAwaitingShipment,
	DeliveryStatusShipped,
	DeliveryStatusInTransit,
	DeliveryStatusOutForDelivery,
	DeliveryStatusDelivered,
	DeliveryStatusCancelled,
}

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the shipment reached a final state.
func (d DeliveryStatus) IsTerminal() bool {
	switch d {
	case DeliveryStatusDelivered, DeliveryStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
