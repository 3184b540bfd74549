package enums

import "fmt"

// NotificationType categorizes in-app notifications.
type NotificationType string

const (
	NotificationOrderConfirmed NotificationType = "order_confirmed"
	NotificationOrderPaid      NotificationType = "order_paid"
	NotificationNewSale        NotificationType = "new_sale"
	NotificationDeliveryUpdate NotificationType = "delivery_update"
	NotificationOrderExpired   NotificationType = "order_expired"
)

var validNotificationTypes = []NotificationType{
	NotificationOrderConfirmed,
	NotificationOrderPaid,
	NotificationNewSale,
	NotificationDeliveryUpdate,
	NotificationOrderExpired,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
