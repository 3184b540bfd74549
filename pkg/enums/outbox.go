package enums

// OutboxEventType names the domain events recorded through the
// transactional outbox.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order.created"
	EventOrderPaid             OutboxEventType = "order.paid"
	EventOrderCancelled        OutboxEventType = "order.cancelled"
	EventOrderExpired          OutboxEventType = "order.expired"
	EventVendorSaleRecorded    OutboxEventType = "vendor.sale_recorded"
	EventDeliveryStatusUpdated OutboxEventType = "delivery.status_updated"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder    OutboxAggregateType = "order"
	AggregateDelivery OutboxAggregateType = "delivery"
)
