package enums

// OutboxEventType names a domain event written through the outbox.
type OutboxEventType string

const (
	EventOrderSettled   OutboxEventType = "order.settled"
	EventOrderCancelled OutboxEventType = "order.cancelled"
	EventPaymentFailed  OutboxEventType = "payment.failed"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
)
