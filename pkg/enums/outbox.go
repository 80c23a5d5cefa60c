package enums

// OutboxEventType names a domain event persisted through the outbox.
type OutboxEventType string

const (
	EventOrderConfirmed    OutboxEventType = "order.confirmed"
	EventSuborderDelivered OutboxEventType = "suborder.delivered"
	EventWithdrawalDecided OutboxEventType = "withdrawal.decided"
	EventDraftExpired      OutboxEventType = "draft.expired"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder      OutboxAggregateType = "order"
	AggregateSuborder   OutboxAggregateType = "suborder"
	AggregateWithdrawal OutboxAggregateType = "withdrawal_request"
	AggregateDraft      OutboxAggregateType = "order_draft"
)
