package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrderRequest OutboxAggregateType = "order_request"
	AggregateOffer        OutboxAggregateType = "offer"
	AggregateDispute      OutboxAggregateType = "dispute"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrderRequest,
	AggregateOffer,
	AggregateDispute,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderRequestCreated  OutboxEventType = "order_request_created"
	EventOrderRequestDeclined OutboxEventType = "order_request_declined"
	EventOfferSubmitted       OutboxEventType = "offer_submitted"
	EventOfferAccepted        OutboxEventType = "offer_accepted"
	EventPaymentConfirmed     OutboxEventType = "payment_confirmed"
	EventOfferCompleted       OutboxEventType = "offer_completed"
	EventDisputeOpened        OutboxEventType = "dispute_opened"
	EventDisputeUpdated       OutboxEventType = "dispute_updated"
	EventDisputeClosed        OutboxEventType = "dispute_closed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderRequestCreated,
	EventOrderRequestDeclined,
	EventOfferSubmitted,
	EventOfferAccepted,
	EventPaymentConfirmed,
	EventOfferCompleted,
	EventDisputeOpened,
	EventDisputeUpdated,
	EventDisputeClosed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

// OutboxEventTypes lists every event type in declaration order.
func OutboxEventTypes() []OutboxEventType {
	return slices.Clone(validOutboxEventTypes)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validOutboxEventTypes, value, "event type")
}

// OutboxDLQErrorReason records why a row moved from the outbox to the dead-letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
