package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

// OutboxEventType names a domain event recorded in the outbox.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order.created"
	EventOrderStatusChanged OutboxEventType = "order.status_changed"
	EventOrderCancelled     OutboxEventType = "order.cancelled"
	EventOrderPaymentUpdate OutboxEventType = "order.payment_updated"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderCancelled,
	EventOrderPaymentUpdate,
}

func (e OutboxEventType) String() string {
	return string(e)
}

func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
