package outbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/enums"
)

// NonRetryableError tells the publisher to dead-letter the row immediately.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

type descriptor struct {
	aggregate enums.OutboxAggregateType
	topic     string
	payload   func() any
}

// Registry maps each known event type to its topic and payload schema.
type Registry struct {
	entries map[enums.OutboxEventType]descriptor
}

// NewRegistry routes every order event to ordersTopic.
func NewRegistry(ordersTopic string) (*Registry, error) {
	if ordersTopic == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	r := &Registry{entries: map[enums.OutboxEventType]descriptor{
		enums.EventOrderCreated: {
			aggregate: enums.AggregateOrder, topic: ordersTopic,
			payload: func() any { return &OrderCreatedEvent{} },
		},
		enums.EventOrderStatusChanged: {
			aggregate: enums.AggregateOrder, topic: ordersTopic,
			payload: func() any { return &OrderStatusChangedEvent{} },
		},
		enums.EventOrderCancelled: {
			aggregate: enums.AggregateOrder, topic: ordersTopic,
			payload: func() any { return &OrderCancelledEvent{} },
		},
		enums.EventOrderPaymentUpdate: {
			aggregate: enums.AggregateOrder, topic: ordersTopic,
			payload: func() any { return &OrderPaymentUpdatedEvent{} },
		},
	}}
	return r, nil
}

// ResolvedEvent is a validated row ready for a broker.
type ResolvedEvent struct {
	Envelope PayloadEnvelope
	Payload  any
	Message  Message
}

// Resolve validates the row, decodes its typed payload and builds the broker message.
func (r *Registry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.aggregate != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.aggregate, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal([]byte(event.Payload), &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}
	payload := desc.payload()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Envelope: envelope,
		Payload:  payload,
		Message: Message{
			Topic: desc.topic,
			Key:   event.AggregateID.String(),
			Data:  []byte(event.Payload),
			Attributes: map[string]string{
				"event_id":       envelope.EventID,
				"event_type":     string(event.EventType),
				"aggregate_type": string(event.AggregateType),
				"aggregate_id":   event.AggregateID.String(),
				"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
			},
		},
	}, nil
}
