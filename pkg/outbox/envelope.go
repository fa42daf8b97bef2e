package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/enums"
)

// CurrentVersion is stamped on envelopes whose event leaves Version unset.
const CurrentVersion = 1

// ActorRef identifies who caused the event.
type ActorRef struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role,omitempty"`
}

// DomainEvent is what domain services hand to Emit. Data is marshalled into
// the envelope as is.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	if !e.EventType.IsValid() {
		return fmt.Errorf("invalid outbox event type %q", e.EventType)
	}
	if e.AggregateID == uuid.Nil {
		return errors.New("aggregate id required")
	}
	return nil
}

// PayloadEnvelope is the JSON document stored in outbox_events.payload and
// shipped to the broker unchanged.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func seal(e DomainEvent, now time.Time) (PayloadEnvelope, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("marshal event data: %w", err)
	}
	env := PayloadEnvelope{
		Version:    e.Version,
		EventID:    uuid.NewString(),
		OccurredAt: e.OccurredAt,
		Actor:      e.Actor,
		Data:       data,
	}
	if env.Version == 0 {
		env.Version = CurrentVersion
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = now.UTC()
	}
	return env, nil
}

// Message is what a broker adapter receives for one outbox row.
type Message struct {
	Topic      string
	Key        string
	Data       []byte
	Attributes map[string]string
}
