// Package registry binds every outbox event type to its aggregate, topic and
// payload type, and decodes rows and delivered messages through that table.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row or message that will never decode; callers
// dead-letter or drop it instead of retrying.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func permanent(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

func describe[T any](eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType) EventDescriptor {
	return EventDescriptor{
		EventType:      eventType,
		AggregateType:  aggregate,
		PayloadFactory: func() any { return new(T) },
	}
}

// NewEventRegistry routes every marketplace event to the domain topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, errors.New("domain topic is required")
	}
	descriptors := []EventDescriptor{
		describe[payloads.OrderRequestCreatedEvent](enums.EventOrderRequestCreated, enums.AggregateOrderRequest),
		describe[payloads.OrderRequestDeclinedEvent](enums.EventOrderRequestDeclined, enums.AggregateOrderRequest),
		describe[payloads.PaymentConfirmedEvent](enums.EventPaymentConfirmed, enums.AggregateOrderRequest),
		describe[payloads.OfferSubmittedEvent](enums.EventOfferSubmitted, enums.AggregateOffer),
		describe[payloads.OfferAcceptedEvent](enums.EventOfferAccepted, enums.AggregateOffer),
		describe[payloads.OfferCompletedEvent](enums.EventOfferCompleted, enums.AggregateOffer),
		describe[payloads.DisputeEvent](enums.EventDisputeOpened, enums.AggregateDispute),
		describe[payloads.DisputeEvent](enums.EventDisputeUpdated, enums.AggregateDispute),
		describe[payloads.DisputeEvent](enums.EventDisputeClosed, enums.AggregateDispute),
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, d := range descriptors {
		d.Topic = cfg.DomainTopic
		reg.entries[d.EventType] = d
	}
	return reg, nil
}

func (r *EventRegistry) Descriptor(eventType enums.OutboxEventType) (EventDescriptor, bool) {
	d, ok := r.entries[eventType]
	return d, ok
}

// Resolve checks the row against its descriptor and decodes the typed payload.
// Every failure is permanent: the same bytes will fail the same way again.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	d, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, permanent("unsupported event type %s", event.EventType)
	case d.AggregateType != event.AggregateType:
		return nil, permanent("aggregate mismatch: expected %s got %s", d.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, permanent("missing aggregate_id")
	}

	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(err)
	}
	payload := d.PayloadFactory()
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, permanent("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: d, Envelope: env, Payload: payload}, nil
}
