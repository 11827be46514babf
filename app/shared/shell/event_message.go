package shell

import (
	"errors"

	jsoniter "github.com/json-iterator/go"

	"github.com/contacorrente/ledger/app/shared/core"
)

var (
	// ErrMappingToEventMessageFailed is returned when domain event serialization fails.
	ErrMappingToEventMessageFailed = errors.New("mapping to event message failed")

	// ErrMappingToDomainEventFailed is returned when domain event conversion fails.
	ErrMappingToDomainEventFailed = errors.New("mapping to domain event failed")

	// ErrMappingToDomainEventUnknownEventType is returned for unrecognized event types.
	ErrMappingToDomainEventUnknownEventType = errors.New("unknown event type")
)

// EventMessage is a serialized domain event, ready to be handed to a message broker.
// Key groups messages of the same account.
type EventMessage struct {
	Key       string
	EventType string
	Payload   []byte
}

// EventMessageFrom serializes a MovementPosted event.
func EventMessageFrom(event core.MovementPosted) (EventMessage, error) {
	payload, err := jsoniter.ConfigFastest.Marshal(event)
	if err != nil {
		return EventMessage{}, errors.Join(ErrMappingToEventMessageFailed, err)
	}

	return EventMessage{
		Key:       event.AccountID,
		EventType: event.IsEventType(),
		Payload:   payload,
	}, nil
}

// DomainEventFrom converts an EventMessage back into its domain event.
func DomainEventFrom(message EventMessage) (core.DomainEvent, error) {
	switch message.EventType {
	case core.MovementPostedEventType:
		payload := new(core.MovementPosted)

		if err := jsoniter.ConfigFastest.Unmarshal(message.Payload, payload); err != nil {
			return nil, errors.Join(ErrMappingToDomainEventFailed, err)
		}

		return *payload, nil

	default:
		return nil, errors.Join(ErrMappingToDomainEventFailed, ErrMappingToDomainEventUnknownEventType)
	}
}
