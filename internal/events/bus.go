package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/orderhub/backend-oms/internal/repo"
)

// EventStore defines the persistence operations required by the event bus.
type EventStore interface {
	Insert(ctx context.Context, topic string, payload json.RawMessage) (int64, error)
}

// Notifier reacts to emitted events, typically by enqueueing ERP delivery.
// Notifier failures never fail the emit: local state is already committed and
// the outbox row survives for a later sweep.
type Notifier interface {
	Notify(ctx context.Context, event repo.DomainEvent) error
}

// Bus persists domain events and fans them out to downstream handlers.
type Bus struct {
	Store     EventStore
	Notifiers []Notifier
}

// Emit records the event and dispatches it to all configured notifiers.
func (b *Bus) Emit(ctx context.Context, topic string, payload any) (repo.DomainEvent, error) {
	if b == nil || b.Store == nil {
		return repo.DomainEvent{}, errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return repo.DomainEvent{}, errors.New("events: topic is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return repo.DomainEvent{}, fmt.Errorf("events: encode payload: %w", err)
	}
	id, err := b.Store.Insert(ctx, topic, encoded)
	if err != nil {
		return repo.DomainEvent{}, fmt.Errorf("events: persist event: %w", err)
	}
	ev := repo.DomainEvent{ID: id, Topic: topic, Payload: encoded}

	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, ev); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return ev, joined
}

func encodePayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return json.RawMessage("{}"), nil
	}
	switch v := payload.(type) {
	case []byte:
		if len(v) == 0 {
			return json.RawMessage("{}"), nil
		}
		if !json.Valid(v) {
			return nil, errors.New("payload is not valid json")
		}
		return append(json.RawMessage(nil), v...), nil
	case json.RawMessage:
		if len(v) == 0 {
			return json.RawMessage("{}"), nil
		}
		if !json.Valid(v) {
			return nil, errors.New("payload is not valid json")
		}
		return append(json.RawMessage(nil), v...), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return json.RawMessage("{}"), nil
		}
		data := json.RawMessage(v)
		if !json.Valid(data) {
			return nil, errors.New("payload is not valid json")
		}
		return data, nil
	default:
		return json.Marshal(v)
	}
}
