package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orderhub/backend-oms/internal/events"
	"github.com/orderhub/backend-oms/internal/repo"
)

type stubStore struct {
	lastTopic   string
	lastPayload json.RawMessage
	nextID      int64
}

func (s *stubStore) Insert(_ context.Context, topic string, payload json.RawMessage) (int64, error) {
	s.lastTopic = topic
	s.lastPayload = payload
	s.nextID++
	return s.nextID, nil
}

type captureNotifier struct {
	events []repo.DomainEvent
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event repo.DomainEvent) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	payload := map[string]any{"order_id": "123"}
	event, err := bus.Emit(context.Background(), events.TopicOrderCreated, payload)
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderCreated, store.lastTopic)
	require.JSONEq(t, `{"order_id":"123"}`, string(store.lastPayload))
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, "123", decoded["order_id"])
}

func TestEmitRejectsInvalidPayload(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicOrderUpdated, json.RawMessage("{not json"))
	require.Error(t, err)
}

func TestEmitSurfacesNotifierFailureAfterPersist(t *testing.T) {
	store := &stubStore{}
	notifier := &captureNotifier{err: errors.New("queue down")}
	bus := events.Bus{Store: store, Notifiers: []events.Notifier{notifier}}

	event, err := bus.Emit(context.Background(), events.TopicOrderCleared, nil)
	require.Error(t, err)
	require.NotZero(t, event.ID, "event persists even when notification fails")
	require.Equal(t, events.TopicOrderCleared, store.lastTopic)
}
