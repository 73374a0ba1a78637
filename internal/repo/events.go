package repo

import (
	"context"
	"encoding/json"
	"time"
)

// DomainEvent is an outbox row recording a state change awaiting ERP delivery.
type DomainEvent struct {
	ID          int64           `json:"id"`
	Topic       string          `json:"topic"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"`
}

// EventRepo persists the domain event outbox.
type EventRepo struct {
	DB DB
}

// Insert appends an event and returns its id.
func (r EventRepo) Insert(ctx context.Context, topic string, payload json.RawMessage) (int64, error) {
	var id int64
	err := r.DB.QueryRow(ctx,
		"INSERT INTO domain_events (topic, payload) VALUES ($1, $2) RETURNING id",
		topic, payload).Scan(&id)
	return id, mapError(err)
}

// Get fetches a single event by id.
func (r EventRepo) Get(ctx context.Context, id int64) (DomainEvent, error) {
	var e DomainEvent
	err := r.DB.QueryRow(ctx,
		"SELECT id, topic, payload, created_at, delivered_at FROM domain_events WHERE id = $1", id,
	).Scan(&e.ID, &e.Topic, &e.Payload, &e.CreatedAt, &e.DeliveredAt)
	return e, mapError(err)
}

// MarkDelivered stamps the event as delivered to the ERP.
func (r EventRepo) MarkDelivered(ctx context.Context, id int64) error {
	tag, err := r.DB.Exec(ctx,
		"UPDATE domain_events SET delivered_at = now() WHERE id = $1 AND delivered_at IS NULL", id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUndelivered returns the oldest undelivered events up to limit.
func (r EventRepo) ListUndelivered(ctx context.Context, limit int) ([]DomainEvent, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, topic, payload, created_at, delivered_at
		FROM domain_events
		WHERE delivered_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []DomainEvent
	for rows.Next() {
		var e DomainEvent
		if err := rows.Scan(&e.ID, &e.Topic, &e.Payload, &e.CreatedAt, &e.DeliveredAt); err != nil {
			return nil, mapError(err)
		}
		events = append(events, e)
	}
	return events, mapError(rows.Err())
}
