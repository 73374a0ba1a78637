package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/orderhub/backend-oms/internal/obs"
	"github.com/orderhub/backend-oms/internal/repo"
	"github.com/orderhub/backend-oms/internal/resilience"
)

type eventSource interface {
	Get(ctx context.Context, id int64) (repo.DomainEvent, error)
	MarkDelivered(ctx context.Context, id int64) error
	ListUndelivered(ctx context.Context, limit int) ([]repo.DomainEvent, error)
}

type enqueuer interface {
	Notify(ctx context.Context, event repo.DomainEvent) error
}

// Dispatcher delivers outbox events to the configured ERP endpoint. It runs
// inside the asynq worker; a failed delivery returns an error so asynq applies
// its retry schedule, and the local order state is never touched.
type Dispatcher struct {
	Events   eventSource
	HTTP     resilience.HTTPClient
	Endpoint string
	Log      zerolog.Logger
}

type erpEnvelope struct {
	ID        int64           `json:"id"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// HandleDelivery processes one erp:deliver_event task.
func (d Dispatcher) HandleDelivery(ctx context.Context, task *asynq.Task) error {
	var p deliveryPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		// malformed payloads cannot succeed on retry
		return fmt.Errorf("sync: decode task payload: %v: %w", err, asynq.SkipRetry)
	}
	event, err := d.Events.Get(ctx, p.EventID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("sync: event %d missing: %w", p.EventID, asynq.SkipRetry)
		}
		return fmt.Errorf("sync: load event %d: %w", p.EventID, err)
	}
	if event.DeliveredAt != nil {
		return nil
	}

	start := time.Now()
	err = d.deliver(ctx, event)
	result := "ok"
	if err != nil {
		result = "error"
	}
	if obs.ERPSyncTotal != nil {
		obs.ERPSyncTotal.WithLabelValues(result).Inc()
	}
	if obs.ERPSyncLatency != nil {
		obs.ERPSyncLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
	if err != nil {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried >= maxRetry && obs.ERPSyncDLQ != nil {
			obs.ERPSyncDLQ.Inc()
		}
		d.Log.Warn().Err(err).Int64("event_id", event.ID).Str("topic", event.Topic).Msg("erp delivery failed")
		return err
	}
	if err := d.Events.MarkDelivered(ctx, event.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("sync: mark delivered: %w", err)
	}
	d.Log.Info().Int64("event_id", event.ID).Str("topic", event.Topic).Msg("erp delivery ok")
	return nil
}

func (d Dispatcher) deliver(ctx context.Context, event repo.DomainEvent) error {
	body, err := json.Marshal(erpEnvelope{
		ID:        event.ID,
		Topic:     event.Topic,
		Payload:   event.Payload,
		CreatedAt: event.CreatedAt,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.HTTP.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sync: erp responded %s", resp.Status)
	}
	return nil
}

// Sweep re-enqueues undelivered outbox rows. It backstops notifier failures:
// an event whose enqueue was lost still reaches the ERP on the next sweep.
func (d Dispatcher) Sweep(ctx context.Context, enqueue enqueuer, limit int) error {
	if limit <= 0 {
		limit = 100
	}
	events, err := d.Events.ListUndelivered(ctx, limit)
	if err != nil {
		return fmt.Errorf("sync: list undelivered: %w", err)
	}
	var joined error
	for _, event := range events {
		if err := enqueue.Notify(ctx, event); err != nil {
			joined = errors.Join(joined, err)
		}
	}
	return joined
}
