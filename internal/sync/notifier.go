package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/orderhub/backend-oms/internal/repo"
)

// Notifier enqueues ERP delivery tasks for emitted domain events. It plugs
// into the event bus; enqueue failures bubble up to the bus, which logs them
// without failing the originating request.
type Notifier struct {
	Client   *asynq.Client
	MaxRetry int
	Timeout  time.Duration
	Log      zerolog.Logger
}

// Notify schedules asynchronous delivery of the event to the ERP.
func (n Notifier) Notify(ctx context.Context, event repo.DomainEvent) error {
	if n.Client == nil {
		return nil
	}
	task, err := NewDeliveryTask(event.ID)
	if err != nil {
		return fmt.Errorf("sync: build delivery task: %w", err)
	}
	maxRetry := n.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 5
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	info, err := n.Client.EnqueueContext(ctx, task,
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(timeout),
		asynq.Queue("erp"),
	)
	if err != nil {
		return fmt.Errorf("sync: enqueue delivery: %w", err)
	}
	n.Log.Debug().Str("task_id", info.ID).Int64("event_id", event.ID).Msg("erp delivery enqueued")
	return nil
}
