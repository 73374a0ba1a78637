package sync

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TypeERPDelivery is the asynq task type for ERP event delivery.
const TypeERPDelivery = "erp:deliver_event"

type deliveryPayload struct {
	EventID int64 `json:"event_id"`
}

// NewDeliveryTask builds an asynq task carrying the outbox event id.
func NewDeliveryTask(eventID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(deliveryPayload{EventID: eventID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeERPDelivery, payload), nil
}
