package events

// Topic constants for domain events emitted by the order service.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderUpdated       = "order.updated"
	TopicOrderCleared       = "order.cleared"
	TopicOrderStatusChanged = "order.status_changed"
	TopicReturnCreated      = "order.return_created"
)

// DefaultTopics returns the canonical list of topics delivered to the ERP.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderUpdated,
		TopicOrderCleared,
		TopicOrderStatusChanged,
		TopicReturnCreated,
	}
}
