package types

import (
	"encoding/json"
	"time"
)

// Topic names for the in-process message router.
const (
	TopicInboundWebhooks = "gateway_webhooks"
	TopicDomainEvents    = "domain_events"
)

// DomainEventName identifies the kind of a published domain event.
type DomainEventName string

const (
	EventTransactionReceived DomainEventName = "transaction.received"
	EventSubscriptionCreated DomainEventName = "subscription.created"
	EventSubscriptionUpdated DomainEventName = "subscription.updated"
	EventSubscriptionDeleted DomainEventName = "subscription.deleted"
)

// TransactionReceivedEvent is emitted by the webhook reconciler, exactly once
// per (webhook event id, order line) pair. The order-management component
// reacts to it by settling or failing the order line.
type TransactionReceivedEvent struct {
	EventID       string          `json:"event_id"`
	Status        string          `json:"status"`
	TransactionID string          `json:"transaction_id"`
	ScheduleID    string          `json:"schedule_id,omitempty"`
	OrderID       string          `json:"order_id"`
	OrderCode     string          `json:"order_code"`
	OrderLineID   string          `json:"order_line_id"`
	CustomerID    string          `json:"customer_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerEmail string          `json:"customer_email"`
	RawPayload    json.RawMessage `json:"raw_payload"`
	ReceivedAt    time.Time       `json:"received_at"`
}

// SubscriptionUpdatedEvent is emitted when a recurring schedule is created,
// patched, or cancelled through this system.
type SubscriptionUpdatedEvent struct {
	EventName  DomainEventName `json:"event_name"`
	ScheduleID string          `json:"schedule_id"`
	Input      map[string]any  `json:"input,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
