package publisher

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	ierr "github.com/subcycle/subcycle/internal/errors"
	"github.com/subcycle/subcycle/internal/logger"
	"github.com/subcycle/subcycle/internal/pubsub"
	"github.com/subcycle/subcycle/internal/types"
)

// EventPublisher emits domain events for downstream consumers (order
// state machines, notifications, audit). Events are fire-and-observe:
// consumers must tolerate redelivery.
type EventPublisher interface {
	PublishTransactionReceived(ctx context.Context, event *types.TransactionReceivedEvent) error
	PublishSubscriptionUpdated(ctx context.Context, event *types.SubscriptionUpdatedEvent) error
}

type eventPublisher struct {
	pubSub pubsub.Publisher
	logger *logger.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(pubSub pubsub.PubSub, logger *logger.Logger) EventPublisher {
	return &eventPublisher{
		pubSub: pubSub,
		logger: logger,
	}
}

func (p *eventPublisher) PublishTransactionReceived(ctx context.Context, event *types.TransactionReceivedEvent) error {
	return p.publish(ctx, string(types.EventTransactionReceived), event.EventID, event)
}

func (p *eventPublisher) PublishSubscriptionUpdated(ctx context.Context, event *types.SubscriptionUpdatedEvent) error {
	return p.publish(ctx, string(event.EventName), types.GenerateUUIDWithPrefix(types.IDPrefixEvent), event)
}

func (p *eventPublisher) publish(ctx context.Context, eventName, eventID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode domain event").
			WithReportableDetails(map[string]any{
				"event_name": eventName,
			}).
			Mark(ierr.ErrSystem)
	}

	msg := message.NewMessage(eventID, data)
	msg.Metadata.Set("event_name", eventName)

	p.logger.Debugw("publishing domain event",
		"event_name", eventName,
		"event_id", eventID,
	)

	return p.pubSub.Publish(ctx, types.TopicDomainEvents, msg)
}
