package testutil

import (
	"context"
	"sync"

	"github.com/subcycle/subcycle/internal/publisher"
	"github.com/subcycle/subcycle/internal/types"
)

// InMemoryEventPublisher records published domain events for assertions.
type InMemoryEventPublisher struct {
	mu           sync.RWMutex
	transactions []*types.TransactionReceivedEvent
	updates      []*types.SubscriptionUpdatedEvent

	// FailNext makes the next publish call fail.
	FailNext error
}

var _ publisher.EventPublisher = (*InMemoryEventPublisher)(nil)

// NewInMemoryEventPublisher creates an empty recording publisher.
func NewInMemoryEventPublisher() *InMemoryEventPublisher {
	return &InMemoryEventPublisher{}
}

func (p *InMemoryEventPublisher) PublishTransactionReceived(ctx context.Context, event *types.TransactionReceivedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailNext != nil {
		err := p.FailNext
		p.FailNext = nil
		return err
	}
	p.transactions = append(p.transactions, event)
	return nil
}

func (p *InMemoryEventPublisher) PublishSubscriptionUpdated(ctx context.Context, event *types.SubscriptionUpdatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailNext != nil {
		err := p.FailNext
		p.FailNext = nil
		return err
	}
	p.updates = append(p.updates, event)
	return nil
}

// TransactionEvents returns all recorded transaction events.
func (p *InMemoryEventPublisher) TransactionEvents() []*types.TransactionReceivedEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*types.TransactionReceivedEvent{}, p.transactions...)
}

// SubscriptionEvents returns all recorded subscription update events.
func (p *InMemoryEventPublisher) SubscriptionEvents() []*types.SubscriptionUpdatedEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*types.SubscriptionUpdatedEvent{}, p.updates...)
}

// Clear removes all recorded events.
func (p *InMemoryEventPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transactions = nil
	p.updates = nil
}
