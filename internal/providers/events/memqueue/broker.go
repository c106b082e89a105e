// Package memqueue is an in-process event broker. Providers hosted in
// the same process coordinate through it directly; tests use it to
// model several provider instances sharing one event channel.
package memqueue

import (
	"context"
	"sync"

	"github.com/agentplane/agentplane/events"
)

var _ events.Publisher = (*Broker)(nil)

// Broker fans published events out to every subscription of the
// event's namespace. Each subscription buffers independently, so two
// replicas draining the same namespace each see every event.
type Broker struct {
	mu            sync.Mutex
	subscriptions map[string][]*Subscription
}

func NewBroker() *Broker {
	return &Broker{subscriptions: map[string][]*Subscription{}}
}

// Subscribe registers interest in a set of namespaces and returns the
// subscriber's private event source.
func (b *Broker) Subscribe(namespaces ...string) *Subscription {
	subscription := &Subscription{buffered: map[string][]events.ChangeEvent{}}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, namespace := range namespaces {
		b.subscriptions[namespace] = append(b.subscriptions[namespace], subscription)
	}
	return subscription
}

func (b *Broker) Publish(_ context.Context, event events.ChangeEvent) error {
	b.mu.Lock()
	subscribers := b.subscriptions[event.Namespace]
	b.mu.Unlock()

	for _, subscription := range subscribers {
		subscription.enqueue(event)
	}
	return nil
}

var _ events.Source = (*Subscription)(nil)

// Subscription is one subscriber's buffered view of the broker.
type Subscription struct {
	mu       sync.Mutex
	buffered map[string][]events.ChangeEvent
}

func (s *Subscription) enqueue(event events.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffered[event.Namespace] = append(s.buffered[event.Namespace], event)
}

// Dequeue drains everything buffered for the namespace.
func (s *Subscription) Dequeue(_ context.Context, namespace string) ([]events.ChangeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drained := s.buffered[namespace]
	delete(s.buffered, namespace)
	return drained, nil
}
