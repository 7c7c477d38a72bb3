package hooks

import (
	"errors"
	"sync"
)

type (
	// Bus fans events out to every registered subscriber. Unlike the agent
	// runtime's hook bus, delivery here is fire-and-forget: the
	// engine never awaits a subscriber and a subscriber error never halts
	// event processing, since the aggregator must never block on I/O.
	Bus interface {
		// Publish delivers the event to every currently registered
		// subscriber; the delivery order is not defined. Subscriber errors are not
		// propagated to the publisher; they are swallowed so that one
		// misbehaving consumer cannot stall the engine.
		Publish(event Event)

		// Register adds a subscriber and returns a Subscription that can be
		// closed to unregister it. Register returns an error if sub is nil.
		Register(sub Subscriber) (Subscription, error)
	}

	// Subscriber reacts to published events.
	Subscriber interface {
		HandleEvent(event Event)
	}

	// SubscriberFunc adapts a plain function to the Subscriber interface.
	SubscriberFunc func(Event)

	// Subscription represents an active registration on a Bus. Close is
	// idempotent and safe to call multiple times.
	Subscription interface {
		Close() error
	}

	bus struct {
		mu          sync.RWMutex
		subscribers map[*subscription]Subscriber
	}

	subscription struct {
		bus  *bus
		once sync.Once
	}
)

// HandleEvent calls f(event).
func (f SubscriberFunc) HandleEvent(event Event) { f(event) }

// NewBus constructs an empty, ready-to-use event bus.
func NewBus() Bus {
	return &bus{subscribers: make(map[*subscription]Subscriber)}
}

// Publish delivers event to every subscriber registered at call time. The
// subscriber snapshot is taken under a read lock so concurrent
// Register/Close calls never race with delivery.
func (b *bus) Publish(event Event) {
	b.mu.RLock()
	subs := make([]Subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		func() {
			// A panicking subscriber is recovered so the others still run.
			defer func() { _ = recover() }()
			sub.HandleEvent(event)
		}()
	}
}

// Register adds sub to the bus and returns a Subscription handle.
func (b *bus) Register(sub Subscriber) (Subscription, error) {
	if sub == nil {
		return nil, errors.New("hooks: subscriber is required")
	}
	s := &subscription{bus: b}
	b.mu.Lock()
	b.subscribers[s] = sub
	b.mu.Unlock()
	return s, nil
}

// Close removes the subscriber from the bus. Idempotent.
func (s *subscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subscribers, s)
		s.bus.mu.Unlock()
	})
	return nil
}
