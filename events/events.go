package events

import (
	"sync"
)

// EventHandler defines a function type where its input type is the generic type.
type EventHandler[T any] func(T) error

// subscription wraps an EventHandler with a flag describing whether it should be removed after it is first invoked.
type subscription[T any] struct {
	handler EventHandler[T]
	once    bool
}

// EventEmitter describes a provider which can subscribe EventHandler methods for callback when the event type (generic)
// is published. It additionally provides methods for publishing events.
type EventEmitter[T any] struct {
	// subscriptions defines the EventHandler methods which should be invoked when a new event is published to this
	// emitter.
	subscriptions []subscription[T]

	// subscriptionsLock provides thread synchronization when subscribing and publishing concurrently.
	subscriptionsLock sync.Mutex
}

// Subscribe adds an EventHandler to the list of subscribed EventHandler objects for this emitter. When an event is
// published, the callback will be triggered with the event data.
func (e *EventEmitter[T]) Subscribe(callback EventHandler[T]) {
	e.subscriptionsLock.Lock()
	defer e.subscriptionsLock.Unlock()
	e.subscriptions = append(e.subscriptions, subscription[T]{handler: callback})
}

// SubscribeOnce adds an EventHandler which is invoked for the next published event only, after which it is removed
// from the emitter.
func (e *EventEmitter[T]) SubscribeOnce(callback EventHandler[T]) {
	e.subscriptionsLock.Lock()
	defer e.subscriptionsLock.Unlock()
	e.subscriptions = append(e.subscriptions, subscription[T]{handler: callback, once: true})
}

// SubscriptionCount returns the amount of handlers currently subscribed to the emitter.
func (e *EventEmitter[T]) SubscriptionCount() int {
	e.subscriptionsLock.Lock()
	defer e.subscriptionsLock.Unlock()
	return len(e.subscriptions)
}

// Publish emits the provided event by calling every EventHandler subscribed. One-shot handlers are detached before
// they are invoked, so a handler which publishes again will not observe itself. Every handler is called even if an
// earlier one fails; the first error encountered is returned.
func (e *EventEmitter[T]) Publish(event T) error {
	// Snapshot our subscriptions and drop one-shot handlers while holding the lock.
	e.subscriptionsLock.Lock()
	current := e.subscriptions
	remaining := make([]subscription[T], 0, len(current))
	for _, s := range current {
		if !s.once {
			remaining = append(remaining, s)
		}
	}
	e.subscriptions = remaining
	e.subscriptionsLock.Unlock()

	// Call every subscribed EventHandler
	var firstErr error
	for _, s := range current {
		if err := s.handler(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
