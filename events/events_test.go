package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestEventPublishingAndSubscribing creates EventEmitter objects, subscribes EventHandler callbacks to them, and
// ensures that the events are received as intended.
func TestEventPublishingAndSubscribing(t *testing.T) {
	// Define some event types
	type TestEventA struct{}
	type TestEventB struct{}

	// Create event emitters for both events.
	eventAEmitter := EventEmitter[TestEventA]{}
	eventBEmitter := EventEmitter[TestEventB]{}

	var eventAPublishCount, eventBPublishCount int
	eventAEmitter.Subscribe(func(event TestEventA) error {
		eventAPublishCount++
		return nil
	})
	eventBEmitter.Subscribe(func(event TestEventB) error {
		eventBPublishCount++
		return nil
	})

	// Publish events a given amount of times.
	const (
		expectedEventAPublishCount = 2
		expectedEventBPublishCount = 9
	)
	for i := 0; i < expectedEventAPublishCount; i++ {
		assert.NoError(t, eventAEmitter.Publish(TestEventA{}))
	}
	for i := 0; i < expectedEventBPublishCount; i++ {
		assert.NoError(t, eventBEmitter.Publish(TestEventB{}))
	}

	// Assert we received the expected amount of callbacks.
	assert.EqualValues(t, expectedEventAPublishCount, eventAPublishCount)
	assert.EqualValues(t, expectedEventBPublishCount, eventBPublishCount)
}

// TestSubscribeOnce ensures one-shot handlers fire for the first published event only.
func TestSubscribeOnce(t *testing.T) {
	type OutputReady struct{ Attempt int }
	emitter := EventEmitter[OutputReady]{}

	var seen []int
	emitter.SubscribeOnce(func(event OutputReady) error {
		seen = append(seen, event.Attempt)
		return nil
	})
	assert.Equal(t, 1, emitter.SubscriptionCount())

	assert.NoError(t, emitter.Publish(OutputReady{Attempt: 1}))
	assert.NoError(t, emitter.Publish(OutputReady{Attempt: 2}))

	assert.Equal(t, []int{1}, seen)
	assert.Equal(t, 0, emitter.SubscriptionCount())
}

// TestPublishReturnsFirstError ensures all handlers run even when one fails.
func TestPublishReturnsFirstError(t *testing.T) {
	type Event struct{}
	emitter := EventEmitter[Event]{}

	errFirst := errors.New("first")
	calls := 0
	emitter.Subscribe(func(Event) error { calls++; return errFirst })
	emitter.Subscribe(func(Event) error { calls++; return errors.New("second") })

	err := emitter.Publish(Event{})
	assert.ErrorIs(t, err, errFirst)
	assert.Equal(t, 2, calls)
}
