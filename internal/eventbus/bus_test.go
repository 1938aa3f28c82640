package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type testEvent struct {
	value int
}

type otherEvent struct {
	name string
}

func TestPublishReachesSubscribersInOrder(t *testing.T) {
	bus := New()

	var received []int
	Subscribe(bus, func(event testEvent) {
		received = append(received, event.value)
	})
	Subscribe(bus, func(event testEvent) {
		received = append(received, event.value*10)
	})

	Publish(bus, testEvent{value: 7})

	assert.Equal(t, []int{7, 70}, received)
}

func TestPublishIgnoresOtherEventTypes(t *testing.T) {
	bus := New()

	calls := 0
	Subscribe(bus, func(event testEvent) {
		calls++
	})

	Publish(bus, otherEvent{name: "unrelated"})

	assert.Zero(t, calls)
}

func TestCloseUnsubscribes(t *testing.T) {
	bus := New()

	calls := 0
	sub := Subscribe(bus, func(event testEvent) {
		calls++
	})

	Publish(bus, testEvent{})
	sub.Close()
	Publish(bus, testEvent{})

	assert.Equal(t, 1, calls)
}

func TestCloseIsIdempotent(t *testing.T) {
	bus := New()

	kept := 0
	sub := Subscribe(bus, func(event testEvent) {})
	Subscribe(bus, func(event testEvent) {
		kept++
	})

	sub.Close()
	sub.Close()
	Publish(bus, testEvent{})

	assert.Equal(t, 1, kept)
}

func TestNilSubscriptionCloseIsSafe(t *testing.T) {
	var sub *Subscription
	assert.NotPanics(t, func() {
		sub.Close()
	})
}
