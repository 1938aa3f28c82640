// Package eventbus provides a small typed publish/subscribe bus. It replaces
// ad-hoc per-event observer registries with one abstraction: subscribers
// register a handler for a concrete event type and receive a Subscription
// whose Close unregisters it.
package eventbus

import (
	"reflect"
	"sync"
)

type subscriber struct {
	id      uint64
	deliver func(any)
}

// Bus routes published events to the subscribers registered for the event's
// concrete type. Publishing is synchronous: handlers run on the publishing
// goroutine in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[reflect.Type][]subscriber
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[reflect.Type][]subscriber)}
}

// Subscription identifies one registered handler. Closing it unregisters the
// handler; Close is idempotent and safe to call concurrently.
type Subscription struct {
	bus  *Bus
	kind reflect.Type
	id   uint64
	once sync.Once
}

// Close unregisters the handler.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.kind, s.id)
	})
}

// Subscribe registers handler for events of type T.
func Subscribe[T any](b *Bus, handler func(T)) *Subscription {
	kind := reflect.TypeOf((*T)(nil)).Elem()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := subscriber{
		id: b.nextID,
		deliver: func(event any) {
			handler(event.(T))
		},
	}
	b.subs[kind] = append(b.subs[kind], sub)

	return &Subscription{bus: b, kind: kind, id: sub.id}
}

// Publish delivers event to every handler subscribed to its type.
func Publish[T any](b *Bus, event T) {
	kind := reflect.TypeOf((*T)(nil)).Elem()

	b.mu.RLock()
	subs := make([]subscriber, len(b.subs[kind]))
	copy(subs, b.subs[kind])
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(event)
	}
}

func (b *Bus) remove(kind reflect.Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[kind]
	for i, sub := range subs {
		if sub.id == id {
			b.subs[kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}
