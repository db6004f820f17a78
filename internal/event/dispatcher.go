package event

import (
	"log/slog"
	"sync"
)

// Handler processes one published event.
type Handler func(Event)

// SubscriptionID identifies a subscription for later removal.
type SubscriptionID uint64

type subscriber struct {
	id SubscriptionID
	fn Handler
}

// Dispatcher is a typed publish/subscribe bus. Publish invokes handlers
// synchronously in subscription order; a panicking handler is isolated
// and logged so the remaining handlers still run. Events are not
// persisted: a subscriber added after a publish never sees it.
type Dispatcher struct {
	mu     sync.Mutex
	nextID SubscriptionID
	subs   map[Type][]subscriber
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[Type][]subscriber)}
}

// Subscribe registers a handler for an event type.
func (d *Dispatcher) Subscribe(t Type, h Handler) SubscriptionID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.subs[t] = append(d.subs[t], subscriber{id: d.nextID, fn: h})
	return d.nextID
}

// Unsubscribe removes a previously registered handler.
func (d *Dispatcher) Unsubscribe(t Type, id SubscriptionID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs := d.subs[t]
	for i, s := range subs {
		if s.id == id {
			d.subs[t] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers an event to all current subscribers of its type, in
// subscription order, on the caller's goroutine.
func (d *Dispatcher) Publish(ev Event) {
	d.mu.Lock()
	subs := d.subs[ev.GetType()]
	snapshot := make([]subscriber, len(subs))
	copy(snapshot, subs)
	d.mu.Unlock()

	for _, s := range snapshot {
		invoke(s.fn, ev)
	}
}

// invoke isolates handler panics so one bad subscriber cannot starve
// the others or crash the session loop.
func invoke(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Event handler panicked",
				slog.String("event", string(ev.GetType())), slog.Any("panic", r))
		}
	}()
	h(ev)
}
