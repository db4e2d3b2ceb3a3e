package event

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Handler receives published events. Handlers run on the publisher's goroutine;
// UI code should hand the event over to its own loop (tea.Program.Send, glib.IdleAdd).
type Handler func(Event)

type subscription struct {
	id      uint64
	names   []Name // empty = every event
	handler Handler
}

func (s *subscription) wants(n Name) bool {
	return len(s.names) == 0 || slices.Contains(s.names, n)
}

// Bus fans backend events out to subscribers by name.
type Bus struct {
	mu     sync.RWMutex
	logger *slog.Logger
	subs   []*subscription
	nextID uint64
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers handler for the given event names, or for every event when
// no names are given. The returned func removes the subscription and is safe to
// call more than once.
func (b *Bus) Subscribe(handler Handler, names ...Name) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	sub := &subscription{id: b.nextID, names: slices.Clone(names), handler: handler}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.subs = slices.DeleteFunc(b.subs, func(s *subscription) bool {
				return s.id == sub.id
			})
		})
	}
}

// Publish delivers e to every matching subscriber in registration order.
// A panicking handler is logged and does not affect the others.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	targets := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(e.Name) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		b.logger.Debug("event has no subscribers", "event", e.Name)
		return
	}

	for _, s := range targets {
		b.deliver(s, e)
	}
}

func (b *Bus) deliver(s *subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", e.Name, "panic", r)
		}
	}()
	s.handler(e)
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// listenBuffer is the channel capacity used by Listen.
const listenBuffer = 64

// Listen returns a channel carrying matching events until ctx is done, at which
// point the subscription is removed and the channel closed. Once the buffer is
// full the publisher blocks until the reader catches up or ctx ends.
func (b *Bus) Listen(ctx context.Context, names ...Name) <-chan Event {
	ch := make(chan Event, listenBuffer)

	var (
		mu     sync.Mutex
		closed bool
	)
	unsubscribe := b.Subscribe(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		case <-ctx.Done():
		}
	}, names...)

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch
}
