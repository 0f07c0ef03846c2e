// Package bus implements the warroom broadcast stream: a single
// producer-side Publish fanned out to every current subscriber.
//
// Delivery contract: each subscriber owns a bounded buffer (default
// capacity 256). Events arrive in publish order, but a subscriber
// that falls more than the buffer size behind silently loses the
// OLDEST events it has not consumed: at-most-once, best-effort
// delivery. The drop policy is part of this package's contract, not
// an implementation accident; observers needing full history must
// keep up or resynchronize from a session_loaded snapshot.
package bus

import (
	"sync"

	"github.com/warroomhq/warroom/pkg/event"
)

// DefaultCapacity is the per-subscriber buffer size.
const DefaultCapacity = 256

// Bus is a broadcast channel over wire events. Safe for concurrent
// use by any number of publishers and subscribers.
type Bus struct {
	mu        sync.Mutex
	subs      map[uint64]chan event.Event
	nextID    uint64
	capacity  int
	onDrop    func(event.Event)
	onPublish func(event.Event)
}

// Option configures the Bus.
type Option func(*Bus)

// WithCapacity overrides the per-subscriber buffer capacity.
func WithCapacity(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// WithDropHandler installs a callback invoked once per dropped event,
// used for metrics. The callback runs under the bus lock and must not
// call back into the bus.
func WithDropHandler(fn func(event.Event)) Option {
	return func(b *Bus) {
		b.onDrop = fn
	}
}

// WithPublishHandler installs a callback invoked once per published
// event, used for metrics. Same restriction as WithDropHandler: it
// runs under the bus lock and must not call back into the bus.
func WithPublishHandler(fn func(event.Event)) Option {
	return func(b *Bus) {
		b.onPublish = fn
	}
}

// New creates a broadcast bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:     make(map[uint64]chan event.Event),
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscription is one subscriber's view of the stream. Receive from C;
// call Cancel exactly once when done. C is closed by Cancel.
type Subscription struct {
	C      <-chan event.Event
	cancel func()
}

// Cancel detaches the subscription and closes C. Safe to call once.
func (s *Subscription) Cancel() {
	s.cancel()
}

// Subscribe attaches a new subscriber. The subscriber sees only
// events published after this call.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan event.Event, b.capacity)
	b.subs[id] = ch

	return &Subscription{
		C: ch,
		cancel: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		},
	}
}

// Publish broadcasts e to every current subscriber. Never blocks: a
// full subscriber buffer sheds its oldest event to make room.
func (b *Bus) Publish(e event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.onPublish != nil {
		b.onPublish(e)
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
			continue
		default:
		}

		// Buffer full: shed the oldest event, then retry. The receiver
		// may have drained concurrently, so both selects stay
		// non-blocking.
		select {
		case dropped := <-ch:
			if b.onDrop != nil {
				b.onDrop(dropped)
			}
		default:
		}
		select {
		case ch <- e:
		default:
			if b.onDrop != nil {
				b.onDrop(e)
			}
		}
	}
}

// SubscriberCount returns the number of attached subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
