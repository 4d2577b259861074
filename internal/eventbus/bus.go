// Package eventbus implements the bounded, multi-producer/multi-consumer
// broadcast bus used to fan a session's BalanceEvent stream out to every
// attached SSE client. Each subscriber gets its own bounded channel; a full
// channel means a lagging receiver, and the send is dropped rather than
// blocking the publisher.
package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/limitofzero/balances-watcher/internal/domain"
)

// DefaultCapacity is the per-subscriber channel capacity.
const DefaultCapacity = 256

// Bus is a bounded broadcast channel for domain.BalanceEvent values.
type Bus struct {
	capacity int
	mu       sync.RWMutex
	subs     map[uint64]chan domain.BalanceEvent
	nextID   uint64
	dropped  atomic.Int64
}

// New creates a Bus with the default capacity.
func New() *Bus {
	return NewWithCapacity(DefaultCapacity)
}

func NewWithCapacity(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity: capacity,
		subs:     make(map[uint64]chan domain.BalanceEvent),
	}
}

// Subscribe registers a new receiver and returns its channel plus an
// unsubscribe function. The unsubscribe function is idempotent and safe to
// call multiple times.
func (b *Bus) Subscribe() (<-chan domain.BalanceEvent, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan domain.BalanceEvent, b.capacity)
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			if existing, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(existing)
			}
			b.mu.Unlock()
		})
	}

	return ch, unsubscribe
}

// Publish broadcasts an event to every current subscriber. A subscriber
// whose channel is full (lagging more than capacity events behind) has the
// event dropped for it; the publisher never blocks on a slow receiver.
// Returns the number of subscribers the event was dropped for.
func (b *Bus) Publish(event domain.BalanceEvent) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	b.dropped.Add(int64(dropped))
	return dropped
}

// Dropped returns the cumulative count of events dropped due to a lagging
// subscriber, for metrics.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// SubscriberCount returns the number of currently attached receivers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close disconnects every subscriber, closing their channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
