package app

import (
	"sync"
	"sync/atomic"

	"github.com/yourusername/ytfetch/internal/domain"
)

// EventBus fans events out to any number of subscribers. Publish never
// blocks. When a subscriber's buffer is full a progress event is dropped,
// while any other event evicts the oldest queued one so that log lines,
// attempt results and the final event still arrive.
type EventBus struct {
	mu      sync.RWMutex
	subs    map[int]chan domain.Event
	nextID  int
	dropped atomic.Uint64
}

// NewEventBus creates an empty bus
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]chan domain.Event)}
}

// Subscribe registers a subscriber with the given buffer size. The
// returned function unsubscribes and closes the channel.
func (b *EventBus) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan domain.Event, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish implements domain.EventSink
func (b *EventBus) Publish(e domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- e:
			continue
		default:
		}

		b.dropped.Add(1)
		if e.Kind == domain.EventProgress {
			continue
		}

		// Make room and retry once; a concurrent publisher may refill it.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of active subscribers
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber
// was not keeping up
func (b *EventBus) Dropped() uint64 {
	return b.dropped.Load()
}
