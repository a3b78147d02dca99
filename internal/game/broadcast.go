package game

import (
	"context"
	"sync"
)

// Broadcaster fans session events out to any number of subscribers.
// Slow subscribers miss events rather than stall the session.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	buffer int
}

func NewBroadcaster(buffer int) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[chan Event]struct{}),
		buffer: buffer,
	}
}

// Run forwards events until ctx is cancelled or events is closed.
func (b *Broadcaster) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			b.closeAll()
			return
		case event, ok := <-events:
			if !ok {
				b.closeAll()
				return
			}
			b.publish(event)
		}
	}
}

// Subscribe returns a channel of events and a function that releases it
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
}

func (b *Broadcaster) publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
