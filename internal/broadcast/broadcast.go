// Package broadcast implements a small value-multicast primitive: one
// publisher, many independent subscribers, each with its own buffered
// channel. A sticky broadcaster additionally replays the last published
// value to new subscribers at subscribe time, so observers always start
// from the current state.
package broadcast

import (
	"context"
	"sync"
)

const subscriberBuffer = 64

// Broadcaster fans out published values to all active subscribers.
// The zero value is not usable; construct with New or NewSticky.
type Broadcaster[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int

	sticky  bool
	last    T
	hasLast bool
}

// New returns a broadcaster that delivers only values published after
// subscription (event semantics, no replay).
func New[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[int]chan T)}
}

// NewSticky returns a broadcaster that seeds every new subscriber with
// the last published value, if any (state semantics).
func NewSticky[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subs: make(map[int]chan T), sticky: true}
}

// Publish delivers v to every subscriber in order. A subscriber that has
// fallen subscriberBuffer values behind loses its oldest buffered value;
// the publisher never blocks.
func (b *Broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sticky {
		b.last = v
		b.hasLast = true
	}
	for _, ch := range b.subs {
		b.send(ch, v)
	}
}

// send runs with b.mu held; only Publish/Subscribe write to sub channels,
// so freeing one slot guarantees the second send succeeds.
func (b *Broadcaster[T]) send(ch chan T, v T) {
	select {
	case ch <- v:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Subscribe registers a new subscriber. The returned channel receives the
// current value first (sticky mode, already buffered on return), then
// every subsequent Publish in order. Cancelling ctx tears down only this
// subscription; the channel is closed and other subscribers are
// unaffected.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	if b.sticky && b.hasLast {
		ch <- b.last
	}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.unsubscribe(id)
	}()

	return ch
}

// unsubscribe is idempotent and side-effect-free on publisher state.
func (b *Broadcaster[T]) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(ch)
}

// Close tears down every subscription. Publishing after Close is a no-op
// for the closed subscribers.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
