// Package feed broadcasts full snapshots to any number of subscribers.
//
// Each subscriber has a one-slot buffer. A snapshot published while the
// previous one is still unread replaces it, so slow readers only ever see
// the latest value and publishers never block.
package feed

import "sync"

// Feed is a latest-wins broadcast of values of type T.
type Feed[T any] struct {
	mu      sync.Mutex
	subs    map[int]chan T
	nextID  int
	last    T
	hasLast bool
	closed  bool
}

// New creates an empty feed.
func New[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[int]chan T)}
}

// Subscribe registers a subscriber. If a value has been published already
// it is delivered immediately. The returned cancel func closes the channel
// and may be called more than once. Subscribing to a closed feed returns a
// closed channel.
func (f *Feed[T]) Subscribe() (<-chan T, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan T, 1)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	if f.hasLast {
		ch <- f.last
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	return ch, func() { f.unsubscribe(id) }
}

func (f *Feed[T]) unsubscribe(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ch, ok := f.subs[id]; ok {
		delete(f.subs, id)
		close(ch)
	}
}

// Publish delivers v to every subscriber, replacing any unread value.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.last, f.hasLast = v, true
	for _, ch := range f.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Subscribers reports the number of live subscriptions.
func (f *Feed[T]) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close ends every subscription. Later publishes are dropped.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
