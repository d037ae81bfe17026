package app

import "sync"

// Bus is a minimal typed publish/subscribe fanout. It replaces single-slot
// callback properties: any number of listeners, explicit unsubscription.
// Publish runs listeners synchronously on the caller's goroutine.
type Bus[T any] struct {
	mu   sync.RWMutex
	subs map[int]func(T)
	next int
}

func NewBus[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[int]func(T))}
}

// Subscribe registers fn and returns its cancel function.
func (b *Bus[T]) Subscribe(fn func(T)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers v to every current subscriber.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	fns := make([]func(T), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(v)
	}
}

// Len reports the current subscriber count.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
