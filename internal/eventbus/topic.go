package eventbus

import (
	"fmt"
	"sync"
)

// PanicHandler is told about handler panics recovered during Publish.
type PanicHandler func(topic string, recovered any)

// Topic is a single typed event channel.
//
// Thread Safety:
//   - Subscribe, unsubscribe and Publish are safe for concurrent use.
//   - Handlers added or removed during a Publish take effect on the next Publish.
type Topic[T any] struct {
	name string

	mu       sync.RWMutex
	nextID   uint64
	handlers []subscription[T]
	onPanic  PanicHandler
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// NewTopic creates an empty topic. The name is used in panic reports.
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name}
}

// Name returns the topic name.
func (t *Topic[T]) Name() string {
	return t.name
}

// SetPanicHandler installs the function told about recovered handler panics.
func (t *Topic[T]) SetPanicHandler(h PanicHandler) {
	t.mu.Lock()
	t.onPanic = h
	t.mu.Unlock()
}

// Subscribe registers fn and returns a function that removes it.
// The returned function is idempotent.
func (t *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.handlers = append(t.handlers, subscription[T]{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.remove(id) })
	}
}

func (t *Topic[T]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.handlers {
		if s.id == id {
			// Copy so an in-flight Publish keeps its own snapshot intact.
			next := make([]subscription[T], 0, len(t.handlers)-1)
			next = append(next, t.handlers[:i]...)
			t.handlers = append(next, t.handlers[i+1:]...)
			return
		}
	}
}

// Publish delivers v to every current subscriber, in subscription order.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	handlers := t.handlers
	onPanic := t.onPanic
	t.mu.RUnlock()

	for _, s := range handlers {
		t.deliver(s.fn, v, onPanic)
	}
}

func (t *Topic[T]) deliver(fn func(T), v T, onPanic PanicHandler) {
	defer func() {
		if r := recover(); r != nil && onPanic != nil {
			onPanic(t.name, r)
		}
	}()
	fn(v)
}

// Len returns the number of current subscribers.
func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handlers)
}

// String implements fmt.Stringer.
func (t *Topic[T]) String() string {
	return fmt.Sprintf("topic(%s, %d subscribers)", t.name, t.Len())
}
