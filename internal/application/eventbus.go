package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ericfisherdev/gitnotify/internal/domain/model"
	"github.com/ericfisherdev/gitnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.EventPublisher = (*EventBus)(nil)

// ReviewRequestedHandler reacts to a published review-requested event.
type ReviewRequestedHandler func(ctx context.Context, event model.ReviewRequested)

// EventBus is a synchronous in-process publisher. Handlers run on the
// publishing goroutine in subscription order; a panicking handler is logged
// and does not affect the others.
type EventBus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]ReviewRequestedHandler
	order    []int
}

// NewEventBus creates an EventBus with no subscribers.
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[int]ReviewRequestedHandler)}
}

// Subscribe registers fn and returns a function that removes it.
func (b *EventBus) Subscribe(fn ReviewRequestedHandler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = fn
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers event to every current subscriber.
func (b *EventBus) Publish(ctx context.Context, event model.ReviewRequested) {
	b.mu.RLock()
	handlers := make([]ReviewRequestedHandler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		deliver(ctx, fn, event)
	}
}

func deliver(ctx context.Context, fn ReviewRequestedHandler, event model.ReviewRequested) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("event handler panicked", "panic", v, "thread", event.ThreadID)
		}
	}()
	fn(ctx, event)
}
