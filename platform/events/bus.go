package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aftersales_backend/platform/logger"
)

// handlerTimeout bounds how long a single async handler may run. A slow
// notification hop must not pin goroutines forever.
const handlerTimeout = 30 * time.Second

// InMemoryBus is a simple in-process event bus. Publish dispatches each
// handler on its own goroutine: the publisher returns as soon as the event is
// handed off, so a failing or slow subscriber can never unwind the operation
// that emitted the event. Handler errors and panics are logged and dropped.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
	wg       sync.WaitGroup
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish sends an event to all registered handlers asynchronously.
// The caller's context is deliberately not propagated: the HTTP request that
// triggered the event may finish (and cancel its context) before handlers run.
func (b *InMemoryBus) Publish(_ context.Context, event Event) {
	b.mu.RLock()
	subscribers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	for _, h := range subscribers {
		handler := h
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
			defer cancel()
			b.dispatch(ctx, event, handler)
		}()
	}
}

// PublishSync sends an event and waits for all handlers to complete.
// Returns the first handler error encountered.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	subscribers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	var firstErr error
	for _, handler := range subscribers {
		if err := b.safeHandle(ctx, event, handler); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Wait blocks until all in-flight async handlers have finished.
// Used by tests and graceful shutdown.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}

func (b *InMemoryBus) dispatch(ctx context.Context, event Event, handler Handler) {
	if err := b.safeHandle(ctx, event, handler); err != nil && b.log != nil {
		b.log.Error("event handler failed",
			"event", event.EventName(),
			"error", err.Error(),
		)
	}
}

func (b *InMemoryBus) safeHandle(ctx context.Context, event Event, handler Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

// Compile-time check that InMemoryBus implements Bus.
var _ Bus = (*InMemoryBus)(nil)
