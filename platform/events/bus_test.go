package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"aftersales_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.event" }

func TestPublish_DispatchesToAllSubscribers(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
			calls.Add(1)
			return nil
		}))
	}

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 handler calls, got %d", got)
	}
}

func TestPublish_HandlerErrorDoesNotReachPublisher(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		return errors.New("smtp down")
	}))

	// Publish must not block or fail whatever the handler does.
	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()
}

func TestPublish_HandlerPanicIsRecovered(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	var after atomic.Bool
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		panic("boom")
	}))
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		after.Store(true)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if !after.Load() {
		t.Fatal("expected the panicking handler not to affect other subscribers")
	}
}

func TestPublish_HandlerOutlivesCallerContext(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	done := make(chan error, 1)
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		done <- ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, testEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	if err := <-done; err != nil {
		t.Fatalf("expected handler context to be independent of the caller, got %v", err)
	}
}

func TestPublishSync_ReturnsFirstError(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		return errors.New("first")
	}))
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		return errors.New("second")
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if err == nil || err.Error() != "first" {
		t.Fatalf("expected first handler error, got %v", err)
	}
}

func TestPublish_NoSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))
	bus.Publish(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()
}
