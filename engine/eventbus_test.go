package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"finquest/core"
)

func TestEventBusSync(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	bus.Subscribe(core.EventXPAdded, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewXPAdded(10, 10))
	bus.Publish(context.Background(), core.NewCoinsChanged(5, 5))
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}

func TestEventBusAsync(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()
	ch := make(chan struct{})
	bus.Subscribe(core.EventXPAdded, func(ctx context.Context, e core.Event) { close(ch) })
	bus.Publish(context.Background(), core.NewXPAdded(1, 1))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestEventBusWildcardAndUnsubscribe(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	var all, levels int
	bus.Subscribe(AnyEvent, func(ctx context.Context, e core.Event) { all++ })
	unsub := bus.Subscribe(core.EventLevelUp, func(ctx context.Context, e core.Event) { levels++ })

	bus.PublishAll(context.Background(), []core.Event{core.NewXPAdded(200, 200), core.NewLevelUp(2), core.NewLevelUp(3)})
	unsub()
	bus.Publish(context.Background(), core.NewLevelUp(4))

	if all != 4 {
		t.Fatalf("wildcard: want 4 got %d", all)
	}
	if levels != 2 {
		t.Fatalf("level_up: want 2 got %d", levels)
	}
}

func TestEventBusCloseDrainsQueue(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	var n atomic.Int64
	bus.Subscribe(AnyEvent, func(ctx context.Context, e core.Event) { n.Add(1) })
	for i := 0; i < 100; i++ {
		bus.Publish(context.Background(), core.NewCoinsChanged(1, int64(i)))
	}
	bus.Close()
	if got := n.Load() + bus.Dropped(); got != 100 {
		t.Fatalf("want 100 delivered or dropped, got %d", got)
	}
}
