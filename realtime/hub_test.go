package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"finquest/core"
)

func stamped(ev core.Event, user core.UserID) core.Event {
	ev.UserID = user
	return ev
}

func TestHubSubscribeBroadcastUnsubscribe(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe(1, nil)

	h.Broadcast(context.Background(), stamped(core.NewXPAdded(10, 10), "bob"))

	received := <-ch
	if received.UserID != "bob" || received.Type != core.EventXPAdded {
		t.Fatalf("unexpected event: %+v", received)
	}

	h.Unsubscribe(id)
	_, ok := <-ch
	if ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
	if h.Subscribers() != 0 {
		t.Fatalf("want 0 subscribers got %d", h.Subscribers())
	}
}

func TestHubFilters(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe(4, All(ForUser("alice"), OfTypes(core.EventLevelUp)))

	h.Broadcast(context.Background(), stamped(core.NewLevelUp(2), "bob"))
	h.Broadcast(context.Background(), stamped(core.NewXPAdded(5, 5), "alice"))
	h.Broadcast(context.Background(), stamped(core.NewLevelUp(3), "alice"))

	got := <-ch
	if got.Level != 3 || got.UserID != "alice" {
		t.Fatalf("unexpected event: %+v", got)
	}
	select {
	case ev := <-ch:
		t.Fatalf("filtered event leaked: %+v", ev)
	default:
	}
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub()
	_, _ = h.Subscribe(1, nil)
	h.Broadcast(context.Background(), core.NewLevelUp(2))
	h.Broadcast(context.Background(), core.NewLevelUp(3))
	if h.Dropped() != 1 {
		t.Fatalf("want 1 dropped got %d", h.Dropped())
	}
}

func TestMarshalJSON(t *testing.T) {
	ev := stamped(core.NewRewardUnlocked("avatar-owl"), "alice")
	b := MarshalJSON(ev)
	var out core.Event
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Subject != "avatar-owl" || out.Type != core.EventRewardUnlocked {
		t.Fatalf("unexpected event: %+v", out)
	}
}
