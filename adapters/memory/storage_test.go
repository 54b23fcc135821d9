package memory

import (
	"context"
	"testing"

	"finquest/core"
)

func TestMemoryStore(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, found, err := s.Load(ctx, "u"); err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}

	st := core.NewState("u", "U", 10)
	st.User.CompletedLessons["what-is-money"] = struct{}{}
	st.Version = 2
	if err := s.Save(ctx, "u", st); err != nil {
		t.Fatal(err)
	}
	// mutating the caller's copy must not leak into the store
	st.User.CompletedLessons["budget-basics"] = struct{}{}

	got, found, err := s.Load(ctx, "u")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if len(got.User.CompletedLessons) != 1 || got.User.Coins != 10 {
		t.Fatalf("unexpected snapshot %+v", got.User)
	}

	stale := core.NewState("u", "U", 0)
	stale.Version = 1
	_ = s.Save(ctx, "u", stale)
	got, _, _ = s.Load(ctx, "u")
	if got.Version != 2 {
		t.Fatalf("stale save overwrote version 2, got %d", got.Version)
	}
	if s.Len() != 1 {
		t.Fatalf("want 1 user got %d", s.Len())
	}
}
