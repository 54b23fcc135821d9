package leaderboard

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"testing"

	"finquest/core"
)

func TestSkipListBasic(t *testing.T) {
	s := NewSkipList()
	s.Update(core.UserID("a"), 10)
	s.Update(core.UserID("b"), 20)
	s.Update(core.UserID("c"), 15)
	top := s.TopN(3)
	if len(top) != 3 || top[0].User != core.UserID("b") || top[1].User != core.UserID("c") || top[2].User != core.UserID("a") {
		t.Fatalf("unexpected order: %#v", top)
	}
	s.Update(core.UserID("a"), 25)
	top = s.TopN(1)
	if top[0].User != core.UserID("a") {
		t.Fatalf("top should be a, got %#v", top)
	}
	if r, ok := s.Rank("c"); !ok || r != 3 {
		t.Fatalf("rank of c: got %d %v", r, ok)
	}
	s.Remove("b")
	if s.Len() != 2 {
		t.Fatalf("want 2 entries got %d", s.Len())
	}
	if _, ok := s.Rank("b"); ok {
		t.Fatal("removed user still ranked")
	}
}

func TestSkipListTiesOrderByUser(t *testing.T) {
	s := NewSkipList()
	s.Update("zed", 50)
	s.Update("amy", 50)
	top := s.TopN(2)
	if top[0].User != "amy" || top[1].User != "zed" {
		t.Fatalf("ties must order by user id: %#v", top)
	}
}

func TestLadderObserveAndAmong(t *testing.T) {
	l := NewLadder(nil)
	for i, id := range []core.UserID{"ann", "ben", "cat", "dan"} {
		st := core.NewState(id, "Name "+string(id), 0)
		st.User.TotalXP = int64(100 * (i + 1))
		st.User.Level = i + 1
		l.Observe(context.Background(), st)
	}

	top := l.Top(2)
	if len(top) != 2 || top[0].User != "dan" || top[0].Rank != 1 || top[1].User != "cat" {
		t.Fatalf("unexpected top: %#v", top)
	}
	if top[0].Name != "Name dan" || top[0].Level != 4 {
		t.Fatalf("profile not attached: %#v", top[0])
	}

	friends := l.Among([]core.UserID{"ann", "cat", "ann", "ghost"})
	if len(friends) != 3 {
		t.Fatalf("want 3 rows got %#v", friends)
	}
	if friends[0].User != "cat" || friends[1].User != "ann" || friends[2].User != "ghost" || friends[2].TotalXP != 0 {
		t.Fatalf("unexpected friends ranking: %#v", friends)
	}

	pos, ok := l.Position("ben")
	if !ok || pos.Rank != 3 {
		t.Fatalf("unexpected position: %#v %v", pos, ok)
	}
}

func TestSkipListRanksMatchSortedOrder(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	s := newSkipList(rand.New(rand.NewPCG(1, 2)))
	scores := map[core.UserID]int64{}

	for step := 0; step < 2000; step++ {
		user := core.UserID(fmt.Sprintf("u%03d", rng.IntN(150)))
		if rng.IntN(5) == 0 {
			s.Remove(user)
			delete(scores, user)
		} else {
			score := int64(rng.IntN(40)) * 25
			s.Update(user, score)
			scores[user] = score
		}
	}

	want := make([]Entry, 0, len(scores))
	for u, sc := range scores {
		want = append(want, Entry{User: u, Score: sc})
	}
	sort.Slice(want, func(i, j int) bool { return less(want[i], want[j]) })

	if s.Len() != len(want) {
		t.Fatalf("len: got %d want %d", s.Len(), len(want))
	}
	for i, e := range want {
		r, ok := s.Rank(e.User)
		if !ok || r != i+1 {
			t.Fatalf("rank of %s: got %d %v want %d", e.User, r, ok, i+1)
		}
	}
	all := s.TopN(len(want) + 5)
	if len(all) != len(want) {
		t.Fatalf("top: got %d entries want %d", len(all), len(want))
	}
	for i := range want {
		if all[i] != want[i] {
			t.Fatalf("position %d: got %#v want %#v", i, all[i], want[i])
		}
	}
	if len(want) > 12 {
		page := s.Page(10, 3)
		if len(page) != 3 || page[0] != want[10] || page[2] != want[12] {
			t.Fatalf("page: got %#v", page)
		}
	}
	if got := s.Page(len(want), 3); got != nil {
		t.Fatalf("page past end: %#v", got)
	}
}

func TestLadderIgnoresStaleStates(t *testing.T) {
	l := NewLadder(nil)
	newer := core.NewState("ann", "Ann", 0)
	newer.Version = 5
	newer.User.TotalXP = 500
	older := newer
	older.Version = 4
	older.User.TotalXP = 400

	l.Observe(context.Background(), newer)
	l.Observe(context.Background(), older)

	pos, ok := l.Position("ann")
	if !ok || pos.TotalXP != 500 {
		t.Fatalf("stale state overwrote newer one: %#v", pos)
	}
}

func TestLadderSeedNeverOverridesObserved(t *testing.T) {
	l := NewLadder(nil)
	l.Seed("ann", "Ann", 3, "", 300)
	if pos, _ := l.Position("ann"); pos.TotalXP != 300 || pos.Level != 3 {
		t.Fatalf("seeded row missing: %#v", pos)
	}

	st := core.NewState("ann", "Ann", 0)
	st.User.TotalXP = 320
	l.Observe(context.Background(), st)
	l.Seed("ann", "Ann", 3, "", 300)

	if pos, _ := l.Position("ann"); pos.TotalXP != 320 {
		t.Fatalf("seed replaced observed row: %#v", pos)
	}
}
