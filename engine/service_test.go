package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "finquest/adapters/memory"
	"finquest/core"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestService(t *testing.T, p Persistence, opts ...ServiceOption) *Service {
	t.Helper()
	opts = append([]ServiceOption{WithLogger(quietLogger())}, opts...)
	svc := NewService(p, NewEventBus(DispatchSync), NewReducer(nil), opts...)
	t.Cleanup(svc.Close)
	return svc
}

func TestCompleteLessonAndLevelUp(t *testing.T) {
	store := mem.New()
	svc := newTestService(t, store)

	levelUp := 0
	svc.Subscribe(core.EventLevelUp, func(ctx context.Context, e core.Event) { levelUp++ })

	ctx := context.Background()
	for _, id := range []core.LessonID{"what-is-money", "needs-vs-wants", "budget-basics"} {
		_, out, err := svc.Dispatch(ctx, "User1", CompleteLesson{LessonID: id})
		require.NoError(t, err)
		require.NoError(t, out.Rejected)
	}
	if levelUp == 0 {
		t.Fatal("expected level up event")
	}

	require.NoError(t, svc.Flush(ctx))
	saved, found, err := store.Load(ctx, "user1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, saved.User.CompletedLessons, 3)
	assert.Equal(t, []core.UserID{"user1"}, svc.Users())
}

func TestSessionCreatesAndPersistsNewUser(t *testing.T) {
	store := mem.New()
	svc := newTestService(t, store, WithStartingCoins(25), WithRotator(nil))
	ctx := context.Background()

	st, err := svc.GetState(ctx, " Carol ")
	require.NoError(t, err)
	assert.Equal(t, core.UserID("carol"), st.UserID)
	assert.Equal(t, int64(25), st.User.Coins)

	require.NoError(t, svc.Flush(ctx))
	_, found, err := store.Load(ctx, "carol")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSessionRejectsBadUserID(t *testing.T) {
	svc := newTestService(t, mem.New())
	_, err := svc.Session(context.Background(), "   ")
	assert.Error(t, err)
	_, err = svc.Session(context.Background(), "bob/../etc")
	assert.Error(t, err)
}

func TestSessionMountAppliesStreakPolicy(t *testing.T) {
	store := mem.New()
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	last := now.Add(-5 * 24 * time.Hour)

	st := core.NewState("dana", "Dana", 0)
	st.User.Streak = 9
	st.User.LongestStreak = 9
	st.User.LastLogin = &last
	require.NoError(t, store.Save(ctx, "dana", st))

	svc := newTestService(t, store, WithServiceClock(func() time.Time { return now }))
	got, err := svc.GetState(ctx, "dana")
	require.NoError(t, err)
	assert.Equal(t, 1, got.User.Streak)
	assert.Equal(t, 9, got.User.LongestStreak)
	assert.Equal(t, "2026-03-14", got.Quests.DailyKey)
}

func TestStateObserverSeesMountAndCommits(t *testing.T) {
	var mu sync.Mutex
	var versions []int64
	svc := newTestService(t, mem.New(), WithRotator(nil), WithStateObserver(func(ctx context.Context, st core.State) {
		mu.Lock()
		versions = append(versions, st.Version)
		mu.Unlock()
	}))

	_, _, err := svc.Dispatch(context.Background(), "erin", AddXP{XP: 10})
	require.NoError(t, err)
	_, _, err = svc.Dispatch(context.Background(), "erin", AddXP{XP: 0})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{0, 1}, versions)
}

type failingStore struct{ *mem.Store }

func (failingStore) Save(context.Context, core.UserID, core.State) error {
	return errors.New("disk full")
}

func TestPersistFailureIsReportedNotRolledBack(t *testing.T) {
	svc := newTestService(t, failingStore{mem.New()}, WithRotator(nil))

	failed := make(chan core.Event, 8)
	svc.Subscribe(core.EventPersistFailed, func(ctx context.Context, e core.Event) { failed <- e })

	ctx := context.Background()
	st, out, err := svc.Dispatch(ctx, "frank", AddCoins{Coins: 40})
	require.NoError(t, err)
	require.True(t, out.Changed)
	assert.Equal(t, int64(40), st.User.Coins)

	select {
	case e := <-failed:
		assert.Equal(t, core.UserID("frank"), e.UserID)
		assert.Equal(t, "disk full", e.Metadata["error"])
	case <-time.After(2 * time.Second):
		t.Fatal("expected persist_failed event")
	}

	got, err := svc.GetState(ctx, "frank")
	require.NoError(t, err)
	assert.Equal(t, int64(40), got.User.Coins)
}

func TestRotateQuestsAcrossSessions(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }
	svc := newTestService(t, mem.New(), WithServiceClock(clock))
	ctx := context.Background()

	for _, u := range []core.UserID{"gina", "hal"} {
		_, err := svc.Session(ctx, u)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, svc.RotateQuests(ctx))

	mu.Lock()
	now = now.Add(24 * time.Hour)
	mu.Unlock()
	assert.Equal(t, 2, svc.RotateQuests(ctx))

	st, err := svc.GetState(ctx, "gina")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", st.Quests.DailyKey)
}

func TestFlushAfterClose(t *testing.T) {
	svc := NewService(mem.New(), NewEventBus(DispatchSync), NewReducer(nil), WithLogger(quietLogger()))
	svc.Close()
	assert.ErrorIs(t, svc.Flush(context.Background()), ErrClosed)
}

func TestCachedSessionRunsStreakPolicyOnNewDay(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, mem.New(), WithServiceClock(clock.Now))
	ctx := context.Background()

	st, _, err := svc.Dispatch(ctx, "ivy", UpdateStreak{Streak: 1})
	require.NoError(t, err)
	require.Equal(t, 1, st.User.Streak)

	clock.Advance(24 * time.Hour)
	st, err = svc.GetState(ctx, "ivy")
	require.NoError(t, err)
	assert.Equal(t, 2, st.User.Streak)
	assert.Equal(t, "2026-03-15", st.Quests.DailyKey)

	clock.Advance(24 * time.Hour)
	st, _, err = svc.Dispatch(ctx, "ivy", AddXP{XP: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, st.User.Streak)
	assert.Equal(t, 3, st.User.LongestStreak)
}

func TestObserversMayCallBackIntoService(t *testing.T) {
	var svc *Service
	reentered := make(chan int, 64)
	svc = newTestService(t, mem.New(), WithStateObserver(func(ctx context.Context, st core.State) {
		if _, err := svc.GetState(ctx, st.UserID); err == nil {
			reentered <- len(svc.Users())
		}
	}))
	svc.Subscribe(core.EventXPAdded, func(ctx context.Context, e core.Event) {
		_, _ = svc.Session(ctx, e.UserID)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = svc.Dispatch(context.Background(), "jack", AddXP{XP: 30})
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch deadlocked on a re-entrant observer")
	}
	assert.Equal(t, 1, <-reentered)
}

// gatedStore blocks Load of one user until release is closed.
type gatedStore struct {
	*mem.Store
	user    core.UserID
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Load(ctx context.Context, user core.UserID) (core.State, bool, error) {
	if user == g.user {
		close(g.entered)
		<-g.release
	}
	return g.Store.Load(ctx, user)
}

func TestSlowLoadDoesNotBlockOpenSessions(t *testing.T) {
	p := &gatedStore{Store: mem.New(), user: "slow", entered: make(chan struct{}), release: make(chan struct{})}
	svc := newTestService(t, p)
	ctx := context.Background()

	_, _, err := svc.Dispatch(ctx, "kim", AddCoins{Coins: 5})
	require.NoError(t, err)

	loaded := make(chan error, 1)
	go func() {
		_, err := svc.GetState(ctx, "slow")
		loaded <- err
	}()
	<-p.entered

	served := make(chan struct{})
	go func() {
		defer close(served)
		st, err := svc.GetState(ctx, "kim")
		assert.NoError(t, err)
		assert.Equal(t, int64(5), st.User.Coins)
		assert.Equal(t, []core.UserID{"kim"}, svc.Users())
	}()
	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("cached session blocked behind another user's load")
	}

	close(p.release)
	require.NoError(t, <-loaded)
}

func TestNewAccountOwnsIntrinsicRewards(t *testing.T) {
	svc := newTestService(t, mem.New(), WithRotator(nil))
	ctx := context.Background()

	st, err := svc.GetState(ctx, "lena")
	require.NoError(t, err)
	assert.Contains(t, st.User.Titles, core.RewardID("title-rookie"))
	assert.Contains(t, st.User.Unlocked, core.RewardID("title-rookie"))
	assert.Contains(t, st.User.Unlocked, core.RewardID("theme-light"))

	_, out, err := svc.Dispatch(ctx, "lena", AddXP{XP: 10})
	require.NoError(t, err)
	for _, e := range out.Events {
		if e.Type == core.EventRewardUnlocked {
			assert.NotEqual(t, "title-rookie", e.Subject)
			assert.NotEqual(t, "theme-light", e.Subject)
		}
	}
}
