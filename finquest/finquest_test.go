package finquest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "finquest/adapters/memory"
	"finquest/analytics"
	"finquest/core"
	"finquest/engine"
	"finquest/integrations/webhook"
	"finquest/leaderboard"
	"finquest/realtime"
)

var day = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestNewWiresCollaborators(t *testing.T) {
	hub := realtime.NewHub()
	ladder := leaderboard.NewLadder(nil)
	activity := analytics.NewActivity(time.UTC)
	store := mem.New()

	svc := New(
		WithStorage(store),
		WithDispatchMode(engine.DispatchSync),
		WithClock(func() time.Time { return day }),
		WithRealtime(hub),
		WithLeaderboard(ladder),
		WithHooks(activity),
		WithStartingCoins(25),
	)
	defer svc.Close()

	_, ch := hub.Subscribe(64, realtime.OfTypes(core.EventLessonCompleted))

	st, out, err := svc.Dispatch(context.Background(), "alice", engine.CompleteLesson{LessonID: "what-is-money"})
	require.NoError(t, err)
	require.NoError(t, out.Rejected)
	assert.GreaterOrEqual(t, st.User.Coins, int64(35))

	select {
	case ev := <-ch:
		assert.Equal(t, core.UserID("alice"), ev.UserID)
		assert.Equal(t, "what-is-money", ev.Subject)
	case <-time.After(time.Second):
		t.Fatal("hub did not receive lesson_completed")
	}

	pos, ok := ladder.Position("alice")
	require.True(t, ok)
	assert.Equal(t, st.User.TotalXP, pos.TotalXP)

	r, ok := activity.Report(analytics.PeriodDaily, "2026-03-14")
	require.True(t, ok)
	assert.Equal(t, int64(1), r.LessonsCompleted)

	require.NoError(t, svc.Flush(context.Background()))
	_, found, err := store.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestNewDefaults(t *testing.T) {
	svc := New(WithClock(func() time.Time { return day }))
	defer svc.Close()

	st, err := svc.GetState(context.Background(), "bob")
	require.NoError(t, err)
	assert.Len(t, st.Quests.Quests, 6)
	assert.Zero(t, st.User.Coins)
}

func TestQuestCountsZeroDisablesRotation(t *testing.T) {
	svc := New(WithDispatchMode(engine.DispatchSync), WithQuestCounts(0, 0, 0))
	defer svc.Close()

	st, err := svc.GetState(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, st.Quests.Quests)
}

func TestStrictEquip(t *testing.T) {
	svc := New(WithDispatchMode(engine.DispatchSync), WithStrictEquip(true))
	defer svc.Close()

	_, out, err := svc.Dispatch(context.Background(), "bob", engine.EquipAvatar{ID: "avatar-fox"})
	require.NoError(t, err)
	assert.ErrorIs(t, out.Rejected, engine.ErrRewardLocked)
}

func TestWebhooksReceiveEvents(t *testing.T) {
	var mu sync.Mutex
	var got []core.EventType
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev core.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err == nil {
			mu.Lock()
			got = append(got, ev.Type)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := webhook.New([]string{srv.URL}, webhook.WithTypes(core.EventLevelUp))
	svc := New(WithDispatchMode(engine.DispatchSync), WithWebhooks(sink))

	_, _, err := svc.Dispatch(context.Background(), "carol", engine.AddXP{XP: 150})
	require.NoError(t, err)
	svc.Close()
	sink.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []core.EventType{core.EventLevelUp}, got)
}
