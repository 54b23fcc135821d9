package sdk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "finquest/adapters/memory"
	"finquest/analytics"
	"finquest/api/httpapi"
	"finquest/core"
	"finquest/engine"
	"finquest/leaderboard"
	"finquest/realtime"
)

// newTestServer runs the real API over an in-memory engine.
func newTestServer(t *testing.T, opts httpapi.Options) (*httptest.Server, *realtime.Hub) {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := realtime.NewHub()
	ladder := leaderboard.NewLadder(nil)
	bus := engine.NewEventBus(engine.DispatchSync)
	bus.Subscribe(engine.AnyEvent, hub.Broadcast)
	if opts.Activity != nil {
		bus.Subscribe(engine.AnyEvent, opts.Activity.OnEvent)
	}
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc := engine.NewService(mem.New(), bus, engine.NewReducer(nil),
		engine.WithLogger(quiet),
		engine.WithServiceClock(func() time.Time { return now }),
		engine.WithStateObserver(ladder.Observe),
	)
	opts.PathPrefix = "/api"
	opts.Logger = quiet
	srv := httptest.NewServer(httpapi.NewMux(svc, hub, ladder, opts))
	t.Cleanup(func() {
		srv.Close()
		svc.Close()
	})
	return srv, hub
}

func TestClientRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, httpapi.Options{APIKeys: []string{"k1"}})
	client, err := NewClient(srv.URL+"/api", WithAPIKey("k1"))
	require.NoError(t, err)
	ctx := context.Background()

	st, err := client.GetState(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, core.UserID("alice"), st.UserID)

	res, err := client.CompleteLesson(ctx, "alice", "what-is-money")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Contains(t, res.State.User.CompletedLessons, core.LessonID("what-is-money"))

	res, err = client.DepositToPiggyBank(ctx, "alice", 0)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Contains(t, res.Rejected, engine.ErrInvalidAmount.Error())

	res, err = client.AddExpense(ctx, "alice", core.Transaction{
		Type:     core.TxExpense,
		Amount:   decimal.RequireFromString("9.99"),
		Category: "transport",
		Date:     time.Date(2026, 3, 13, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, res.State.Expenses, 1)
	assert.NotEmpty(t, res.State.Expenses[0].ID)

	sum, err := client.Summary(ctx, "alice", analytics.RangeMonth)
	require.NoError(t, err)
	assert.True(t, sum.TotalExpense.Equal(decimal.RequireFromString("9.99")))

	view, err := client.Progress(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, view.Level.Level)

	rewards, err := client.Rewards(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, rewards)

	res, err = client.PurchaseReward(ctx, "alice", "avatar-fox")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Rejected)

	cat, err := client.Catalog(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, cat.Lessons)

	top, err := client.Leaderboard(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, core.UserID("alice"), top[0].User)

	friends, err := client.FriendsLeaderboard(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, friends, 1)

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
}

func TestClientActivity(t *testing.T) {
	srv, _ := newTestServer(t, httpapi.Options{Activity: analytics.NewActivity(time.UTC)})
	client, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Dispatch(ctx, "alice", engine.AddXP{XP: 25})
	require.NoError(t, err)

	reports, err := client.Activity(ctx, analytics.PeriodMonthly)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "2026-03", reports[0].Key)
	assert.Equal(t, int64(25), reports[0].XPAwarded)

	_, err = client.Activity(ctx, "hourly")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "invalid_period", apiErr.Code)
}

func TestClientErrors(t *testing.T) {
	srv, _ := newTestServer(t, httpapi.Options{APIKeys: []string{"k1"}})
	ctx := context.Background()

	anon, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)
	_, err = anon.GetState(ctx, "alice")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "unauthorized", apiErr.Code)

	_, err = anon.GetState(ctx, " ")
	assert.ErrorIs(t, err, ErrEmptyUserID)

	_, err = NewClient("")
	assert.Error(t, err)
}

func TestHealthReportsUnhealthyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unhealthy","checks":{"storage":"failed"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)
	hs, err := client.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, "unhealthy", hs.Status)
	assert.Equal(t, "failed", hs.Checks["storage"])
}

func TestClientSubscribeEvents(t *testing.T) {
	srv, hub := newTestServer(t, httpapi.Options{})
	client, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	events, err := client.SubscribeEvents(ctx, SubscribeOptions{UserID: "alice", Types: []core.EventType{core.EventLessonCompleted}})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = client.CompleteLesson(ctx, "alice", "needs-vs-wants")
	require.NoError(t, err)

	select {
	case evt := <-events:
		assert.Equal(t, core.EventLessonCompleted, evt.Type)
		assert.Equal(t, "needs-vs-wants", evt.Subject)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}

	cancel()
	for range events {
	}
}

func TestDeriveWSURL(t *testing.T) {
	assert.Equal(t, "wss://example.com/api/ws", deriveWSURL("https://example.com/api"))
	assert.Equal(t, "ws://localhost:8080/ws", deriveWSURL("http://localhost:8080"))
}
