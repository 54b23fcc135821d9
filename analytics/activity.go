package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"finquest/core"
	"finquest/engine"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(ctx context.Context, e core.Event)
}

// Period is the granularity of an activity report.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

var periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly}

// ParsePeriod accepts daily, weekly or monthly; empty means daily.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return p, nil
	case "":
		return PeriodDaily, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// Report aggregates engine activity over one calendar period.
type Report struct {
	Period           Period `json:"period"`
	Key              string `json:"key"` // e.g. "2026-03-14", "2026-W11", "2026-03"
	ActiveUsers      int    `json:"active_users"`
	XPAwarded        int64  `json:"xp_awarded"`
	CoinsEarned      int64  `json:"coins_earned"`
	CoinsSpent       int64  `json:"coins_spent"`
	LevelUps         int64  `json:"level_ups"`
	LessonsCompleted int64  `json:"lessons_completed"`
	QuestsCompleted  int64  `json:"quests_completed"`
	RewardsUnlocked  int64  `json:"rewards_unlocked"`
	PiggyDeposits    int64  `json:"piggy_deposits"`
	ExpensesLogged   int64  `json:"expenses_logged"`
	PersistFailures  int64  `json:"persist_failures"`
}

type tally struct {
	report Report
	users  map[core.UserID]struct{}
}

// Activity counts active users and engine activity per day, ISO week and month.
type Activity struct {
	mu    sync.RWMutex
	loc   *time.Location
	tally map[Period]map[string]*tally
}

// NewActivity creates an Activity computing calendar periods in loc (UTC when nil).
func NewActivity(loc *time.Location) *Activity {
	if loc == nil {
		loc = time.UTC
	}
	a := &Activity{loc: loc, tally: make(map[Period]map[string]*tally, len(periods))}
	for _, p := range periods {
		a.tally[p] = make(map[string]*tally)
	}
	return a
}

func (a *Activity) OnEvent(_ context.Context, e core.Event) {
	at := e.Time
	if at.IsZero() {
		at = time.Now()
	}
	keys := engine.KeysAt(at, a.loc)

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, p := range periods {
		key := keyOf(keys, p)
		t := a.tally[p][key]
		if t == nil {
			t = &tally{report: Report{Period: p, Key: key}, users: map[core.UserID]struct{}{}}
			a.tally[p][key] = t
		}
		if e.UserID != "" && e.Type != core.EventPersistFailed {
			t.users[e.UserID] = struct{}{}
		}
		count(&t.report, e)
	}
}

func count(r *Report, e core.Event) {
	switch e.Type {
	case core.EventXPAdded:
		r.XPAwarded += e.Delta
	case core.EventCoinsChanged:
		if e.Delta > 0 {
			r.CoinsEarned += e.Delta
		} else {
			r.CoinsSpent -= e.Delta
		}
	case core.EventLevelUp:
		r.LevelUps++
	case core.EventLessonCompleted:
		r.LessonsCompleted++
	case core.EventQuestCompleted:
		r.QuestsCompleted++
	case core.EventRewardUnlocked:
		r.RewardsUnlocked++
	case core.EventPiggyDeposit:
		r.PiggyDeposits++
	case core.EventExpenseRecorded:
		r.ExpensesLogged++
	case core.EventPersistFailed:
		r.PersistFailures++
	}
}

func keyOf(k engine.PeriodKeys, p Period) string {
	switch p {
	case PeriodWeekly:
		return k.Weekly
	case PeriodMonthly:
		return k.Monthly
	}
	return k.Daily
}

// ActiveUsers returns the number of distinct users seen in the period.
func (a *Activity) ActiveUsers(p Period, key string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if t, ok := a.tally[p][key]; ok {
		return len(t.users)
	}
	return 0
}

// Report returns the aggregate for one period.
func (a *Activity) Report(p Period, key string) (Report, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.tally[p][key]
	if !ok {
		return Report{}, false
	}
	r := t.report
	r.ActiveUsers = len(t.users)
	return r, true
}

// Reports returns every report of a period ordered by key.
func (a *Activity) Reports(p Period) []Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Report, 0, len(a.tally[p]))
	for _, t := range a.tally[p] {
		r := t.report
		r.ActiveUsers = len(t.users)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Current returns the report of the period containing now.
func (a *Activity) Current(p Period, now time.Time) Report {
	key := keyOf(engine.KeysAt(now, a.loc), p)
	if r, ok := a.Report(p, key); ok {
		return r
	}
	return Report{Period: p, Key: key}
}

// ExportJSON renders every report of a period.
func (a *Activity) ExportJSON(p Period) ([]byte, error) {
	return json.MarshalIndent(a.Reports(p), "", "  ")
}

// Bridge fans events out to several hooks.
type Bridge struct{ hooks []Hook }

func NewBridge(hooks ...Hook) *Bridge { return &Bridge{hooks: hooks} }

func (b *Bridge) OnEvent(ctx context.Context, e core.Event) {
	for _, h := range b.hooks {
		h.OnEvent(ctx, e)
	}
}
