package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"finquest/catalog"
	"finquest/core"
)

func TestZeroSnapshotIsTotal(t *testing.T) {
	var s Snapshot
	q := core.Quest{Metric: core.MetricLessons, Requirement: 3}
	assert.Equal(t, int64(0), QuestProgress(q, s))
	assert.False(t, IsQuestComplete(q, s))
	assert.True(t, IsLessonAvailable(catalog.Lesson{Difficulty: catalog.Beginner}, s))
	assert.False(t, IsLessonAvailable(catalog.Lesson{Difficulty: catalog.Intermediate}, s))
	assert.False(t, IsRewardUnlocked(catalog.RewardItem{ID: "x", Rules: []catalog.UnlockRule{{Metric: core.MetricLevel, Threshold: 2}}}, s))
}

func TestQuestProgressClampsAndUsesBaseline(t *testing.T) {
	s := Snapshot{
		CompletedLessons: map[core.LessonID]struct{}{"a": {}, "b": {}, "c": {}, "d": {}, "e": {}},
		Streak:           12,
	}

	tests := []struct {
		name  string
		quest core.Quest
		want  int64
		done  bool
	}{
		{"clamped to requirement", core.Quest{Metric: core.MetricLessons, Requirement: 3}, 3, true},
		{"counted from baseline", core.Quest{Metric: core.MetricLessons, Requirement: 3, Baseline: 4}, 1, false},
		{"baseline above current", core.Quest{Metric: core.MetricLessons, Requirement: 3, Baseline: 9}, 0, false},
		{"gauge ignores baseline", core.Quest{Metric: core.MetricStreak, Requirement: 7, Baseline: 12}, 7, true},
		{"invalid requirement", core.Quest{Metric: core.MetricLessons}, 0, false},
		{"sticky completion", core.Quest{Metric: core.MetricDeposits, Requirement: 5, Completed: true}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuestProgress(tt.quest, s))
			assert.Equal(t, tt.done, IsQuestComplete(tt.quest, s))
		})
	}
}

func TestIsRewardUnlockedOrComposition(t *testing.T) {
	item := catalog.RewardItem{ID: "dragon", Rules: []catalog.UnlockRule{
		{Metric: core.MetricLevel, Threshold: 15},
		{Metric: core.MetricStreak, Threshold: 60},
	}}

	assert.False(t, IsRewardUnlocked(item, Snapshot{Level: 14, Streak: 59}))
	assert.True(t, IsRewardUnlocked(item, Snapshot{Level: 15}))
	assert.True(t, IsRewardUnlocked(item, Snapshot{Level: 1, Streak: 60}))
	assert.True(t, IsRewardUnlocked(item, Snapshot{Unlocked: map[core.RewardID]struct{}{"dragon": {}}}))

	item.Unlocked = true
	assert.True(t, IsRewardUnlocked(item, Snapshot{}))
}

func TestTierThresholds(t *testing.T) {
	tests := []struct {
		level int
		tier  catalog.Difficulty
		want  bool
	}{
		{1, catalog.Beginner, true},
		{2, catalog.Intermediate, false},
		{3, catalog.Intermediate, true},
		{6, catalog.Advanced, false},
		{7, catalog.Advanced, true},
		{50, "unknown", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTierAvailable(tt.tier, Snapshot{Level: tt.level}), "level %d tier %s", tt.level, tt.tier)
	}
}

func TestSnapshotOf(t *testing.T) {
	st := core.NewState("alice", "Alice", 10)
	st.User.CompletedLessons["what-is-money"] = struct{}{}
	st.User.Counters.Deposits = 4
	st.PiggyBank.Balance = 40

	s := SnapshotOf(st)
	assert.Equal(t, int64(1), s.Value(core.MetricLessons))
	assert.Equal(t, int64(4), s.Value(core.MetricDeposits))
	assert.Equal(t, int64(40), s.Value(core.MetricPiggyBalance))
	assert.Equal(t, int64(10), s.Value(core.MetricCoins))
	assert.Equal(t, int64(0), s.Value("unknown"))
}

func TestSelectors(t *testing.T) {
	u := core.NewState("bob", "Bob", 0).User
	u.XP = 25
	lp := LevelProgressOf(u)
	assert.InDelta(t, 25.0, lp.Percent, 0.001)
	assert.Equal(t, int64(75), lp.XPToNext)

	u.XP = 0
	assert.Zero(t, XPPercent(u))

	st := core.NewState("bob", "Bob", 0)
	st.User.Theme = "theme-dark"
	statuses := Rewards(catalog.Default(), st.User, SnapshotOf(st))
	var darkEquipped, oceanUnlocked bool
	for _, rs := range statuses {
		if rs.Item.ID == "theme-dark" {
			darkEquipped = rs.Equipped && rs.Unlocked
		}
		if rs.Item.ID == "theme-ocean" {
			oceanUnlocked = rs.Unlocked
		}
	}
	assert.True(t, darkEquipped)
	assert.False(t, oceanUnlocked)

	view := ViewOf(catalog.Default(), st)
	assert.Len(t, view.Lessons, len(catalog.Default().Lessons()))
	assert.Equal(t, 1, view.Level.Level)
}
