package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finquest/catalog"
	"finquest/core"
)

func TestKeysAt(t *testing.T) {
	// 2027-01-01 is a Friday in ISO week 53 of 2026.
	k := KeysAt(time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, PeriodKeys{Daily: "2027-01-01", Weekly: "2026-W53", Monthly: "2027-01"}, k)

	tokyo := time.FixedZone("JST", 9*60*60)
	k = KeysAt(time.Date(2026, 3, 31, 20, 0, 0, 0, time.UTC), tokyo)
	assert.Equal(t, "2026-04-01", k.Daily)
	assert.Equal(t, "2026-04", k.Monthly)
}

func TestPickIsDeterministic(t *testing.T) {
	rot := DefaultQuestRotator(catalog.Default())
	a := rot.Pick(core.QuestDaily, "2026-03-14")
	b := rot.Pick(core.QuestDaily, "2026-03-14")
	require.Len(t, a, 3)
	assert.Equal(t, a, b)

	seen := map[core.QuestID]bool{}
	for _, q := range a {
		assert.Equal(t, core.QuestDaily, q.Period)
		assert.False(t, seen[q.ID], "duplicate %s", q.ID)
		seen[q.ID] = true
	}
}

func TestPickCapsAtTemplateCount(t *testing.T) {
	rot := NewQuestRotator(catalog.Default(), 50, 0, 1)
	assert.Len(t, rot.Pick(core.QuestDaily, "x"), len(catalog.Default().QuestTemplatesFor(core.QuestDaily)))
	assert.Empty(t, rot.Pick(core.QuestWeekly, "x"))
	assert.Len(t, rot.Pick(core.QuestMonthly, "x"), 1)
}

func TestRotate(t *testing.T) {
	rot := DefaultQuestRotator(catalog.Default())
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	a, ok := rot.Rotate(core.QuestBoard{}, now, time.UTC)
	require.True(t, ok)
	assert.Len(t, a.Quests, 6)
	assert.Equal(t, KeysAt(now, time.UTC), a.Keys)

	r := NewReducer(nil)
	st, out := r.Apply(freshState(), a)
	require.True(t, out.Changed)

	_, ok = rot.Rotate(st.Quests, now.Add(time.Hour), time.UTC)
	assert.False(t, ok, "same day needs no rotation")

	// the next day only replaces daily quests
	b, ok := rot.Rotate(st.Quests, now.Add(24*time.Hour), time.UTC)
	require.True(t, ok)
	var weekly []core.Quest
	for _, q := range b.Quests {
		if q.Period == core.QuestWeekly {
			weekly = append(weekly, q)
		}
	}
	var before []core.Quest
	for _, q := range st.Quests.Quests {
		if q.Period == core.QuestWeekly {
			before = append(before, q)
		}
	}
	assert.Equal(t, before, weekly)
	assert.Equal(t, "2026-03-15", b.Keys.Daily)
}
