package engine

import (
	"fmt"
	"hash/fnv"
	"time"

	"finquest/catalog"
	"finquest/core"
)

// PeriodKeys identify the calendar day, ISO week and month a board was issued for.
type PeriodKeys struct {
	Daily   string `json:"daily"`
	Weekly  string `json:"weekly"`
	Monthly string `json:"monthly"`
}

// KeysAt returns the period keys of t in loc.
func KeysAt(t time.Time, loc *time.Location) PeriodKeys {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	y, w := lt.ISOWeek()
	return PeriodKeys{
		Daily:   lt.Format("2006-01-02"),
		Weekly:  fmt.Sprintf("%04d-W%02d", y, w),
		Monthly: lt.Format("2006-01"),
	}
}

func (k PeriodKeys) of(p core.QuestPeriod) string {
	switch p {
	case core.QuestDaily:
		return k.Daily
	case core.QuestWeekly:
		return k.Weekly
	case core.QuestMonthly:
		return k.Monthly
	}
	return ""
}

func boardKeys(b core.QuestBoard) PeriodKeys {
	return PeriodKeys{Daily: b.DailyKey, Weekly: b.WeeklyKey, Monthly: b.MonthlyKey}
}

// QuestRotator issues quests from catalog templates. Selection is a pure
// function of the period key, so every user sees the same quests for a period.
type QuestRotator struct {
	cat     *catalog.Catalog
	perSlot map[core.QuestPeriod]int
}

// NewQuestRotator creates a rotator issuing daily, weekly and monthly quest counts.
func NewQuestRotator(cat *catalog.Catalog, daily, weekly, monthly int) *QuestRotator {
	return &QuestRotator{cat: cat, perSlot: map[core.QuestPeriod]int{
		core.QuestDaily:   daily,
		core.QuestWeekly:  weekly,
		core.QuestMonthly: monthly,
	}}
}

// DefaultQuestRotator issues three daily, two weekly and one monthly quest.
func DefaultQuestRotator(cat *catalog.Catalog) *QuestRotator {
	return NewQuestRotator(cat, 3, 2, 1)
}

// Rotate returns the INIT_DAILY_QUESTS action that refreshes stale periods of
// board, or false when every period is current.
func (r *QuestRotator) Rotate(board core.QuestBoard, now time.Time, loc *time.Location) (InitDailyQuests, bool) {
	want := KeysAt(now, loc)
	have := boardKeys(board)
	if want == have {
		return InitDailyQuests{}, false
	}
	var quests []core.Quest
	for _, p := range []core.QuestPeriod{core.QuestDaily, core.QuestWeekly, core.QuestMonthly} {
		if want.of(p) == have.of(p) {
			for _, q := range board.Quests {
				if q.Period == p {
					quests = append(quests, q)
				}
			}
			continue
		}
		quests = append(quests, r.Pick(p, want.of(p))...)
	}
	return InitDailyQuests{Quests: quests, Keys: want}, true
}

// Pick selects the templates of period p for key and issues them.
func (r *QuestRotator) Pick(p core.QuestPeriod, key string) []core.Quest {
	tpls := r.cat.QuestTemplatesFor(p)
	n := r.perSlot[p]
	if n > len(tpls) {
		n = len(tpls)
	}
	if n <= 0 {
		return nil
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(string(p) + ":" + key))
	start := int(h.Sum32() % uint32(len(tpls)))
	out := make([]core.Quest, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, tpls[(start+i)%len(tpls)].Issue())
	}
	return out
}
