// Package progress contains pure predicates and selectors over a progress snapshot.
// Nothing here reads global state; every function is total.
package progress

import (
	"finquest/catalog"
	"finquest/core"
)

// Snapshot is the read-only view of a player's progress that predicates evaluate.
// The zero value is valid and behaves like a fresh account.
type Snapshot struct {
	Level           int
	XP              int64
	NextLevelXP     int64
	TotalXP         int64
	Coins           int64
	Streak          int
	Deposits        int64
	PiggyBalance    int64
	ExpensesLogged  int64
	GoalsCreated    int64
	Friends         int64
	Achievements    int64
	QuestsCompleted int64

	CompletedLessons    map[core.LessonID]struct{}
	CompletedChallenges map[core.ChallengeID]struct{}
	Unlocked            map[core.RewardID]struct{}
}

// SnapshotOf projects the state into a snapshot. Maps are shared, not copied.
func SnapshotOf(st core.State) Snapshot {
	u := st.User
	return Snapshot{
		Level:               u.Level,
		XP:                  u.XP,
		NextLevelXP:         u.NextLevelXP,
		TotalXP:             u.TotalXP,
		Coins:               u.Coins,
		Streak:              u.Streak,
		Deposits:            u.Counters.Deposits,
		PiggyBalance:        st.PiggyBank.Balance,
		ExpensesLogged:      u.Counters.ExpensesLogged,
		GoalsCreated:        u.Counters.GoalsCreated,
		Friends:             int64(len(u.Friends)),
		Achievements:        int64(len(u.Achievements)),
		QuestsCompleted:     u.Counters.QuestsCompleted,
		CompletedLessons:    u.CompletedLessons,
		CompletedChallenges: u.CompletedChallenges,
		Unlocked:            u.Unlocked,
	}
}

// Value returns the current value of a metric; unknown metrics read as 0.
func (s Snapshot) Value(m core.Metric) int64 {
	switch m {
	case core.MetricLessons:
		return int64(len(s.CompletedLessons))
	case core.MetricChallenges:
		return int64(len(s.CompletedChallenges))
	case core.MetricLevel:
		return int64(s.Level)
	case core.MetricStreak:
		return int64(s.Streak)
	case core.MetricTotalXP:
		return s.TotalXP
	case core.MetricCoins:
		return s.Coins
	case core.MetricDeposits:
		return s.Deposits
	case core.MetricPiggyBalance:
		return s.PiggyBalance
	case core.MetricExpenses:
		return s.ExpensesLogged
	case core.MetricGoals:
		return s.GoalsCreated
	case core.MetricFriends:
		return s.Friends
	case core.MetricAchievements:
		return s.Achievements
	case core.MetricQuestsDone:
		return s.QuestsCompleted
	}
	return 0
}

// QuestProgress returns the quest's progress clamped to [0, requirement].
// Cumulative metrics are counted from the quest's baseline.
func QuestProgress(q core.Quest, s Snapshot) int64 {
	if q.Requirement < 1 {
		return 0
	}
	raw := s.Value(q.Metric)
	if q.Metric.Cumulative() {
		raw -= q.Baseline
	}
	return clamp(raw, 0, q.Requirement)
}

// IsQuestComplete reports whether the quest is done. Completion is sticky.
func IsQuestComplete(q core.Quest, s Snapshot) bool {
	if q.Completed {
		return true
	}
	return q.Requirement >= 1 && QuestProgress(q, s) >= q.Requirement
}

// RuleSatisfied reports whether a single unlock threshold holds.
func RuleSatisfied(r catalog.UnlockRule, s Snapshot) bool {
	return s.Value(r.Metric) >= r.Threshold
}

// IsRewardUnlocked is true when the item starts unlocked, was already unlocked,
// or any of its threshold rules holds.
func IsRewardUnlocked(item catalog.RewardItem, s Snapshot) bool {
	if item.Unlocked {
		return true
	}
	if _, ok := s.Unlocked[item.ID]; ok {
		return true
	}
	for _, r := range item.Rules {
		if RuleSatisfied(r, s) {
			return true
		}
	}
	return false
}

// IsTierAvailable reports whether the player's level opens a difficulty tier.
// Unknown tiers are never available.
func IsTierAvailable(d catalog.Difficulty, s Snapshot) bool {
	req, ok := catalog.DifficultyUnlockLevels[d]
	if !ok {
		return false
	}
	level := s.Level
	if level < 1 {
		level = 1
	}
	return level >= req
}

func IsLessonAvailable(l catalog.Lesson, s Snapshot) bool {
	return IsTierAvailable(l.Difficulty, s)
}

func IsChallengeAvailable(c catalog.Challenge, s Snapshot) bool {
	return IsTierAvailable(c.Difficulty, s)
}

func IsLessonCompleted(id core.LessonID, s Snapshot) bool {
	_, ok := s.CompletedLessons[id]
	return ok
}

func IsChallengeCompleted(id core.ChallengeID, s Snapshot) bool {
	_, ok := s.CompletedChallenges[id]
	return ok
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
