package core

// Metric names a countable fact about a player used by quests and unlock rules.
type Metric string

const (
	MetricLessons      Metric = "lessons_completed"
	MetricChallenges   Metric = "challenges_completed"
	MetricLevel        Metric = "level"
	MetricStreak       Metric = "streak"
	MetricTotalXP      Metric = "total_xp"
	MetricCoins        Metric = "coins"
	MetricDeposits     Metric = "piggy_deposits"
	MetricPiggyBalance Metric = "piggy_balance"
	MetricExpenses     Metric = "expenses_logged"
	MetricGoals        Metric = "goals_created"
	MetricFriends      Metric = "friends"
	MetricAchievements Metric = "achievements"
	MetricQuestsDone   Metric = "quests_completed"
)

// Cumulative reports whether the metric only grows over time, so quests count it from a baseline.
// Gauges such as level, streak or balances are compared absolutely.
func (m Metric) Cumulative() bool {
	switch m {
	case MetricLessons, MetricChallenges, MetricTotalXP, MetricDeposits, MetricExpenses,
		MetricGoals, MetricAchievements, MetricQuestsDone:
		return true
	}
	return false
}

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricLessons, MetricChallenges, MetricLevel, MetricStreak, MetricTotalXP, MetricCoins,
		MetricDeposits, MetricPiggyBalance, MetricExpenses, MetricGoals, MetricFriends,
		MetricAchievements, MetricQuestsDone:
		return true
	}
	return false
}
