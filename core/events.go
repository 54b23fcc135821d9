package core

import "time"

// EventType enumerates domain events.
type EventType string

const (
	EventXPAdded             EventType = "xp_added"
	EventLevelUp             EventType = "level_up"
	EventCoinsChanged        EventType = "coins_changed"
	EventLessonCompleted     EventType = "lesson_completed"
	EventChallengeCompleted  EventType = "challenge_completed"
	EventQuestCompleted      EventType = "quest_completed"
	EventRewardUnlocked      EventType = "reward_unlocked"
	EventPiggyDeposit        EventType = "piggy_deposit"
	EventPiggyBroken         EventType = "piggy_broken"
	EventStreakUpdated       EventType = "streak_updated"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventExpenseRecorded     EventType = "expense_recorded"
	EventPersistFailed       EventType = "persist_failed"
)

// AllEventTypes lists every event type, in declaration order.
var AllEventTypes = []EventType{
	EventXPAdded, EventLevelUp, EventCoinsChanged, EventLessonCompleted, EventChallengeCompleted,
	EventQuestCompleted, EventRewardUnlocked, EventPiggyDeposit, EventPiggyBroken,
	EventStreakUpdated, EventAchievementUnlocked, EventExpenseRecorded, EventPersistFailed,
}

// Event represents an immutable domain event.
// Reducers emit events without Time, UserID or Seq; the store stamps them.
type Event struct {
	Type     EventType      `json:"type"`
	Time     time.Time      `json:"time"`
	UserID   UserID         `json:"user_id"`
	Seq      int64          `json:"seq,omitempty"`
	Subject  string         `json:"subject,omitempty"`
	Delta    int64          `json:"delta,omitempty"`
	Total    int64          `json:"total,omitempty"`
	Level    int            `json:"level,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewXPAdded(delta, totalXP int64) Event {
	return Event{Type: EventXPAdded, Delta: delta, Total: totalXP}
}

func NewLevelUp(level int) Event {
	return Event{Type: EventLevelUp, Level: level}
}

func NewCoinsChanged(delta, total int64) Event {
	return Event{Type: EventCoinsChanged, Delta: delta, Total: total}
}

func NewLessonCompleted(id LessonID) Event {
	return Event{Type: EventLessonCompleted, Subject: string(id)}
}

func NewChallengeCompleted(id ChallengeID) Event {
	return Event{Type: EventChallengeCompleted, Subject: string(id)}
}

func NewQuestCompleted(id QuestID, reward QuestReward) Event {
	return Event{Type: EventQuestCompleted, Subject: string(id), Delta: reward.Coins, Metadata: map[string]any{"xp": reward.XP}}
}

func NewRewardUnlocked(id RewardID) Event {
	return Event{Type: EventRewardUnlocked, Subject: string(id)}
}

func NewPiggyDeposit(amount, balance int64) Event {
	return Event{Type: EventPiggyDeposit, Delta: amount, Total: balance}
}

func NewPiggyBroken(amount int64) Event {
	return Event{Type: EventPiggyBroken, Delta: amount}
}

func NewStreakUpdated(streak int) Event {
	return Event{Type: EventStreakUpdated, Total: int64(streak)}
}

func NewAchievementUnlocked(id AchievementID) Event {
	return Event{Type: EventAchievementUnlocked, Subject: string(id)}
}

func NewExpenseRecorded(id string) Event {
	return Event{Type: EventExpenseRecorded, Subject: id}
}

// NewPersistFailed reports a failed save of the user's snapshot.
func NewPersistFailed(user UserID, err error) Event {
	return Event{Type: EventPersistFailed, Time: time.Now().UTC(), UserID: user, Metadata: map[string]any{"error": err.Error()}}
}
