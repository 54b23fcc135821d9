package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"finquest/core"
)

// ActionType is the wire name of an action.
type ActionType string

const (
	ActCompleteLesson     ActionType = "COMPLETE_LESSON"
	ActCompleteChallenge  ActionType = "COMPLETE_CHALLENGE"
	ActAddGoal            ActionType = "ADD_GOAL"
	ActUpdateGoal         ActionType = "UPDATE_GOAL"
	ActDeleteGoal         ActionType = "DELETE_GOAL"
	ActAddXP              ActionType = "ADD_XP"
	ActAddCoins           ActionType = "ADD_COINS"
	ActUpdateStreak       ActionType = "UPDATE_STREAK"
	ActInitPiggyBank      ActionType = "INIT_PIGGY_BANK"
	ActDepositToPiggyBank ActionType = "DEPOSIT_TO_PIGGY_BANK"
	ActBreakPiggyBank     ActionType = "BREAK_PIGGY_BANK"
	ActAddExpense         ActionType = "ADD_EXPENSE"
	ActUpdateExpense      ActionType = "UPDATE_EXPENSE"
	ActDeleteExpense      ActionType = "DELETE_EXPENSE"
	ActInitDailyQuests    ActionType = "INIT_DAILY_QUESTS"
	ActCompleteDailyQuest ActionType = "COMPLETE_DAILY_QUEST"
	ActEquipAvatar        ActionType = "EQUIP_AVATAR"
	ActEquipBanner        ActionType = "EQUIP_BANNER"
	ActEquipTheme         ActionType = "EQUIP_THEME"
	ActSetActiveTitle     ActionType = "SET_ACTIVE_TITLE"
	ActAddFriend          ActionType = "ADD_FRIEND"
	ActRemoveFriend       ActionType = "REMOVE_FRIEND"
	ActUnlockAchievement  ActionType = "UNLOCK_ACHIEVEMENT"
	ActPurchaseReward     ActionType = "PURCHASE_REWARD"

	// ActSetTheme is accepted on decode and maps to EquipTheme.
	ActSetTheme ActionType = "SET_THEME"
)

// Action is the closed set of store transitions. Only types in this package implement it.
type Action interface {
	Type() ActionType
	action()
}

type CompleteLesson struct {
	LessonID core.LessonID `json:"lessonId"`
}

type CompleteChallenge struct {
	ChallengeID core.ChallengeID `json:"challengeId"`
}

type AddGoal struct {
	Goal core.Goal `json:"goal"`
}

type UpdateGoal struct {
	Goal core.Goal `json:"goal"`
}

type DeleteGoal struct {
	ID string `json:"id"`
}

type AddXP struct {
	XP int64 `json:"xp"`
}

// AddCoins credits or debits coins. A debit that would go below zero is rejected.
type AddCoins struct {
	Coins int64 `json:"coins"`
}

// UpdateStreak overwrites the streak and stamps lastLogin with At.
type UpdateStreak struct {
	Streak int       `json:"streak"`
	At     time.Time `json:"at,omitempty"`
}

// InitPiggyBank replaces the piggy bank with a conserved ledger.
type InitPiggyBank struct {
	PiggyBank core.PiggyBank `json:"piggyBank"`
}

type DepositToPiggyBank struct {
	Amount int64     `json:"amount"`
	Date   time.Time `json:"date,omitempty"`
}

type BreakPiggyBank struct {
	Date time.Time `json:"date,omitempty"`
}

type AddExpense struct {
	Transaction core.Transaction `json:"transaction"`
}

type UpdateExpense struct {
	Transaction core.Transaction `json:"transaction"`
}

type DeleteExpense struct {
	ID string `json:"id"`
}

// InitDailyQuests replaces the quest board. Quests whose period key is
// unchanged and that are already on the board keep their progress.
type InitDailyQuests struct {
	Quests []core.Quest `json:"quests"`
	Keys   PeriodKeys   `json:"keys"`
}

type CompleteDailyQuest struct {
	QuestID core.QuestID `json:"questId"`
}

type EquipAvatar struct {
	ID core.RewardID `json:"id"`
}

type EquipBanner struct {
	ID core.RewardID `json:"id"`
}

type EquipTheme struct {
	ID core.RewardID `json:"id"`
}

// SetActiveTitle selects an owned title; an empty id clears it.
type SetActiveTitle struct {
	ID core.RewardID `json:"id"`
}

type AddFriend struct {
	Friend core.FriendRef `json:"friend"`
}

type RemoveFriend struct {
	FriendID core.UserID `json:"friendId"`
}

type UnlockAchievement struct {
	AchievementID core.AchievementID `json:"achievementId"`
	XPReward      int64              `json:"xpReward"`
}

// PurchaseReward spends coins to unlock a catalog reward.
type PurchaseReward struct {
	RewardID core.RewardID `json:"rewardId"`
}

func (CompleteLesson) Type() ActionType     { return ActCompleteLesson }
func (CompleteChallenge) Type() ActionType  { return ActCompleteChallenge }
func (AddGoal) Type() ActionType            { return ActAddGoal }
func (UpdateGoal) Type() ActionType         { return ActUpdateGoal }
func (DeleteGoal) Type() ActionType         { return ActDeleteGoal }
func (AddXP) Type() ActionType              { return ActAddXP }
func (AddCoins) Type() ActionType           { return ActAddCoins }
func (UpdateStreak) Type() ActionType       { return ActUpdateStreak }
func (InitPiggyBank) Type() ActionType      { return ActInitPiggyBank }
func (DepositToPiggyBank) Type() ActionType { return ActDepositToPiggyBank }
func (BreakPiggyBank) Type() ActionType     { return ActBreakPiggyBank }
func (AddExpense) Type() ActionType         { return ActAddExpense }
func (UpdateExpense) Type() ActionType      { return ActUpdateExpense }
func (DeleteExpense) Type() ActionType      { return ActDeleteExpense }
func (InitDailyQuests) Type() ActionType    { return ActInitDailyQuests }
func (CompleteDailyQuest) Type() ActionType { return ActCompleteDailyQuest }
func (EquipAvatar) Type() ActionType        { return ActEquipAvatar }
func (EquipBanner) Type() ActionType        { return ActEquipBanner }
func (EquipTheme) Type() ActionType         { return ActEquipTheme }
func (SetActiveTitle) Type() ActionType     { return ActSetActiveTitle }
func (AddFriend) Type() ActionType          { return ActAddFriend }
func (RemoveFriend) Type() ActionType       { return ActRemoveFriend }
func (UnlockAchievement) Type() ActionType  { return ActUnlockAchievement }
func (PurchaseReward) Type() ActionType     { return ActPurchaseReward }

func (CompleteLesson) action()     {}
func (CompleteChallenge) action()  {}
func (AddGoal) action()            {}
func (UpdateGoal) action()         {}
func (DeleteGoal) action()         {}
func (AddXP) action()              {}
func (AddCoins) action()           {}
func (UpdateStreak) action()       {}
func (InitPiggyBank) action()      {}
func (DepositToPiggyBank) action() {}
func (BreakPiggyBank) action()     {}
func (AddExpense) action()         {}
func (UpdateExpense) action()      {}
func (DeleteExpense) action()      {}
func (InitDailyQuests) action()    {}
func (CompleteDailyQuest) action() {}
func (EquipAvatar) action()        {}
func (EquipBanner) action()        {}
func (EquipTheme) action()         {}
func (SetActiveTitle) action()     {}
func (AddFriend) action()          {}
func (RemoveFriend) action()       {}
func (UnlockAchievement) action()  {}
func (PurchaseReward) action()     {}

// Envelope is the JSON form of an action: {"type": "...", "payload": {...}}.
type Envelope struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var decoders = map[ActionType]func(json.RawMessage) (Action, error){
	ActCompleteLesson:     decodeAs[CompleteLesson],
	ActCompleteChallenge:  decodeAs[CompleteChallenge],
	ActAddGoal:            decodeAs[AddGoal],
	ActUpdateGoal:         decodeAs[UpdateGoal],
	ActDeleteGoal:         decodeAs[DeleteGoal],
	ActAddXP:              decodeAs[AddXP],
	ActAddCoins:           decodeAs[AddCoins],
	ActUpdateStreak:       decodeAs[UpdateStreak],
	ActInitPiggyBank:      decodeAs[InitPiggyBank],
	ActDepositToPiggyBank: decodeAs[DepositToPiggyBank],
	ActBreakPiggyBank:     decodeAs[BreakPiggyBank],
	ActAddExpense:         decodeAs[AddExpense],
	ActUpdateExpense:      decodeAs[UpdateExpense],
	ActDeleteExpense:      decodeAs[DeleteExpense],
	ActInitDailyQuests:    decodeAs[InitDailyQuests],
	ActCompleteDailyQuest: decodeAs[CompleteDailyQuest],
	ActEquipAvatar:        decodeAs[EquipAvatar],
	ActEquipBanner:        decodeAs[EquipBanner],
	ActEquipTheme:         decodeAs[EquipTheme],
	ActSetTheme:           decodeAs[EquipTheme],
	ActSetActiveTitle:     decodeAs[SetActiveTitle],
	ActAddFriend:          decodeAs[AddFriend],
	ActRemoveFriend:       decodeAs[RemoveFriend],
	ActUnlockAchievement:  decodeAs[UnlockAchievement],
	ActPurchaseReward:     decodeAs[PurchaseReward],
}

func decodeAs[T Action](raw json.RawMessage) (Action, error) {
	var a T
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// DecodeAction parses an action from its envelope.
func DecodeAction(data []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	return env.Decode()
}

// Decode resolves the envelope's payload into a typed action.
func (e Envelope) Decode() (Action, error) {
	dec, ok := decoders[e.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, e.Type)
	}
	a, err := dec(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return a, nil
}

// EncodeAction wraps an action in its envelope.
func EncodeAction(a Action) (Envelope, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: a.Type(), Payload: raw}, nil
}

// ActionTypes lists the canonical action names.
func ActionTypes() []ActionType {
	return []ActionType{
		ActCompleteLesson, ActCompleteChallenge, ActAddGoal, ActUpdateGoal, ActDeleteGoal,
		ActAddXP, ActAddCoins, ActUpdateStreak, ActInitPiggyBank, ActDepositToPiggyBank,
		ActBreakPiggyBank, ActAddExpense, ActUpdateExpense, ActDeleteExpense, ActInitDailyQuests,
		ActCompleteDailyQuest, ActEquipAvatar, ActEquipBanner, ActEquipTheme, ActSetActiveTitle,
		ActAddFriend, ActRemoveFriend, ActUnlockAchievement, ActPurchaseReward,
	}
}
