package core

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UserID uniquely identifies a player.
type UserID string

// Content identifiers. Each lives in its own namespace of the catalog.
type (
	LessonID      string
	ChallengeID   string
	QuestID       string
	RewardID      string
	AchievementID string
	CategoryID    string
)

// DefaultCosmetic is the id equipped for avatar, banner and theme on a fresh profile.
const DefaultCosmetic RewardID = "default"

// Rarity grades rewards and quests.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Priority of a savings goal.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Goal is a user-defined savings target.
type Goal struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	Deadline      time.Time       `json:"deadline,omitempty"`
	Priority      Priority        `json:"priority"`
}

// Validate checks the goal's invariants.
func (g Goal) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return errors.New("goal id is required")
	}
	if !g.TargetAmount.IsPositive() {
		return errors.New("goal target amount must be positive")
	}
	if g.CurrentAmount.IsNegative() {
		return errors.New("goal current amount must not be negative")
	}
	if !g.Priority.Valid() {
		return errors.New("goal priority must be high, medium or low")
	}
	return nil
}

// PiggyEntryType distinguishes deposits from the single withdraw made when breaking the bank.
type PiggyEntryType string

const (
	PiggyDeposit  PiggyEntryType = "deposit"
	PiggyWithdraw PiggyEntryType = "withdraw"
)

// PiggyEntry is one line of the piggy bank ledger.
type PiggyEntry struct {
	Type   PiggyEntryType `json:"type"`
	Amount int64          `json:"amount"`
	Date   time.Time      `json:"date"`
}

// PiggyBank is a deposit-only savings ledger. History is most-recent-first.
type PiggyBank struct {
	Balance     int64        `json:"balance"`
	LastDeposit *time.Time   `json:"last_deposit,omitempty"`
	History     []PiggyEntry `json:"history"`
}

// Conserved reports whether Balance equals deposits minus withdrawals in History.
func (p PiggyBank) Conserved() bool {
	var sum int64
	for _, e := range p.History {
		switch e.Type {
		case PiggyDeposit:
			sum += e.Amount
		case PiggyWithdraw:
			sum -= e.Amount
		default:
			return false
		}
	}
	return p.Balance >= 0 && sum == p.Balance
}

// Clone returns a deep copy.
func (p PiggyBank) Clone() PiggyBank {
	cp := PiggyBank{Balance: p.Balance, History: append([]PiggyEntry(nil), p.History...)}
	if p.LastDeposit != nil {
		t := *p.LastDeposit
		cp.LastDeposit = &t
	}
	return cp
}

// TransactionType is expense or income.
type TransactionType string

const (
	TxExpense TransactionType = "expense"
	TxIncome  TransactionType = "income"
)

// Transaction is an entry of the expense ledger.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    CategoryID      `json:"category"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Validate checks the transaction's invariants.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("transaction id is required")
	}
	if t.Type != TxExpense && t.Type != TxIncome {
		return errors.New("transaction type must be expense or income")
	}
	if !t.Amount.IsPositive() {
		return errors.New("transaction amount must be positive")
	}
	if t.Date.IsZero() {
		return errors.New("transaction date is required")
	}
	return nil
}

// QuestPeriod is the rotation period of a quest.
type QuestPeriod string

const (
	QuestDaily   QuestPeriod = "daily"
	QuestWeekly  QuestPeriod = "weekly"
	QuestMonthly QuestPeriod = "monthly"
)

// Reward granted once when a quest completes.
type QuestReward struct {
	XP    int64 `json:"xp"`
	Coins int64 `json:"coins"`
}

// Quest is a bounded task with a progress counter.
type Quest struct {
	ID          QuestID     `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Period      QuestPeriod `json:"type"`
	Metric      Metric      `json:"metric"`
	Reward      QuestReward `json:"reward"`
	Requirement int64       `json:"requirement"`
	Progress    int64       `json:"progress"`
	// Baseline is the metric value when the quest was issued; cumulative metrics count from here.
	Baseline  int64  `json:"baseline"`
	Completed bool   `json:"completed"`
	Rarity    Rarity `json:"rarity"`
}

// QuestBoard holds the issued quests and the calendar period each group was issued for.
type QuestBoard struct {
	Quests     []Quest `json:"quests"`
	DailyKey   string  `json:"daily_key,omitempty"`
	WeeklyKey  string  `json:"weekly_key,omitempty"`
	MonthlyKey string  `json:"monthly_key,omitempty"`
}

// Clone returns a deep copy.
func (b QuestBoard) Clone() QuestBoard {
	cp := b
	cp.Quests = append([]Quest(nil), b.Quests...)
	return cp
}

// FriendRef is a lightweight pointer to another player.
type FriendRef struct {
	ID     UserID   `json:"id"`
	Name   string   `json:"name"`
	Level  int      `json:"level,omitempty"`
	Avatar RewardID `json:"avatar,omitempty"`
}

// UserProfile is the player's progression record.
type UserProfile struct {
	Name        string `json:"name"`
	Level       int    `json:"level"`
	XP          int64  `json:"xp"`
	NextLevelXP int64  `json:"next_level_xp"`
	// TotalXP is lifetime XP and never decreases.
	TotalXP int64 `json:"total_xp"`
	Coins   int64 `json:"coins"`

	CompletedLessons    map[LessonID]struct{}    `json:"completed_lessons"`
	CompletedChallenges map[ChallengeID]struct{} `json:"completed_challenges"`
	Goals               []Goal                   `json:"goals"`

	Avatar      RewardID              `json:"avatar"`
	Banner      RewardID              `json:"banner"`
	Theme       RewardID              `json:"theme"`
	Titles      map[RewardID]struct{} `json:"titles"`
	ActiveTitle RewardID              `json:"active_title,omitempty"`
	// Unlocked is the sticky set of reward ids; it only grows.
	Unlocked map[RewardID]struct{} `json:"unlocked"`

	Streak        int        `json:"streak"`
	LongestStreak int        `json:"longest_streak"`
	LastLogin     *time.Time `json:"last_login,omitempty"`

	Friends      []FriendRef                `json:"friends"`
	Achievements map[AchievementID]struct{} `json:"achievements"`

	Counters Counters `json:"counters"`
}

// Counters are lifetime activity tallies; they never decrease.
type Counters struct {
	Deposits        int64 `json:"deposits"`
	ExpensesLogged  int64 `json:"expenses_logged"`
	GoalsCreated    int64 `json:"goals_created"`
	QuestsCompleted int64 `json:"quests_completed"`
}

// Clone returns a deep copy of the profile.
func (u UserProfile) Clone() UserProfile {
	cp := u
	cp.CompletedLessons = cloneSet(u.CompletedLessons)
	cp.CompletedChallenges = cloneSet(u.CompletedChallenges)
	cp.Goals = append([]Goal(nil), u.Goals...)
	cp.Titles = cloneSet(u.Titles)
	cp.Unlocked = cloneSet(u.Unlocked)
	cp.Friends = append([]FriendRef(nil), u.Friends...)
	cp.Achievements = cloneSet(u.Achievements)
	if u.LastLogin != nil {
		t := *u.LastLogin
		cp.LastLogin = &t
	}
	return cp
}

func cloneSet[K comparable](in map[K]struct{}) map[K]struct{} {
	out := make(map[K]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

// State is the whole per-user domain model owned by the store.
type State struct {
	UserID    UserID        `json:"user_id"`
	User      UserProfile   `json:"user"`
	PiggyBank PiggyBank     `json:"piggy_bank"`
	Expenses  []Transaction `json:"expenses"`
	Quests    QuestBoard    `json:"quests"`
	// Version counts applied transitions.
	Version int64     `json:"version"`
	Updated time.Time `json:"updated"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	cp := s
	cp.User = s.User.Clone()
	cp.PiggyBank = s.PiggyBank.Clone()
	cp.Expenses = append([]Transaction(nil), s.Expenses...)
	cp.Quests = s.Quests.Clone()
	return cp
}

// Normalize fills nil collections so a decoded snapshot behaves like a fresh one.
func (s *State) Normalize() {
	u := &s.User
	if u.CompletedLessons == nil {
		u.CompletedLessons = map[LessonID]struct{}{}
	}
	if u.CompletedChallenges == nil {
		u.CompletedChallenges = map[ChallengeID]struct{}{}
	}
	if u.Titles == nil {
		u.Titles = map[RewardID]struct{}{}
	}
	if u.Unlocked == nil {
		u.Unlocked = map[RewardID]struct{}{}
	}
	if u.Achievements == nil {
		u.Achievements = map[AchievementID]struct{}{}
	}
	if u.Level < 1 {
		u.Level = 1
	}
	if u.NextLevelXP <= 0 {
		u.NextLevelXP = BaseLevelXP
	}
	if u.Avatar == "" {
		u.Avatar = DefaultCosmetic
	}
	if u.Banner == "" {
		u.Banner = DefaultCosmetic
	}
	if u.Theme == "" {
		u.Theme = DefaultCosmetic
	}
}

// NewState returns the initial state of a fresh account.
func NewState(user UserID, name string, coins int64) State {
	st := State{
		UserID: user,
		User: UserProfile{
			Name:        name,
			Level:       1,
			NextLevelXP: BaseLevelXP,
			Coins:       coins,
		},
	}
	st.Normalize()
	return st
}

// AddSafe adds delta to base ensuring no signed overflow occurs.
func AddSafe(base int64, delta int64) (int64, error) {
	if (delta > 0 && base > math.MaxInt64-delta) || (delta < 0 && base < math.MinInt64-delta) {
		return 0, errors.New("integer overflow in AddSafe")
	}
	return base + delta, nil
}

// NormalizeUserID trims and lowercases user identifiers.
func NormalizeUserID(id UserID) (UserID, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return "", errors.New("empty user id")
	}
	return UserID(strings.ToLower(s)), nil
}

// ValidateID ensures a non-empty content id with a simple charset check.
func ValidateID(id string) error {
	s := strings.TrimSpace(id)
	if s == "" {
		return errors.New("empty id")
	}
	// simple check: alnum, dash, underscore
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			continue
		}
		return errors.New("invalid id")
	}
	return nil
}
