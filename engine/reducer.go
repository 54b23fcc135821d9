package engine

import (
	"fmt"

	"finquest/catalog"
	"finquest/core"
	"finquest/progress"
)

// Outcome describes what Apply did with an action.
//
// Changed is false both for idempotent no-ops and for rejections; Rejected
// tells them apart. Events are unstamped: the Store fills Time, UserID and Seq.
type Outcome struct {
	Changed  bool
	Rejected error
	Events   []core.Event
}

// Reducer is the pure transition function of the store.
type Reducer struct {
	cat *catalog.Catalog
	// strictEquip rejects equipping rewards that are not unlocked.
	strictEquip bool
}

// ReducerOption configures a Reducer.
type ReducerOption func(*Reducer)

// WithStrictEquip makes EQUIP_* and SET_ACTIVE_TITLE check unlock state.
func WithStrictEquip(strict bool) ReducerOption {
	return func(r *Reducer) { r.strictEquip = strict }
}

// NewReducer builds a reducer over cat; nil selects catalog.Default().
func NewReducer(cat *catalog.Catalog, opts ...ReducerOption) *Reducer {
	if cat == nil {
		cat = catalog.Default()
	}
	r := &Reducer{cat: cat}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Reducer) Catalog() *catalog.Catalog { return r.cat }

// NewState returns a fresh account that already owns the catalog items
// available from the start, so no unlock events are emitted for them later.
func (r *Reducer) NewState(user core.UserID, name string, coins int64) core.State {
	st := core.NewState(user, name, coins)
	for _, item := range r.cat.Rewards() {
		if !item.Unlocked {
			continue
		}
		st.User.Unlocked[item.ID] = struct{}{}
		if item.Kind == catalog.KindTitle {
			st.User.Titles[item.ID] = struct{}{}
		}
	}
	return st
}

// Apply returns the state after a. The input is never modified. Rejected or
// no-op actions return st itself.
func (r *Reducer) Apply(st core.State, a Action) (core.State, Outcome) {
	if a == nil {
		return st, Outcome{}
	}
	tx := &txn{r: r, st: st.Clone()}
	tx.st.Normalize()
	if err := tx.apply(a); err != nil {
		return st, Outcome{Rejected: err}
	}
	if !tx.changed {
		return st, Outcome{}
	}
	if err := tx.reconcile(); err != nil {
		return st, Outcome{Rejected: err}
	}
	tx.st.Version++
	return tx.st, Outcome{Changed: true, Events: tx.events}
}

// txn accumulates one transition over a private copy of the state.
type txn struct {
	r       *Reducer
	st      core.State
	events  []core.Event
	changed bool
}

func (t *txn) emit(ev ...core.Event) {
	t.events = append(t.events, ev...)
	t.changed = true
}

func (t *txn) apply(a Action) error {
	u := &t.st.User
	switch a := a.(type) {
	case CompleteLesson:
		l, ok := t.r.cat.Lesson(a.LessonID)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownLesson, a.LessonID)
		}
		if _, done := u.CompletedLessons[l.ID]; done {
			return nil
		}
		u.CompletedLessons[l.ID] = struct{}{}
		t.emit(core.NewLessonCompleted(l.ID))
		return t.grant(l.XPReward, l.CoinReward)

	case CompleteChallenge:
		c, ok := t.r.cat.Challenge(a.ChallengeID)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownChallenge, a.ChallengeID)
		}
		if _, done := u.CompletedChallenges[c.ID]; done {
			return nil
		}
		u.CompletedChallenges[c.ID] = struct{}{}
		t.emit(core.NewChallengeCompleted(c.ID))
		return t.grant(c.XPReward, c.CoinReward)

	case AddGoal:
		if err := a.Goal.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		if goalIndex(u.Goals, a.Goal.ID) >= 0 {
			return fmt.Errorf("%w: goal %q", ErrDuplicateID, a.Goal.ID)
		}
		u.Goals = append(u.Goals, a.Goal)
		u.Counters.GoalsCreated++
		t.changed = true

	case UpdateGoal:
		if err := a.Goal.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		i := goalIndex(u.Goals, a.Goal.ID)
		if i < 0 {
			return fmt.Errorf("%w: goal %q", ErrNotFound, a.Goal.ID)
		}
		u.Goals[i] = a.Goal
		t.changed = true

	case DeleteGoal:
		i := goalIndex(u.Goals, a.ID)
		if i < 0 {
			return fmt.Errorf("%w: goal %q", ErrNotFound, a.ID)
		}
		u.Goals = append(u.Goals[:i], u.Goals[i+1:]...)
		t.changed = true

	case AddXP:
		if a.XP <= 0 {
			return fmt.Errorf("%w: xp must be positive", ErrInvalidAmount)
		}
		return t.grant(a.XP, 0)

	case AddCoins:
		if a.Coins == 0 {
			return fmt.Errorf("%w: coins must be non-zero", ErrInvalidAmount)
		}
		return t.addCoins(a.Coins)

	case UpdateStreak:
		if a.Streak < 0 {
			return fmt.Errorf("%w: streak must be >= 0", ErrInvalidAmount)
		}
		if a.At.IsZero() {
			return fmt.Errorf("%w: streak update needs a timestamp", ErrInvalidDate)
		}
		at := a.At
		u.Streak = a.Streak
		u.LastLogin = &at
		if u.Streak > u.LongestStreak {
			u.LongestStreak = u.Streak
		}
		t.emit(core.NewStreakUpdated(u.Streak))

	case InitPiggyBank:
		pb := a.PiggyBank.Clone()
		for _, e := range pb.History {
			if e.Amount <= 0 {
				return fmt.Errorf("%w: history amounts must be positive", ErrInvalidPiggyBank)
			}
		}
		if !pb.Conserved() {
			return ErrInvalidPiggyBank
		}
		t.st.PiggyBank = pb
		t.changed = true

	case DepositToPiggyBank:
		if a.Amount <= 0 {
			return fmt.Errorf("%w: deposit must be positive", ErrInvalidAmount)
		}
		if a.Date.IsZero() {
			return fmt.Errorf("%w: deposit needs a date", ErrInvalidDate)
		}
		pb := &t.st.PiggyBank
		bal, err := core.AddSafe(pb.Balance, a.Amount)
		if err != nil {
			return ErrOverflow
		}
		d := a.Date
		pb.Balance = bal
		pb.LastDeposit = &d
		pb.History = prepend(pb.History, core.PiggyEntry{Type: core.PiggyDeposit, Amount: a.Amount, Date: d})
		u.Counters.Deposits++
		t.emit(core.NewPiggyDeposit(a.Amount, bal))

	case BreakPiggyBank:
		if a.Date.IsZero() {
			return fmt.Errorf("%w: break needs a date", ErrInvalidDate)
		}
		pb := &t.st.PiggyBank
		amount := pb.Balance
		if amount <= 0 {
			return nil
		}
		coins, err := core.AddSafe(u.Coins, amount)
		if err != nil {
			return ErrOverflow
		}
		pb.History = prepend(pb.History, core.PiggyEntry{Type: core.PiggyWithdraw, Amount: amount, Date: a.Date})
		pb.Balance = 0
		pb.LastDeposit = nil
		u.Coins = coins
		t.emit(core.NewPiggyBroken(amount), core.NewCoinsChanged(amount, coins))

	case AddExpense:
		tx := a.Transaction
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		if expenseIndex(t.st.Expenses, tx.ID) >= 0 {
			return fmt.Errorf("%w: transaction %q", ErrDuplicateID, tx.ID)
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = tx.Date
		}
		t.st.Expenses = append(t.st.Expenses, tx)
		u.Counters.ExpensesLogged++
		t.emit(core.NewExpenseRecorded(tx.ID))

	case UpdateExpense:
		tx := a.Transaction
		i := expenseIndex(t.st.Expenses, tx.ID)
		if i < 0 {
			return fmt.Errorf("%w: transaction %q", ErrNotFound, tx.ID)
		}
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = t.st.Expenses[i].CreatedAt
		}
		t.st.Expenses[i] = tx
		t.changed = true

	case DeleteExpense:
		i := expenseIndex(t.st.Expenses, a.ID)
		if i < 0 {
			return fmt.Errorf("%w: transaction %q", ErrNotFound, a.ID)
		}
		t.st.Expenses = append(t.st.Expenses[:i], t.st.Expenses[i+1:]...)
		t.changed = true

	case InitDailyQuests:
		return t.initQuests(a)

	case CompleteDailyQuest:
		i := questIndex(t.st.Quests.Quests, a.QuestID)
		if i < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownQuest, a.QuestID)
		}
		if t.st.Quests.Quests[i].Completed {
			return nil
		}
		return t.completeQuest(i)

	case EquipAvatar:
		return t.equip(a.ID, catalog.KindAvatar, &u.Avatar)
	case EquipBanner:
		return t.equip(a.ID, catalog.KindBanner, &u.Banner)
	case EquipTheme:
		return t.equip(a.ID, catalog.KindTheme, &u.Theme)

	case SetActiveTitle:
		if a.ID == "" {
			if u.ActiveTitle != "" {
				u.ActiveTitle = ""
				t.changed = true
			}
			return nil
		}
		return t.equip(a.ID, catalog.KindTitle, &u.ActiveTitle)

	case AddFriend:
		f := a.Friend
		id, err := core.NormalizeUserID(f.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		if id == t.st.UserID {
			return fmt.Errorf("%w: cannot befriend yourself", ErrInvalidAction)
		}
		if friendIndex(u.Friends, id) >= 0 {
			return nil
		}
		f.ID = id
		u.Friends = append(u.Friends, f)
		t.changed = true

	case RemoveFriend:
		id, _ := core.NormalizeUserID(a.FriendID)
		i := friendIndex(u.Friends, id)
		if i < 0 {
			return fmt.Errorf("%w: friend %q", ErrNotFound, a.FriendID)
		}
		u.Friends = append(u.Friends[:i], u.Friends[i+1:]...)
		t.changed = true

	case UnlockAchievement:
		if err := core.ValidateID(string(a.AchievementID)); err != nil {
			return fmt.Errorf("%w: achievement: %v", ErrInvalidAction, err)
		}
		if a.XPReward < 0 {
			return fmt.Errorf("%w: xp reward must be >= 0", ErrInvalidAmount)
		}
		if _, ok := u.Achievements[a.AchievementID]; ok {
			return nil
		}
		u.Achievements[a.AchievementID] = struct{}{}
		t.emit(core.NewAchievementUnlocked(a.AchievementID))
		if a.XPReward > 0 {
			return t.grant(a.XPReward, 0)
		}

	case PurchaseReward:
		item, ok := t.r.cat.Reward(a.RewardID)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownReward, a.RewardID)
		}
		if progress.IsRewardUnlocked(item, progress.SnapshotOf(t.st)) {
			return nil
		}
		if u.Coins < item.Cost {
			return fmt.Errorf("%w: need %d, have %d", ErrInsufficientCoins, item.Cost, u.Coins)
		}
		if item.Cost > 0 {
			u.Coins -= item.Cost
			t.emit(core.NewCoinsChanged(-item.Cost, u.Coins))
		}
		t.unlock(item)
	}
	return nil
}

// grant credits XP and coins, cascading level-ups.
func (t *txn) grant(xp, coins int64) error {
	u := &t.st.User
	if xp > 0 {
		total, err := core.AddSafe(u.TotalXP, xp)
		if err != nil {
			return ErrOverflow
		}
		before := u.Level
		u.Level, u.XP, u.NextLevelXP, _ = core.ApplyXP(u.Level, u.XP, u.NextLevelXP, xp)
		u.TotalXP = total
		t.emit(core.NewXPAdded(xp, total))
		for lvl := before + 1; lvl <= u.Level; lvl++ {
			t.emit(core.NewLevelUp(lvl))
		}
	}
	if coins != 0 {
		return t.addCoins(coins)
	}
	return nil
}

func (t *txn) addCoins(delta int64) error {
	u := &t.st.User
	next, err := core.AddSafe(u.Coins, delta)
	if err != nil {
		return ErrOverflow
	}
	if next < 0 {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientCoins, -delta, u.Coins)
	}
	u.Coins = next
	t.emit(core.NewCoinsChanged(delta, next))
	return nil
}

func (t *txn) equip(id core.RewardID, kind catalog.RewardKind, slot *core.RewardID) error {
	if id == "" {
		return fmt.Errorf("%w: empty reward id", ErrInvalidAction)
	}
	if !(id == core.DefaultCosmetic && kind != catalog.KindTitle) {
		item, ok := t.r.cat.Reward(id)
		if !ok || item.Kind != kind {
			return fmt.Errorf("%w: %s %q", ErrUnknownReward, kind, id)
		}
		if t.r.strictEquip && !progress.IsRewardUnlocked(item, progress.SnapshotOf(t.st)) {
			return fmt.Errorf("%w: %q", ErrRewardLocked, id)
		}
	}
	if *slot == id {
		return nil
	}
	*slot = id
	t.changed = true
	return nil
}

func (t *txn) unlock(item catalog.RewardItem) {
	u := &t.st.User
	if _, ok := u.Unlocked[item.ID]; ok {
		return
	}
	u.Unlocked[item.ID] = struct{}{}
	if item.Kind == catalog.KindTitle {
		u.Titles[item.ID] = struct{}{}
	}
	t.emit(core.NewRewardUnlocked(item.ID))
}

func (t *txn) initQuests(a InitDailyQuests) error {
	seen := make(map[core.QuestID]struct{}, len(a.Quests))
	for _, q := range a.Quests {
		if err := core.ValidateID(string(q.ID)); err != nil {
			return fmt.Errorf("%w: quest: %v", ErrInvalidAction, err)
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: quest %q", ErrDuplicateID, q.ID)
		}
		seen[q.ID] = struct{}{}
		if q.Requirement < 1 || !q.Metric.Valid() || a.Keys.of(q.Period) == "" {
			return fmt.Errorf("%w: quest %q", ErrInvalidAction, q.ID)
		}
		if q.Reward.XP < 0 || q.Reward.Coins < 0 {
			return fmt.Errorf("%w: quest %q reward", ErrInvalidAmount, q.ID)
		}
	}

	old := t.st.Quests
	have := boardKeys(old)
	snap := progress.SnapshotOf(t.st)
	board := core.QuestBoard{
		Quests:     make([]core.Quest, 0, len(a.Quests)),
		DailyKey:   a.Keys.Daily,
		WeeklyKey:  a.Keys.Weekly,
		MonthlyKey: a.Keys.Monthly,
	}
	for _, q := range a.Quests {
		if i := questIndex(old.Quests, q.ID); i >= 0 && have.of(q.Period) == a.Keys.of(q.Period) {
			board.Quests = append(board.Quests, old.Quests[i])
			continue
		}
		q.Completed = false
		q.Baseline = 0
		if q.Metric.Cumulative() {
			q.Baseline = snap.Value(q.Metric)
		}
		q.Progress = progress.QuestProgress(q, snap)
		board.Quests = append(board.Quests, q)
	}
	if questBoardsEqual(old, board) {
		return nil
	}
	t.st.Quests = board
	t.changed = true
	return nil
}

func (t *txn) completeQuest(i int) error {
	q := &t.st.Quests.Quests[i]
	q.Completed = true
	q.Progress = q.Requirement
	t.st.User.Counters.QuestsCompleted++
	t.emit(core.NewQuestCompleted(q.ID, q.Reward))
	return t.grant(q.Reward.XP, q.Reward.Coins)
}

// reconcile refreshes quest progress, completes satisfied quests and records
// newly unlocked rewards until nothing changes. Both steps only ever add, so
// the loop terminates.
func (t *txn) reconcile() error {
	for {
		progressed := false
		snap := progress.SnapshotOf(t.st)
		for i := range t.st.Quests.Quests {
			q := &t.st.Quests.Quests[i]
			if q.Completed {
				continue
			}
			q.Progress = progress.QuestProgress(*q, snap)
			if progress.IsQuestComplete(*q, snap) {
				if err := t.completeQuest(i); err != nil {
					return err
				}
				progressed = true
			}
		}

		snap = progress.SnapshotOf(t.st)
		for _, item := range t.r.cat.Rewards() {
			if _, ok := t.st.User.Unlocked[item.ID]; ok {
				continue
			}
			if progress.IsRewardUnlocked(item, snap) {
				t.unlock(item)
				progressed = true
			}
		}
		if !progressed {
			return nil
		}
	}
}

func prepend[T any](s []T, v T) []T {
	out := make([]T, 0, len(s)+1)
	out = append(out, v)
	return append(out, s...)
}

func goalIndex(goals []core.Goal, id string) int {
	for i, g := range goals {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func expenseIndex(txs []core.Transaction, id string) int {
	for i, tx := range txs {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

func questIndex(qs []core.Quest, id core.QuestID) int {
	for i, q := range qs {
		if q.ID == id {
			return i
		}
	}
	return -1
}

func friendIndex(fs []core.FriendRef, id core.UserID) int {
	for i, f := range fs {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func questBoardsEqual(a, b core.QuestBoard) bool {
	if boardKeys(a) != boardKeys(b) || len(a.Quests) != len(b.Quests) {
		return false
	}
	for i := range a.Quests {
		if a.Quests[i] != b.Quests[i] {
			return false
		}
	}
	return true
}
