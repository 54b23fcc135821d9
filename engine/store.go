package engine

import (
	"context"
	"sync"
	"time"

	"finquest/core"
)

// CommitFunc observes every applied transition in version order. It runs
// after the state lock is released but before the next commit of the same
// store, so it must not dispatch to that store. events are stamped and ordered by Seq.
type CommitFunc func(ctx context.Context, st core.State, events []core.Event)

// Store is the single writer of one user's state. Dispatches are applied one at
// a time in call order; readers only ever see fully applied transitions.
type Store struct {
	mu      sync.Mutex
	state   core.State
	reducer *Reducer
	seq     int64
	// day is the daily period key of the last session policy run; empty until Mount.
	day string

	// pub is handed over from mu so commits are observed in the order they were applied.
	pub sync.Mutex

	clock   func() time.Time
	loc     *time.Location
	rotator *QuestRotator
	commit  CommitFunc
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) { s.clock = clock }
}

// WithLocation sets the time zone calendar days are computed in.
func WithLocation(loc *time.Location) StoreOption {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithQuestRotator enables quest rotation on Mount and RotateQuests.
func WithQuestRotator(r *QuestRotator) StoreOption {
	return func(s *Store) { s.rotator = r }
}

// WithCommit registers the commit observer.
func WithCommit(fn CommitFunc) StoreOption {
	return func(s *Store) { s.commit = fn }
}

// NewStore creates a store holding initial.
func NewStore(initial core.State, r *Reducer, opts ...StoreOption) *Store {
	if r == nil {
		r = NewReducer(nil)
	}
	initial.Normalize()
	s := &Store{
		state:   initial,
		reducer: r,
		clock:   time.Now,
		loc:     time.UTC,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns a copy of the current state.
func (s *Store) State() core.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Store) UserID() core.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UserID
}

// Dispatch applies a and returns the resulting state. Timestamps missing from
// the action are filled from the store clock.
// A mounted store whose calendar day rolled over runs the session policy
// first; the returned Outcome describes a alone.
func (s *Store) Dispatch(ctx context.Context, a Action) (core.State, Outcome) {
	s.mu.Lock()
	now := s.clock()
	var rolled Outcome
	if s.day != "" {
		rolled = s.sessionLocked(now, false)
	}
	out := s.applyLocked(stamp(a, now), now)
	st := s.state.Clone()
	s.commitUnlock(ctx, st, merge(rolled, out))
	return st, out
}

// Mount runs the session policy: the streak check, then quest rotation.
// Both steps are applied under one lock so no dispatch interleaves them. The
// policy runs once per calendar day; later calls on the same day are no-ops.
func (s *Store) Mount(ctx context.Context) (core.State, Outcome) {
	s.mu.Lock()
	now := s.clock()
	total := s.sessionLocked(now, s.day == "")
	st := s.state.Clone()
	s.commitUnlock(ctx, st, total)
	return st, total
}

// sessionLocked applies the session policy when forced or when the day changed.
func (s *Store) sessionLocked(now time.Time, force bool) Outcome {
	day := KeysAt(now, s.loc).Daily
	if !force && day == s.day {
		return Outcome{}
	}
	s.day = day
	var total Outcome
	if a, ok := StreakCheck(s.state.User, now, s.loc); ok {
		total = merge(total, s.applyLocked(a, now))
	}
	if s.rotator != nil {
		if a, ok := s.rotator.Rotate(s.state.Quests, now, s.loc); ok {
			total = merge(total, s.applyLocked(a, now))
		}
	}
	return total
}

// RotateQuests re-issues quests for periods that have rolled over.
func (s *Store) RotateQuests(ctx context.Context) (core.State, Outcome) {
	s.mu.Lock()
	if s.rotator == nil {
		st := s.state.Clone()
		s.mu.Unlock()
		return st, Outcome{}
	}
	// rotation alone is not a login, so the session day is left untouched
	now := s.clock()
	var out Outcome
	if a, ok := s.rotator.Rotate(s.state.Quests, now, s.loc); ok {
		out = s.applyLocked(a, now)
	}
	st := s.state.Clone()
	s.commitUnlock(ctx, st, out)
	return st, out
}

func (s *Store) applyLocked(a Action, now time.Time) Outcome {
	next, out := s.reducer.Apply(s.state, a)
	if !out.Changed {
		return out
	}
	next.Updated = now.UTC()
	for i := range out.Events {
		s.seq++
		out.Events[i].Seq = s.seq
		out.Events[i].Time = now.UTC()
		out.Events[i].UserID = next.UserID
	}
	s.state = next
	return out
}

// commitUnlock releases mu and runs the commit observer. pub is taken while mu
// is still held, so observers see commits in the order they were applied.
func (s *Store) commitUnlock(ctx context.Context, st core.State, out Outcome) {
	if !out.Changed || s.commit == nil {
		s.mu.Unlock()
		return
	}
	s.pub.Lock()
	s.mu.Unlock()
	defer s.pub.Unlock()
	s.commit(ctx, st, out.Events)
}

func merge(a, b Outcome) Outcome {
	return Outcome{
		Changed:  a.Changed || b.Changed,
		Rejected: firstErr(a.Rejected, b.Rejected),
		Events:   append(a.Events, b.Events...),
	}
}

func firstErr(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

// stamp fills zero timestamps of time-bearing actions with now.
func stamp(a Action, now time.Time) Action {
	switch v := a.(type) {
	case UpdateStreak:
		if v.At.IsZero() {
			v.At = now
		}
		return v
	case DepositToPiggyBank:
		if v.Date.IsZero() {
			v.Date = now
		}
		return v
	case BreakPiggyBank:
		if v.Date.IsZero() {
			v.Date = now
		}
		return v
	case AddExpense:
		if v.Transaction.CreatedAt.IsZero() {
			v.Transaction.CreatedAt = now
		}
		return v
	}
	return a
}
