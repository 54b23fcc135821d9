package memory

import (
	"context"
	"sync"

	"finquest/core"
)

// Store is a concurrent in-memory snapshot store.
type Store struct {
	users sync.Map // map[core.UserID]*userRecord
}

type userRecord struct {
	mu    sync.Mutex
	state core.State
}

func New() *Store { return &Store{} }

// Load returns a copy of the user's snapshot.
func (s *Store) Load(_ context.Context, user core.UserID) (core.State, bool, error) {
	v, ok := s.users.Load(user)
	if !ok {
		return core.State{}, false, nil
	}
	rec := v.(*userRecord)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state.Clone(), true, nil
}

// Save stores a copy of st. Older versions never overwrite newer ones.
func (s *Store) Save(_ context.Context, user core.UserID, st core.State) error {
	v, _ := s.users.LoadOrStore(user, &userRecord{})
	rec := v.(*userRecord)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.state.UserID != "" && rec.state.Version > st.Version {
		return nil
	}
	rec.state = st.Clone()
	return nil
}

// Len reports how many users have a snapshot.
func (s *Store) Len() int {
	n := 0
	s.users.Range(func(_, _ any) bool { n++; return true })
	return n
}

var _ interface {
	Load(context.Context, core.UserID) (core.State, bool, error)
	Save(context.Context, core.UserID, core.State) error
} = (*Store)(nil)
