package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"finquest/core"
)

// Store persists every user's snapshot to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	data map[core.UserID]core.State
}

func New(path string) (*Store, error) {
	s := &Store{path: path, data: map[core.UserID]core.State{}}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var raw map[string]core.State
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		v.Normalize()
		s.data[core.UserID(k)] = v
	}
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	raw := make(map[string]core.State, len(s.data))
	for k, v := range s.data {
		raw[string(k)] = v
	}
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) Load(_ context.Context, user core.UserID) (core.State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.data[user]
	if !ok {
		return core.State{}, false, nil
	}
	return st.Clone(), true, nil
}

// Save replaces the user's snapshot and rewrites the file atomically.
func (s *Store) Save(_ context.Context, user core.UserID, st core.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.data[user]
	s.data[user] = st.Clone()
	if err := s.persist(); err != nil {
		if had {
			s.data[user] = prev
		} else {
			delete(s.data, user)
		}
		return err
	}
	return nil
}
