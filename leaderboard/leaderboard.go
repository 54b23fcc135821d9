// Package leaderboard ranks players by lifetime XP.
package leaderboard

import (
	"context"
	"sort"
	"sync"

	"finquest/core"
)

// Entry represents a score entry.
type Entry struct {
	User  core.UserID
	Score int64
}

// Board abstracts leaderboard operations.
type Board interface {
	Update(user core.UserID, score int64)
	Remove(user core.UserID)
	TopN(n int) []Entry
	Get(user core.UserID) (Entry, bool)
	Rank(user core.UserID) (int, bool)
	Len() int
}

// Standing is a ranked row with display fields.
type Standing struct {
	Rank    int         `json:"rank"`
	User    core.UserID `json:"user_id"`
	Name    string      `json:"name"`
	Level   int         `json:"level"`
	Avatar  string      `json:"avatar,omitempty"`
	TotalXP int64       `json:"total_xp"`
}

type profile struct {
	name   string
	level  int
	avatar string
	// version of the state the row came from; seeded rows use -1.
	version int64
}

// Ladder keeps a Board in sync with user states and decorates its rows.
type Ladder struct {
	board    Board
	mu       sync.RWMutex
	profiles map[core.UserID]profile
}

// NewLadder wraps b; nil uses a fresh skip list.
func NewLadder(b Board) *Ladder {
	if b == nil {
		b = NewSkipList()
	}
	return &Ladder{board: b, profiles: map[core.UserID]profile{}}
}

// Observe records the user's lifetime XP. It matches engine.StateObserver.
// A state older than the one already recorded is ignored.
func (l *Ladder) Observe(_ context.Context, st core.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.profiles[st.UserID]; ok && p.version > st.Version {
		return
	}
	l.profiles[st.UserID] = profile{name: st.User.Name, level: st.User.Level, avatar: string(st.User.Avatar), version: st.Version}
	l.board.Update(st.UserID, st.User.TotalXP)
}

// Seed adds a row from a persisted ranking at startup. Users already on the
// ladder keep their row; the first observed state replaces a seeded one.
func (l *Ladder) Seed(user core.UserID, name string, level int, avatar string, totalXP int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.profiles[user]; ok {
		return
	}
	l.profiles[user] = profile{name: name, level: level, avatar: avatar, version: -1}
	l.board.Update(user, totalXP)
}

// Top returns the n best users.
func (l *Ladder) Top(n int) []Standing {
	entries := l.board.TopN(n)
	out := make([]Standing, 0, len(entries))
	for i, e := range entries {
		out = append(out, l.standing(i+1, e))
	}
	return out
}

// Among ranks only the given users, e.g. a player and their friends.
// Users without a score are listed last with zero XP.
func (l *Ladder) Among(users []core.UserID) []Standing {
	seen := make(map[core.UserID]struct{}, len(users))
	entries := make([]Entry, 0, len(users))
	for _, u := range users {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		e, ok := l.board.Get(u)
		if !ok {
			e = Entry{User: u}
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
	out := make([]Standing, 0, len(entries))
	for i, e := range entries {
		out = append(out, l.standing(i+1, e))
	}
	return out
}

// Position returns the user's global standing.
func (l *Ladder) Position(user core.UserID) (Standing, bool) {
	rank, ok := l.board.Rank(user)
	if !ok {
		return Standing{}, false
	}
	e, _ := l.board.Get(user)
	return l.standing(rank, e), true
}

func (l *Ladder) Len() int { return l.board.Len() }

func (l *Ladder) standing(rank int, e Entry) Standing {
	l.mu.RLock()
	p, ok := l.profiles[e.User]
	l.mu.RUnlock()
	if !ok {
		p.name = string(e.User)
	}
	return Standing{Rank: rank, User: e.User, Name: p.name, Level: p.level, Avatar: p.avatar, TotalXP: e.Score}
}
