package leaderboard

import (
	"math/rand/v2"
	"sync"

	"finquest/core"
)

const (
	maxHeight = 20
	// a node reaches the next level with probability 1/promote
	promote = 4
)

// link points forward on one level. span counts the bottom-level steps it covers.
type link struct {
	to   *xpNode
	span int
}

type xpNode struct {
	entry Entry
	links []link
}

// SkipList is an indexable skip list of lifetime XP, highest first with ties
// ordered by user id. Updates, removals and ranks are O(log n).
type SkipList struct {
	mu     sync.RWMutex
	head   *xpNode
	height int
	size   int
	index  map[core.UserID]*xpNode
	rng    *rand.Rand
}

func NewSkipList() *SkipList {
	return newSkipList(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

func newSkipList(rng *rand.Rand) *SkipList {
	return &SkipList{
		head:   &xpNode{links: make([]link, maxHeight)},
		height: 1,
		index:  map[core.UserID]*xpNode{},
		rng:    rng,
	}
}

// less reports whether a ranks above b.
func less(a, b Entry) bool {
	if a.Score == b.Score {
		return a.User < b.User
	}
	return a.Score > b.Score
}

func (s *SkipList) randomHeight() int {
	h := 1
	for h < maxHeight && s.rng.IntN(promote) == 0 {
		h++
	}
	return h
}

// Update sets the user's lifetime XP.
func (s *SkipList) Update(user core.UserID, score int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.index[user]; ok {
		if n.entry.Score == score {
			return
		}
		s.unlink(n.entry)
	}
	s.insert(Entry{User: user, Score: score})
}

func (s *SkipList) insert(e Entry) {
	var prev [maxHeight]*xpNode
	var rank [maxHeight]int
	cur := s.head
	for i := s.height - 1; i >= 0; i-- {
		if i < s.height-1 {
			rank[i] = rank[i+1]
		}
		for l := cur.links[i]; l.to != nil && less(l.to.entry, e); l = cur.links[i] {
			rank[i] += l.span
			cur = l.to
		}
		prev[i] = cur
	}

	h := s.randomHeight()
	for i := s.height; i < h; i++ {
		prev[i] = s.head
		s.head.links[i].span = s.size
	}
	if h > s.height {
		s.height = h
	}

	n := &xpNode{entry: e, links: make([]link, h)}
	for i := 0; i < h; i++ {
		before := rank[0] - rank[i]
		n.links[i] = link{to: prev[i].links[i].to, span: prev[i].links[i].span - before}
		prev[i].links[i] = link{to: n, span: before + 1}
	}
	for i := h; i < s.height; i++ {
		prev[i].links[i].span++
	}
	s.index[e.User] = n
	s.size++
}

func (s *SkipList) unlink(e Entry) {
	var prev [maxHeight]*xpNode
	cur := s.head
	for i := s.height - 1; i >= 0; i-- {
		for l := cur.links[i]; l.to != nil && less(l.to.entry, e); l = cur.links[i] {
			cur = l.to
		}
		prev[i] = cur
	}
	n := prev[0].links[0].to
	if n == nil || n.entry.User != e.User {
		return
	}
	for i := 0; i < s.height; i++ {
		if prev[i].links[i].to == n {
			prev[i].links[i] = link{to: n.links[i].to, span: prev[i].links[i].span + n.links[i].span - 1}
		} else {
			prev[i].links[i].span--
		}
	}
	for s.height > 1 && s.head.links[s.height-1].to == nil {
		s.height--
	}
	delete(s.index, e.User)
	s.size--
}

func (s *SkipList) Remove(user core.UserID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.index[user]; ok {
		s.unlink(n.entry)
	}
}

// TopN returns the first n entries.
func (s *SkipList) TopN(n int) []Entry {
	return s.Page(0, n)
}

// Page returns up to n entries starting after the first offset ones.
func (s *SkipList) Page(offset, n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || offset < 0 || offset >= s.size {
		return nil
	}
	out := make([]Entry, 0, min(n, s.size-offset))
	for cur := s.nodeAt(offset + 1); cur != nil && len(out) < n; cur = cur.links[0].to {
		out = append(out, cur.entry)
	}
	return out
}

// nodeAt descends by span to the node of the 1-based rank.
func (s *SkipList) nodeAt(rank int) *xpNode {
	walked := 0
	cur := s.head
	for i := s.height - 1; i >= 0; i-- {
		for l := cur.links[i]; l.to != nil && walked+l.span <= rank; l = cur.links[i] {
			walked += l.span
			cur = l.to
		}
		if walked == rank {
			return cur
		}
	}
	return nil
}

// Rank returns the 1-based position of user.
func (s *SkipList) Rank(user core.UserID) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.index[user]
	if !ok {
		return 0, false
	}
	rank := 0
	cur := s.head
	for i := s.height - 1; i >= 0; i-- {
		for l := cur.links[i]; l.to != nil && !less(n.entry, l.to.entry); l = cur.links[i] {
			rank += l.span
			cur = l.to
		}
		if cur == n {
			return rank, true
		}
	}
	return 0, false
}

func (s *SkipList) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func (s *SkipList) Get(user core.UserID) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.index[user]; ok {
		return n.entry, true
	}
	return Entry{}, false
}

var _ Board = (*SkipList)(nil)
