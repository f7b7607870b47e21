package feed

import (
	"sort"
	"sync"
)

const DefaultCapacity = 50

// Store holds one recipient's feed. Read marks applied locally stay pending
// until a snapshot reports the entry as read, so a poll that raced a
// confirmation cannot flip an entry back to unread.
type Store struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
	unread   int
	pending  map[int64]struct{}
	disposed bool
}

func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity, pending: make(map[int64]struct{})}
}

// UpsertAll replaces the feed with snapshot entries merged with pending
// local reads. It returns false when the store has been disposed and the
// snapshot was dropped.
func (s *Store) UpsertAll(entries []Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return false
	}

	seen := make(map[int64]struct{}, len(entries))
	merged := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		if _, ok := s.pending[e.ID]; ok {
			if e.Read {
				delete(s.pending, e.ID)
			} else {
				e.Read = true
			}
		}
		merged = append(merged, e)
	}
	for id := range s.pending {
		if _, ok := seen[id]; !ok {
			delete(s.pending, id)
		}
	}

	sortEntries(merged)
	if len(merged) > s.capacity {
		merged = merged[:s.capacity]
	}
	s.entries = merged
	s.unread = countUnread(merged)
	return true
}

// MarkRead marks id read locally. The unread count drops by at most one.
func (s *Store) MarkRead(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return false
	}
	for i := range s.entries {
		if s.entries[i].ID != id {
			continue
		}
		if s.entries[i].Read {
			return false
		}
		s.entries[i].Read = true
		s.pending[id] = struct{}{}
		if s.unread > 0 {
			s.unread--
		}
		return true
	}
	return false
}

// MarkAllRead marks every held entry read and zeroes the unread count. It
// returns the ids that flipped; nil when the store has been disposed.
func (s *Store) MarkAllRead() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil
	}
	flipped := make([]int64, 0, s.unread)
	for i := range s.entries {
		if !s.entries[i].Read {
			s.entries[i].Read = true
			s.pending[s.entries[i].ID] = struct{}{}
			flipped = append(flipped, s.entries[i].ID)
		}
	}
	s.unread = 0
	return flipped
}

// Unpend forgets local read marks the server rejected, so the next snapshot
// is taken as is for those ids.
func (s *Store) Unpend(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.pending, id)
	}
}

// Entries returns a copy of the feed, newest first.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Dispose stops the store from accepting further updates.
func (s *Store) Dispose() {
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()
}

func (s *Store) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func countUnread(entries []Entry) int {
	n := 0
	for _, e := range entries {
		if !e.Read {
			n++
		}
	}
	return n
}
