package feed

import (
	"testing"
	"time"
)

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func entry(id int64, minutes int, read bool) Entry {
	return Entry{ID: id, Type: TypeTransfer, CreatedAt: base.Add(time.Duration(minutes) * time.Minute), Read: read}
}

func ids(entries []Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestStore_UpsertAll_OrdersNewestFirst(t *testing.T) {
	s := NewStore(10)
	s.UpsertAll([]Entry{entry(1, 0, false), entry(3, 5, true), entry(2, 5, false)})

	got := ids(s.Entries())
	want := []int64{3, 2, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
	if s.UnreadCount() != 2 {
		t.Errorf("expected unread 2, got %d", s.UnreadCount())
	}
}

func TestStore_UpsertAll_Capacity(t *testing.T) {
	s := NewStore(2)
	s.UpsertAll([]Entry{entry(1, 0, false), entry(2, 1, false), entry(3, 2, false)})
	if len(s.Entries()) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(s.Entries()))
	}
	if s.UnreadCount() != 2 {
		t.Errorf("unread must count the held entries, got %d", s.UnreadCount())
	}
}

func TestStore_MarkRead_Clamped(t *testing.T) {
	s := NewStore(10)
	s.UpsertAll([]Entry{entry(1, 0, false), entry(2, 1, true)})

	if !s.MarkRead(1) {
		t.Error("expected first mark to change state")
	}
	if s.MarkRead(1) {
		t.Error("expected second mark to be a no-op")
	}
	if s.MarkRead(2) {
		t.Error("already read entry should not change")
	}
	s.MarkRead(99)
	if s.UnreadCount() != 0 {
		t.Errorf("expected unread 0, got %d", s.UnreadCount())
	}
}

func TestStore_StaleSnapshotKeepsLocalRead(t *testing.T) {
	s := NewStore(10)
	s.UpsertAll([]Entry{entry(1, 0, false), entry(2, 1, false)})
	s.MarkRead(2)

	// Snapshot fetched before the confirmation landed.
	s.UpsertAll([]Entry{entry(1, 0, false), entry(2, 1, false)})
	if s.UnreadCount() != 1 {
		t.Fatalf("expected unread 1, got %d", s.UnreadCount())
	}
	for _, e := range s.Entries() {
		if e.ID == 2 && !e.Read {
			t.Error("entry 2 was resurrected as unread")
		}
	}
}

func TestStore_MarkAllRead_StaleSnapshot(t *testing.T) {
	s := NewStore(10)
	s.UpsertAll([]Entry{entry(1, 0, false), entry(2, 1, false), entry(3, 2, false)})
	s.MarkAllRead()
	if s.UnreadCount() != 0 {
		t.Fatalf("expected unread 0, got %d", s.UnreadCount())
	}

	s.UpsertAll([]Entry{entry(1, 0, false), entry(2, 1, false), entry(3, 2, false)})
	if s.UnreadCount() != 0 {
		t.Errorf("stale snapshot resurrected unread count: %d", s.UnreadCount())
	}

	// A notification that arrived after the mark stays unread.
	s.UpsertAll([]Entry{entry(1, 0, false), entry(2, 1, false), entry(3, 2, false), entry(4, 3, false)})
	if s.UnreadCount() != 1 {
		t.Errorf("expected only the new entry unread, got %d", s.UnreadCount())
	}
}

func TestStore_PendingClearedOnceConfirmed(t *testing.T) {
	s := NewStore(10)
	s.UpsertAll([]Entry{entry(1, 0, false)})
	s.MarkRead(1)
	s.UpsertAll([]Entry{entry(1, 0, true)})
	if len(s.pending) != 0 {
		t.Errorf("expected pending cleared, got %v", s.pending)
	}
}

func TestStore_PendingPrunedWhenAbsent(t *testing.T) {
	s := NewStore(10)
	s.UpsertAll([]Entry{entry(1, 0, false)})
	s.MarkRead(1)
	s.UpsertAll([]Entry{entry(2, 1, false)})
	if len(s.pending) != 0 {
		t.Errorf("expected pending pruned, got %v", s.pending)
	}
}

func TestStore_MarkRead_UnknownIDNotPending(t *testing.T) {
	s := NewStore(10)
	s.UpsertAll([]Entry{entry(1, 0, false)})
	if s.MarkRead(99) {
		t.Error("expected unknown id to be ignored")
	}
	if len(s.pending) != 0 {
		t.Errorf("expected nothing pending, got %v", s.pending)
	}
}

func TestStore_UnpendTakesSnapshotAsIs(t *testing.T) {
	s := NewStore(10)
	s.UpsertAll([]Entry{entry(1, 0, false), entry(2, 1, false), entry(3, 2, true)})
	flipped := s.MarkAllRead()
	if len(flipped) != 2 {
		t.Fatalf("expected 2 flipped ids, got %v", flipped)
	}

	s.Unpend(flipped...)
	s.UpsertAll([]Entry{entry(1, 0, false), entry(2, 1, false), entry(3, 2, true)})
	if s.UnreadCount() != 2 {
		t.Errorf("expected server state restored with unread 2, got %d", s.UnreadCount())
	}
}

func TestStore_Dispose(t *testing.T) {
	s := NewStore(10)
	s.Dispose()
	if s.UpsertAll([]Entry{entry(1, 0, false)}) {
		t.Error("expected disposed store to drop snapshot")
	}
	if len(s.Entries()) != 0 {
		t.Error("expected no entries after disposal")
	}
	if s.MarkAllRead() != nil {
		t.Error("expected disposed store to ignore marks")
	}
}
