package buffer

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in a slice guarded by a RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	closed  bool
	notify  *notifier
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemory returns an empty in-process store.
func NewMemory() *MemoryStore {
	return &MemoryStore{notify: newNotifier(), now: time.Now}
}

func (s *MemoryStore) Append(ctx context.Context, rec Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	owned := append(Record(nil), rec...)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	pos := len(s.entries)
	s.entries = append(s.entries, Entry{Position: pos, Record: owned, IngestedAt: s.now()})
	s.mu.Unlock()

	s.notify.broadcast()
	return pos, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Get(i int) (Record, error) {
	e, err := s.Entry(i)
	if err != nil {
		return nil, err
	}
	return e.Record, nil
}

func (s *MemoryStore) Entry(i int) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.entries) {
		return Entry{}, ErrOutOfRange
	}
	return s.entries[i], nil
}

func (s *MemoryStore) Wait(ctx context.Context, after int, timeout time.Duration) bool {
	return s.notify.wait(ctx, s.Len, after, timeout)
}

func (s *MemoryStore) Check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close rejects further appends. Stored records stay readable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.notify.broadcast()
	return nil
}
