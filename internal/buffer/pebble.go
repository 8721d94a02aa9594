package buffer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/pubrt/internal/storage/pebble"
)

// PebbleStore keeps records in Pebble. Appends are serialized by a writer
// mutex; the length is published atomically only after the batch commits.
type PebbleStore struct {
	db *pebblestore.DB

	mu     sync.Mutex
	dbMu   sync.RWMutex // readers hold it; Close takes it exclusively
	length atomic.Int64
	closed atomic.Bool
	notify *notifier
	now    func() time.Time
}

var _ Store = (*PebbleStore)(nil)

// NewPebble wraps an open, empty database. The store owns db and closes it.
func NewPebble(db *pebblestore.DB) *PebbleStore {
	return &PebbleStore{db: db, notify: newNotifier(), now: time.Now}
}

func (s *PebbleStore) Append(ctx context.Context, rec Record) (int, error) {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	pos := int(s.length.Load())

	b := s.db.NewBatch()
	err := b.Set(recordKey(pos), encodeValue(s.now().UnixMilli(), rec), nil)
	if err == nil {
		err = s.db.CommitBatch(ctx, b)
	}
	_ = b.Close()
	if err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("buffer: append at %d: %w", pos, err)
	}
	s.length.Store(int64(pos + 1))
	s.mu.Unlock()

	s.notify.broadcast()
	return pos, nil
}

func (s *PebbleStore) Len() int {
	return int(s.length.Load())
}

func (s *PebbleStore) Get(i int) (Record, error) {
	e, err := s.Entry(i)
	if err != nil {
		return nil, err
	}
	return e.Record, nil
}

func (s *PebbleStore) Entry(i int) (Entry, error) {
	if i < 0 || i >= s.Len() {
		return Entry{}, ErrOutOfRange
	}
	s.dbMu.RLock()
	defer s.dbMu.RUnlock()
	if s.closed.Load() {
		return Entry{}, ErrClosed
	}
	val, err := s.db.Get(recordKey(i))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return Entry{}, fmt.Errorf("buffer: position %d missing: %w", i, ErrCorrupt)
		}
		return Entry{}, fmt.Errorf("buffer: read %d: %w", i, err)
	}
	ms, payload, ok := decodeValue(val)
	if !ok {
		return Entry{}, fmt.Errorf("buffer: position %d: %w", i, ErrCorrupt)
	}
	return Entry{Position: i, Record: payload, IngestedAt: time.UnixMilli(ms)}, nil
}

func (s *PebbleStore) Wait(ctx context.Context, after int, timeout time.Duration) bool {
	return s.notify.wait(ctx, s.Len, after, timeout)
}

func (s *PebbleStore) Check() error {
	s.dbMu.RLock()
	defer s.dbMu.RUnlock()
	if s.closed.Load() {
		return ErrClosed
	}
	return s.db.Check()
}

// Close rejects further appends and closes the database.
func (s *PebbleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dbMu.Lock()
	defer s.dbMu.Unlock()
	if s.closed.Swap(true) {
		return nil
	}
	s.notify.broadcast()
	return s.db.Close()
}
