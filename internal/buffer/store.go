package buffer

import (
	"context"
	"errors"
	"fmt"
	"time"

	pebblestore "github.com/rzbill/pubrt/internal/storage/pebble"
	logpkg "github.com/rzbill/pubrt/pkg/log"
)

// Record is one ingested JSON object held as its compacted bytes.
type Record []byte

// MarshalJSON emits the record bytes unchanged.
func (r Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return r, nil
}

// Entry is a record together with its position and ingest time.
type Entry struct {
	Position   int
	Record     Record
	IngestedAt time.Time
}

var (
	// ErrOutOfRange is returned by Get and Entry for positions outside [0, Len).
	ErrOutOfRange = errors.New("buffer: position out of range")
	// ErrClosed is returned by Append after Close.
	ErrClosed = errors.New("buffer: store closed")
	// ErrCorrupt is returned when a stored record fails its checksum.
	ErrCorrupt = errors.New("buffer: corrupt record")
)

// Store is an ordered, append-only sequence of records.
type Store interface {
	// Append stores rec at the next position and returns that position.
	Append(ctx context.Context, rec Record) (int, error)
	// Len is the number of fully stored records.
	Len() int
	// Get returns the record at position i.
	Get(i int) (Record, error)
	// Entry returns the record at position i with its metadata.
	Entry(i int) (Entry, error)
	// Wait blocks until Len() > after, timeout elapses, or ctx is done.
	// It reports whether Len() > after on return. A non-positive timeout
	// waits without a deadline.
	Wait(ctx context.Context, after int, timeout time.Duration) bool
	// Check reports whether the store can serve reads and writes.
	Check() error
	Close() error
}

const (
	BackendMemory = "memory"
	BackendPebble = "pebble"
)

// Options selects and configures a backend.
type Options struct {
	// Backend is memory (default) or pebble.
	Backend string
	// DataDir is the pebble scratch directory. Empty keeps Pebble on an
	// in-memory filesystem.
	DataDir string
	Fsync   pebblestore.FsyncMode
	Logger  logpkg.Logger
	Metrics pebblestore.MetricsHook
}

// Open builds the store selected by opts.Backend.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendPebble:
		db, err := pebblestore.Open(pebblestore.Options{
			DataDir:  opts.DataDir,
			InMemory: opts.DataDir == "",
			Reset:    true,
			Fsync:    opts.Fsync,
			Logger:   opts.Logger,
			Metrics:  opts.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("buffer: open pebble: %w", err)
		}
		return NewPebble(db), nil
	default:
		return nil, fmt.Errorf("buffer: unknown backend %q", opts.Backend)
	}
}
