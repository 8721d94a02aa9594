package recordsvc

import (
	"context"
	"errors"
	"time"

	"github.com/rzbill/pubrt/internal/buffer"
)

var (
	// ErrInvalidBody marks a body that is empty, not valid JSON, or not UTF-8.
	ErrInvalidBody = errors.New("invalid request body")
	// ErrTooLarge marks a body over the configured record size limit.
	ErrTooLarge = errors.New("record too large")
	// ErrNotObject marks valid JSON whose top level is not an object.
	ErrNotObject = errors.New("record must be a JSON object")
	// ErrInvalidFilter marks a stream filter expression that does not compile.
	ErrInvalidFilter = errors.New("invalid filter expression")
)

// IngestResult reports where an ingested record landed.
type IngestResult struct {
	Position int
	// Total is the buffer length right after this append, Position+1.
	Total int
}

// Item is one record delivered to a stream sink.
type Item struct {
	Position   int
	Record     buffer.Record
	IngestedAt time.Time
}

// Sink is implemented by transports to receive streamed items.
type Sink interface {
	Send(Item) error
	Context() context.Context
	Flush() error
}

// StreamOptions tunes a single stream session.
type StreamOptions struct {
	// Filter is an optional CEL expression over json, position, ts_ms, and
	// size. Empty delivers every record.
	Filter string
	// Limit stops the session after this many deliveries. 0 means no limit.
	Limit int
}

// SessionState is the lifecycle stage of a stream session.
type SessionState int32

const (
	StateInit SessionState = iota
	StateStreaming
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateStreaming:
		return "STREAMING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
